package session

import (
	"time"

	"github.com/manuelcattigobetti/provaANPI/internal/audit"
)

// Challenge is a pending login token bound to the session it was issued in and
// the email it was issued for. The timestamp anchors the freshness window.
type Challenge struct {
	Email    string    `json:"email"`
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}

// Data is the server-side session state. The browser only ever holds the
// opaque session id; everything here stays in Redis.
type Data struct {
	SID           string     `json:"sid"`
	UserID        int64      `json:"user_id"`
	Surname       string     `json:"surname"`
	GivenName     string     `json:"given_name"`
	Email         string     `json:"email"`
	Level         int        `json:"level"`
	CSRFToken     string     `json:"csrf_token"`
	Challenge     *Challenge `json:"challenge,omitempty"`
	// VerifiedEmail is set when a challenge round trip confirmed ownership of
	// an address that has no account yet; registration requires it to match.
	VerifiedEmail string    `json:"verified_email,omitempty"`
	LastActivity  time.Time `json:"last_activity"`
	ConnectLogged bool      `json:"connect_logged"`
}

func (d *Data) Authenticated() bool {
	return d.UserID != 0
}

// Login binds the user identity to the session and drops any pending
// challenge.
func (d *Data) Login(id int64, surname, givenName, email string, level int) {
	d.UserID = id
	d.Surname = surname
	d.GivenName = givenName
	d.Email = email
	d.Level = level
	d.Challenge = nil
	d.VerifiedEmail = ""
}

func (d *Data) Snapshot() audit.Snapshot {
	return audit.Snapshot{
		ID:        d.UserID,
		Surname:   d.Surname,
		GivenName: d.GivenName,
		Email:     d.Email,
		Level:     d.Level,
	}
}
