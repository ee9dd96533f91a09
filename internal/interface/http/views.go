package handlers

import (
	"time"

	"github.com/manuelcattigobetti/provaANPI/internal/domain/entity"
	"github.com/manuelcattigobetti/provaANPI/pkg/validation"
)

// userView is the wire form of a user record. Dates render zero-padded and the
// adult classification is computed at read time.
type userView struct {
	ID          int64  `json:"id"`
	Surname     string `json:"surname"`
	GivenName   string `json:"given_name"`
	DateOfBirth string `json:"date_of_birth"`
	Email       string `json:"email"`
	Level       int    `json:"level"`
	AdultStatus string `json:"adult_status"`
}

func toUserView(u *entity.User) userView {
	return userView{
		ID:          u.ID,
		Surname:     u.Surname,
		GivenName:   u.GivenName,
		DateOfBirth: validation.FormatDate(u.DateOfBirth),
		Email:       u.Email,
		Level:       u.Level,
		AdultStatus: validation.AdultStatus(u.DateOfBirth, time.Now()).String(),
	}
}

func toUserViews(users []*entity.User) []userView {
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, toUserView(u))
	}
	return out
}
