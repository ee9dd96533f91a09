package application

import (
	"context"
	"crypto/subtle"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/manuelcattigobetti/provaANPI/internal/audit"
	"github.com/manuelcattigobetti/provaANPI/internal/session"
	"github.com/manuelcattigobetti/provaANPI/pkg/helpers"
	"github.com/manuelcattigobetti/provaANPI/pkg/mailer"
	"github.com/manuelcattigobetti/provaANPI/pkg/mailer/templates"
	"github.com/manuelcattigobetti/provaANPI/pkg/validation"
)

const challengeTokenLen = 32

// Publisher is the outbound queue for email jobs. Satisfied by
// helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// IssueResult reports the outcome of issuing a login challenge. Dispatch
// failure is non-fatal: the challenge stands, only the email did not go out.
type IssueResult struct {
	Dispatched bool
	// VerifyLink is populated only when link exposure is configured, for
	// development setups without a mail transport.
	VerifyLink string
}

// VerifyStatus classifies a presented challenge token.
type VerifyStatus int

const (
	VerifyNoChallenge VerifyStatus = iota
	VerifyExpired
	VerifyMismatched
	VerifyOK
)

func (s VerifyStatus) String() string {
	switch s {
	case VerifyOK:
		return "verified"
	case VerifyExpired:
		return "expired"
	case VerifyMismatched:
		return "mismatched"
	default:
		return "no_challenge"
	}
}

// ChallengeService runs the passwordless login round trip: a random token is
// bound to the session and emailed to the address, and presenting it back
// within the freshness window proves ownership of that mailbox.
type ChallengeService struct {
	pub        Publisher
	audit      *audit.Logger
	log        *logrus.Logger
	ttl        time.Duration
	verifyURL  string
	exposeLink bool

	now func() time.Time
}

func NewChallengeService(pub Publisher, auditLog *audit.Logger, log *logrus.Logger,
	ttl time.Duration, verifyURL string, exposeLink bool) *ChallengeService {
	return &ChallengeService{
		pub: pub, audit: auditLog, log: log,
		ttl: ttl, verifyURL: verifyURL, exposeLink: exposeLink,
		now: time.Now,
	}
}

// Issue records a fresh challenge on the session, replacing any outstanding
// one, and enqueues the login email. The token never appears in logs or in the
// response body unless link exposure is explicitly enabled.
func (s *ChallengeService) Issue(ctx context.Context, sess *session.Data, email string) (*IssueResult, error) {
	norm, err := validation.NormalizeEmail(email, emailMaxUpdate)
	if err != nil {
		return nil, err
	}

	token, err := helpers.GenToken(challengeTokenLen)
	if err != nil {
		return nil, err
	}
	sess.Challenge = &session.Challenge{
		Email:    norm,
		Token:    token,
		IssuedAt: s.now(),
	}

	link := s.verifyURL + "?token=" + url.QueryEscape(token)
	res := &IssueResult{Dispatched: true}
	if s.exposeLink {
		res.VerifyLink = link
	}

	job := mailer.EmailJob{
		To:       norm,
		Template: templates.LoginLink,
		Data: map[string]any{
			"Link":             link,
			"ExpiresInMinutes": int(s.ttl.Minutes()),
		},
	}
	if s.pub == nil {
		res.Dispatched = false
		return res, nil
	}
	if err := s.pub.PublishJSON(ctx, job); err != nil {
		res.Dispatched = false
		if s.audit != nil {
			s.audit.Error("mailer", "login email dispatch failed for "+norm)
		}
		if s.log != nil {
			s.log.WithError(err).WithField("email", norm).Warn("login email not dispatched")
		}
	}
	return res, nil
}

// Verify checks a presented token against the session's outstanding challenge.
// On success the challenge is consumed, so the same token is never accepted
// twice, and the confirmed email is returned.
func (s *ChallengeService) Verify(sess *session.Data, presented string) (string, VerifyStatus) {
	ch := sess.Challenge
	if ch == nil || ch.Token == "" {
		return "", VerifyNoChallenge
	}
	if s.now().Sub(ch.IssuedAt) >= s.ttl {
		sess.Challenge = nil
		return "", VerifyExpired
	}
	if presented == "" ||
		subtle.ConstantTimeCompare([]byte(ch.Token), []byte(presented)) != 1 {
		return "", VerifyMismatched
	}
	email := ch.Email
	sess.Challenge = nil
	return email, VerifyOK
}
