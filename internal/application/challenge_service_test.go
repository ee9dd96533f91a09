package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manuelcattigobetti/provaANPI/internal/session"
	"github.com/manuelcattigobetti/provaANPI/pkg/mailer"
)

type fakePublisher struct {
	jobs []mailer.EmailJob
	err  error
}

func (p *fakePublisher) PublishJSON(_ context.Context, body any) error {
	if p.err != nil {
		return p.err
	}
	job, ok := body.(mailer.EmailJob)
	if !ok {
		return errors.New("unexpected payload type")
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func newTestChallengeService(pub Publisher) *ChallengeService {
	svc := NewChallengeService(pub, nil, nil, 3*time.Minute, "https://portal.example.com/api/auth/login/verify", false)
	svc.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestIssueRecordsChallengeAndEnqueuesEmail(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestChallengeService(pub)
	sess := &session.Data{SID: "s1"}

	res, err := svc.Issue(context.Background(), sess, "Mario.Rossi@Example.com")
	require.NoError(t, err)
	assert.True(t, res.Dispatched)
	assert.Empty(t, res.VerifyLink)

	require.NotNil(t, sess.Challenge)
	assert.Equal(t, "mario.rossi@example.com", sess.Challenge.Email)
	assert.NotEmpty(t, sess.Challenge.Token)

	require.Len(t, pub.jobs, 1)
	job := pub.jobs[0]
	assert.Equal(t, "mario.rossi@example.com", job.To)
	assert.Equal(t, "login_link", job.Template)
	assert.Contains(t, job.Data["Link"], sess.Challenge.Token)
	assert.Equal(t, 3, job.Data["ExpiresInMinutes"])
}

func TestIssueRejectsBadEmail(t *testing.T) {
	svc := newTestChallengeService(&fakePublisher{})
	sess := &session.Data{SID: "s1"}

	_, err := svc.Issue(context.Background(), sess, "not-an-email")
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "email", ve.Field)
	assert.Nil(t, sess.Challenge)
}

func TestIssueReplacesOutstandingChallenge(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestChallengeService(pub)
	sess := &session.Data{SID: "s1"}

	_, err := svc.Issue(context.Background(), sess, "a@example.com")
	require.NoError(t, err)
	first := sess.Challenge.Token

	_, err = svc.Issue(context.Background(), sess, "b@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first, sess.Challenge.Token)
	assert.Equal(t, "b@example.com", sess.Challenge.Email)

	// Old token no longer matches.
	_, status := svc.Verify(sess, first)
	assert.Equal(t, VerifyMismatched, status)
}

func TestIssuePublishFailureIsNonFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newTestChallengeService(pub)
	sess := &session.Data{SID: "s1"}

	res, err := svc.Issue(context.Background(), sess, "a@example.com")
	require.NoError(t, err)
	assert.False(t, res.Dispatched)
	assert.NotNil(t, sess.Challenge, "challenge stands even when the email does not go out")
}

func TestIssueExposesLinkWhenConfigured(t *testing.T) {
	svc := NewChallengeService(&fakePublisher{}, nil, nil, 3*time.Minute, "http://localhost:8080/api/auth/login/verify", true)
	sess := &session.Data{SID: "s1"}

	res, err := svc.Issue(context.Background(), sess, "a@example.com")
	require.NoError(t, err)
	assert.Contains(t, res.VerifyLink, "http://localhost:8080/api/auth/login/verify?token=")
	assert.Contains(t, res.VerifyLink, sess.Challenge.Token)
}

func TestVerifyLifecycle(t *testing.T) {
	svc := newTestChallengeService(&fakePublisher{})
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	sess := &session.Data{SID: "s1"}
	_, err := svc.Issue(context.Background(), sess, "a@example.com")
	require.NoError(t, err)
	token := sess.Challenge.Token

	svc.now = func() time.Time { return base.Add(10 * time.Second) }
	email, status := svc.Verify(sess, token)
	assert.Equal(t, VerifyOK, status)
	assert.Equal(t, "a@example.com", email)
	assert.Nil(t, sess.Challenge, "consumed on first success")

	// Replay within the window is no longer accepted.
	_, status = svc.Verify(sess, token)
	assert.Equal(t, VerifyNoChallenge, status)
}

func TestVerifyExpiresAtWindowBoundary(t *testing.T) {
	svc := newTestChallengeService(&fakePublisher{})
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	sess := &session.Data{SID: "s1"}
	_, err := svc.Issue(context.Background(), sess, "a@example.com")
	require.NoError(t, err)
	token := sess.Challenge.Token

	// One second inside the window still verifies.
	svc.now = func() time.Time { return base.Add(3*time.Minute - time.Second) }
	sessCopy := *sess
	chCopy := *sess.Challenge
	sessCopy.Challenge = &chCopy
	_, status := svc.Verify(&sessCopy, token)
	assert.Equal(t, VerifyOK, status)

	// Exactly at the boundary it is expired.
	svc.now = func() time.Time { return base.Add(3 * time.Minute) }
	_, status = svc.Verify(sess, token)
	assert.Equal(t, VerifyExpired, status)
	assert.Nil(t, sess.Challenge)
}

func TestVerifyMismatch(t *testing.T) {
	svc := newTestChallengeService(&fakePublisher{})
	sess := &session.Data{SID: "s1"}
	_, err := svc.Issue(context.Background(), sess, "a@example.com")
	require.NoError(t, err)

	_, status := svc.Verify(sess, "wrong-token")
	assert.Equal(t, VerifyMismatched, status)
	assert.NotNil(t, sess.Challenge, "mismatch does not consume the challenge")

	_, status = svc.Verify(sess, "")
	assert.Equal(t, VerifyMismatched, status)
}

func TestVerifyWithoutChallenge(t *testing.T) {
	svc := newTestChallengeService(&fakePublisher{})
	_, status := svc.Verify(&session.Data{SID: "s1"}, "anything")
	assert.Equal(t, VerifyNoChallenge, status)
}
