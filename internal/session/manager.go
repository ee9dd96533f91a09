package session

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manuelcattigobetti/provaANPI/pkg/helpers"
)

const (
	keyPrefix = "sess:"
	tokenLen  = 32
)

// Manager stores sessions as JSON in Redis. Idle expiry is enforced on the
// wall clock via LastActivity; the Redis TTL is only a backstop that reclaims
// abandoned keys.
type Manager struct {
	rdb     *redis.Client
	idleTTL time.Duration

	now func() time.Time
}

func NewManager(rdb *redis.Client, idleTTL time.Duration) *Manager {
	return &Manager{rdb: rdb, idleTTL: idleTTL, now: time.Now}
}

// Create starts a fresh anonymous session with a new id.
func (m *Manager) Create(ctx context.Context) (*Data, error) {
	sid, err := helpers.GenToken(tokenLen)
	if err != nil {
		return nil, err
	}
	d := &Data{SID: sid, LastActivity: m.now()}
	if err := m.Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Load fetches the session for sid. A session idle past the timeout is
// destroyed and reported as absent, the same as an unknown id.
func (m *Manager) Load(ctx context.Context, sid string) (*Data, bool, error) {
	if sid == "" {
		return nil, false, nil
	}
	var d Data
	found, err := helpers.RedisGetJSON(ctx, m.rdb, keyPrefix+sid, &d)
	if err != nil || !found {
		return nil, false, err
	}
	if m.now().Sub(d.LastActivity) > m.idleTTL {
		if err := m.Destroy(ctx, sid); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return &d, true, nil
}

// Touch refreshes the idle clock. Call before Save on every authenticated or
// anonymous request that reaches the session layer.
func (m *Manager) Touch(d *Data) {
	d.LastActivity = m.now()
}

func (m *Manager) Save(ctx context.Context, d *Data) error {
	return helpers.RedisSetJSON(ctx, m.rdb, keyPrefix+d.SID, d, m.idleTTL)
}

func (m *Manager) Destroy(ctx context.Context, sid string) error {
	return helpers.RedisDel(ctx, m.rdb, keyPrefix+sid)
}

// EnsureCSRF returns the session's CSRF token, minting one on first use.
// Repeated calls within the same session return the same value.
func (m *Manager) EnsureCSRF(d *Data) (string, error) {
	if d.CSRFToken != "" {
		return d.CSRFToken, nil
	}
	tok, err := helpers.GenToken(tokenLen)
	if err != nil {
		return "", err
	}
	d.CSRFToken = tok
	return tok, nil
}

// VerifyCSRF compares in constant time and fails closed: a session without a
// minted token rejects every presented value.
func VerifyCSRF(d *Data, presented string) bool {
	if d.CSRFToken == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(d.CSRFToken), []byte(presented)) == 1
}
