package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manuelcattigobetti/provaANPI/internal/application"
	"github.com/manuelcattigobetti/provaANPI/internal/audit"
	"github.com/manuelcattigobetti/provaANPI/internal/domain/entity"
	"github.com/manuelcattigobetti/provaANPI/internal/domain/repository"
	"github.com/manuelcattigobetti/provaANPI/internal/interface/middleware"
	"github.com/manuelcattigobetti/provaANPI/internal/session"
	"github.com/manuelcattigobetti/provaANPI/pkg/helpers"
	"github.com/manuelcattigobetti/provaANPI/pkg/validation"
)

// memRepo is a minimal in-memory UserRepository for routing tests.
type memRepo struct {
	nextID int64
	users  map[int64]*entity.User
}

func newMemRepo() *memRepo { return &memRepo{nextID: 1, users: map[int64]*entity.User{}} }

func (r *memRepo) Create(_ context.Context, u *entity.User) error {
	for _, e := range r.users {
		if e.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	u.ID = r.nextID
	r.nextID++
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id int64) (*entity.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRepo) ListAll(_ context.Context) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memRepo) Update(_ context.Context, u *entity.User) error {
	if _, ok := r.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type capturingPublisher struct{ jobs []any }

func (p *capturingPublisher) PublishJSON(_ context.Context, body any) error {
	p.jobs = append(p.jobs, body)
	return nil
}

type testEnv struct {
	engine   *gin.Engine
	repo     *memRepo
	pub      *capturingPublisher
	userLog  string
	errorLog string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	dir := t.TempDir()
	env := &testEnv{
		repo:     newMemRepo(),
		pub:      &capturingPublisher{},
		userLog:  filepath.Join(dir, "users.log"),
		errorLog: filepath.Join(dir, "errors.log"),
	}

	auditLog := audit.New(env.errorLog, env.userLog, nil)
	sessions := session.NewManager(rdb, 30*time.Minute)
	cookies := helpers.NewCookie("localhost", false, 1800)

	users := application.NewUserService(env.repo, nil, nil)
	challenges := application.NewChallengeService(env.pub, auditLog, nil,
		3*time.Minute, "http://localhost:8080/api/auth/login/verify", true)

	h := NewAuthHandler(users, challenges, sessions, cookies, auditLog, helpers.NewLogger("test", "development"))
	uh := NewUserHandler(users, auditLog, helpers.NewLogger("test", "development"))

	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.Session(sessions, cookies), middleware.CSRF(auditLog))

	api.GET("/csrf", h.CSRFToken)
	api.POST("/auth/login/start", h.LoginStart)
	api.GET("/auth/login/verify", h.LoginVerify)
	api.POST("/auth/register", h.Register)
	api.POST("/auth/logout", h.Logout)

	auth := api.Group("/")
	auth.Use(middleware.RequireAuth())
	auth.GET("/profile", h.Profile)

	admin := api.Group("/users")
	admin.Use(middleware.RequireAdmin())
	admin.GET("", uh.List)
	admin.GET("/:id", uh.Get)
	admin.PUT("/:id", uh.Update)
	admin.DELETE("/:id", uh.Delete)

	env.engine = r
	return env
}

// client keeps the session cookie across requests, like a browser would.
type client struct {
	t      *testing.T
	env    *testEnv
	cookie *http.Cookie
	csrf   string
}

func (c *client) do(method, path string, body any, withCSRF bool) *httptest.ResponseRecorder {
	c.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if withCSRF {
		req.Header.Set(middleware.CSRFHeader, c.csrf)
	}
	w := httptest.NewRecorder()
	c.env.engine.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.Name == helpers.SessionCookieName && ck.Value != "" {
			c.cookie = ck
		}
	}
	return w
}

func (c *client) fetchCSRF() {
	c.t.Helper()
	w := c.do(http.MethodGet, "/api/csrf", nil, false)
	require.Equal(c.t, http.StatusOK, w.Code)
	var env struct {
		Data struct {
			CSRFToken string `json:"csrf_token"`
		} `json:"data"`
	}
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotEmpty(c.t, env.Data.CSRFToken)
	c.csrf = env.Data.CSRFToken
}

func (c *client) verifyLink(w *httptest.ResponseRecorder) string {
	c.t.Helper()
	var env struct {
		Data struct {
			VerifyLink string `json:"verify_link"`
		} `json:"data"`
	}
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotEmpty(c.t, env.Data.VerifyLink)
	u, err := url.Parse(env.Data.VerifyLink)
	require.NoError(c.t, err)
	return "/api/auth/login/verify?token=" + url.QueryEscape(u.Query().Get("token"))
}

func TestCSRFRejectsStateChangesWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	c := &client{t: t, env: env}

	w := c.do(http.MethodPost, "/api/auth/login/start", gin.H{"email": "a@example.com"}, false)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Even a session that fetched its token must actually present it.
	c.fetchCSRF()
	w = c.do(http.MethodPost, "/api/auth/login/start", gin.H{"email": "a@example.com"}, false)
	assert.Equal(t, http.StatusForbidden, w.Code)

	b, err := os.ReadFile(env.errorLog)
	require.NoError(t, err)
	assert.Contains(t, string(b), "[csrf]")
}

func TestCSRFTokenStablePerSession(t *testing.T) {
	env := newTestEnv(t)
	c := &client{t: t, env: env}

	c.fetchCSRF()
	first := c.csrf
	c.fetchCSRF()
	assert.Equal(t, first, c.csrf)
}

func TestFullRegistrationAndLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	c := &client{t: t, env: env}
	c.fetchCSRF()

	// Start login for an unknown address.
	w := c.do(http.MethodPost, "/api/auth/login/start", gin.H{"email": "Mario.Rossi@Example.com"}, true)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, env.pub.jobs, 1)

	// Follow the mailed link: verified but not registered yet.
	w = c.do(http.MethodGet, c.verifyLink(w), nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"registration_required":true`)

	// Register with a different email: refused.
	w = c.do(http.MethodPost, "/api/auth/register", gin.H{
		"surname": "rossi", "given_name": "mario",
		"date_of_birth": "1980-05-12", "email": "other@example.com",
	}, true)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Register with the verified email: account created and logged in.
	w = c.do(http.MethodPost, "/api/auth/register", gin.H{
		"surname": "rossi", "given_name": "mario",
		"date_of_birth": "1980-05-12", "email": "mario.rossi@example.com",
	}, true)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"surname":"Rossi"`)

	// Profile now works.
	w = c.do(http.MethodGet, "/api/profile", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mario.rossi@example.com")

	// CONNECT audited exactly once despite repeated profile loads.
	c.do(http.MethodGet, "/api/profile", nil, false)
	b, err := os.ReadFile(env.userLog)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(b), "CONNECT"))

	// Logout writes DISCONNECT and kills the session.
	w = c.do(http.MethodPost, "/api/auth/logout", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	b, err = os.ReadFile(env.userLog)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(b), "DISCONNECT"))

	w = c.do(http.MethodGet, "/api/profile", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginVerifyForExistingUser(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.repo.Create(context.Background(), &entity.User{
		Surname: "Rossi", GivenName: "Mario",
		DateOfBirth: time.Date(1980, 5, 12, 0, 0, 0, 0, time.UTC),
		Email:       "mario.rossi@example.com", Level: entity.LevelAdmin,
	}))

	c := &client{t: t, env: env}
	c.fetchCSRF()

	w := c.do(http.MethodPost, "/api/auth/login/start", gin.H{"email": "mario.rossi@example.com"}, true)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = c.do(http.MethodGet, c.verifyLink(w), nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"logged_in":true`)

	// The link is consumed: replaying it fails.
	w = c.do(http.MethodGet, "/api/auth/login/verify?token=whatever", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Admin endpoints are reachable at level 5.
	w = c.do(http.MethodGet, "/api/users", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBogusVerifyTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	c := &client{t: t, env: env}
	c.fetchCSRF()

	w := c.do(http.MethodPost, "/api/auth/login/start", gin.H{"email": "a@example.com"}, true)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = c.do(http.MethodGet, "/api/auth/login/verify?token=forged", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	b, err := os.ReadFile(env.errorLog)
	require.NoError(t, err)
	assert.Contains(t, string(b), "challenge token mismatch")
	// The token value itself never reaches the audit log.
	assert.NotContains(t, string(b), "forged")
}

func TestVerifyWithoutPendingChallengeIsAudited(t *testing.T) {
	env := newTestEnv(t)
	c := &client{t: t, env: env}

	// Fresh session, no login started.
	w := c.do(http.MethodGet, "/api/auth/login/verify?token=abc123", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	b, err := os.ReadFile(env.errorLog)
	require.NoError(t, err)
	assert.Contains(t, string(b), "[login] no challenge outstanding")
	assert.NotContains(t, string(b), "abc123")
}

func TestAdminGuard(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.repo.Create(context.Background(), &entity.User{
		Surname: "Bianchi", GivenName: "Luigi",
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Email:       "luigi@example.com", Level: entity.LevelMember,
	}))

	c := &client{t: t, env: env}
	c.fetchCSRF()

	// Anonymous: unauthorized.
	w := c.do(http.MethodGet, "/api/users", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Log in as a plain member.
	w = c.do(http.MethodPost, "/api/auth/login/start", gin.H{"email": "luigi@example.com"}, true)
	require.Equal(t, http.StatusAccepted, w.Code)
	w = c.do(http.MethodGet, c.verifyLink(w), nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	// Member level is not enough.
	w = c.do(http.MethodGet, "/api/users", nil, false)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
