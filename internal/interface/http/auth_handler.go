package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/manuelcattigobetti/provaANPI/internal/application"
	"github.com/manuelcattigobetti/provaANPI/internal/audit"
	"github.com/manuelcattigobetti/provaANPI/internal/interface/middleware"
	"github.com/manuelcattigobetti/provaANPI/internal/session"
	"github.com/manuelcattigobetti/provaANPI/pkg/helpers"
	"github.com/manuelcattigobetti/provaANPI/pkg/response"
	"github.com/manuelcattigobetti/provaANPI/pkg/validation"
)

type AuthHandler struct {
	Users      *application.UserService
	Challenges *application.ChallengeService
	Sessions   *session.Manager
	Cookies    *helpers.CookieManager
	Audit      *audit.Logger
	Logger     *logrus.Logger
}

func NewAuthHandler(users *application.UserService, challenges *application.ChallengeService,
	sessions *session.Manager, cookies *helpers.CookieManager,
	auditLog *audit.Logger, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		Users: users, Challenges: challenges, Sessions: sessions,
		Cookies: cookies, Audit: auditLog, Logger: logger,
	}
}

func (h *AuthHandler) sess(c *gin.Context) (*session.Data, bool) {
	sess, ok := middleware.SessionFromCtx(c)
	if !ok {
		response.Error[any](c, http.StatusInternalServerError, "session unavailable", nil)
	}
	return sess, ok
}

// CSRFToken GET /api/csrf
// Returns the per-session CSRF token, minting it on first call.
func (h *AuthHandler) CSRFToken(c *gin.Context) {
	sess, ok := h.sess(c)
	if !ok {
		return
	}
	token, err := h.Sessions.EnsureCSRF(sess)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "could not issue token", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"csrf_token": token}, "ok", nil)
}

type loginStartRequest struct {
	Email string `json:"email" binding:"required"`
}

type loginStartResponse struct {
	Dispatched bool   `json:"dispatched"`
	VerifyLink string `json:"verify_link,omitempty"`
}

// LoginStart POST /api/auth/login/start
// Issues a login challenge for the address and mails the verify link. Always
// 202 on a well-formed address: whether the mailbox exists is not revealed.
func (h *AuthHandler) LoginStart(c *gin.Context) {
	sess, ok := h.sess(c)
	if !ok {
		return
	}
	var req loginStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid request body", validation.ToDetails(err))
		return
	}

	res, err := h.Challenges.Issue(c.Request.Context(), sess, req.Email)
	if err != nil {
		if ve, ok := application.AsValidation(err); ok {
			response.Error[any](c, http.StatusBadRequest, ve.Reason, gin.H{"field": ve.Field})
			return
		}
		response.Error[any](c, http.StatusInternalServerError, "could not start login", nil)
		return
	}
	response.Success(c, http.StatusAccepted, loginStartResponse{
		Dispatched: res.Dispatched,
		VerifyLink: res.VerifyLink,
	}, "check your inbox", nil)
}

// LoginVerify GET /api/auth/login/verify?token=
// Completes the challenge round trip. A verified address with an account logs
// the session in; one without is left marked for registration. Failures are
// audited and never destroy the session.
func (h *AuthHandler) LoginVerify(c *gin.Context) {
	sess, ok := h.sess(c)
	if !ok {
		return
	}

	email, status := h.Challenges.Verify(sess, c.Query("token"))
	switch status {
	case application.VerifyOK:
		// fall through below
	case application.VerifyExpired:
		h.Audit.Error("login", "challenge expired for session")
		response.Error[any](c, http.StatusUnauthorized, "login link expired", nil)
		return
	case application.VerifyMismatched:
		h.Audit.Error("login", "challenge token mismatch")
		response.Error[any](c, http.StatusUnauthorized, "invalid login link", nil)
		return
	default:
		h.Audit.Error("login", "no challenge outstanding")
		response.Error[any](c, http.StatusUnauthorized, "no login in progress", nil)
		return
	}

	u, err := h.Users.GetByEmail(c.Request.Context(), email)
	if errors.Is(err, application.ErrNotFound) {
		sess.VerifiedEmail = email
		response.Success(c, http.StatusOK, gin.H{
			"registration_required": true,
			"email":                 email,
		}, "email verified, registration required", nil)
		return
	}
	if err != nil {
		h.Audit.Error("login", "user lookup failed after verification")
		response.Error[any](c, http.StatusInternalServerError, "login failed", nil)
		return
	}

	sess.Login(u.ID, u.Surname, u.GivenName, u.Email, u.Level)
	h.logConnect(sess)
	response.Success(c, http.StatusOK, gin.H{"logged_in": true, "user": toUserView(u)}, "welcome back", nil)
}

type registerRequest struct {
	Surname     string `json:"surname" binding:"required,persname"`
	GivenName   string `json:"given_name" binding:"required,persname"`
	DateOfBirth string `json:"date_of_birth" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
}

// Register POST /api/auth/register
// Creates the account for an address the session has already proven ownership
// of. The submitted email must match the verified one exactly after
// normalization.
func (h *AuthHandler) Register(c *gin.Context) {
	sess, ok := h.sess(c)
	if !ok {
		return
	}
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid request body", validation.ToDetails(err))
		return
	}

	if sess.VerifiedEmail == "" {
		response.Error[any](c, http.StatusForbidden, "email not verified", nil)
		return
	}
	norm, err := validation.NormalizeEmail(req.Email, 100)
	if err != nil || norm != sess.VerifiedEmail {
		h.Audit.Error("register", "submitted email does not match verified address")
		response.Error[any](c, http.StatusForbidden, "email does not match the verified address", nil)
		return
	}

	u, err := h.Users.Register(c.Request.Context(), application.UserInput{
		Surname:     req.Surname,
		GivenName:   req.GivenName,
		DateOfBirth: req.DateOfBirth,
		Email:       req.Email,
	})
	if err != nil {
		writeUserError(c, h.Audit, err)
		return
	}

	sess.Login(u.ID, u.Surname, u.GivenName, u.Email, u.Level)
	h.logConnect(sess)
	response.Success(c, http.StatusCreated, toUserView(u), "registered", nil)
}

// Logout POST /api/auth/logout
// Destroys the session and expires the cookie. Idempotent for anonymous
// sessions.
func (h *AuthHandler) Logout(c *gin.Context) {
	sess, ok := h.sess(c)
	if !ok {
		return
	}
	if sess.Authenticated() {
		h.Audit.UserEvent(audit.EventDisconnect, sess.Snapshot())
	}
	if err := h.Sessions.Destroy(c.Request.Context(), sess.SID); err != nil {
		h.Logger.WithError(err).Warn("session destroy failed")
	}
	middleware.DropSession(c)
	h.Cookies.ClearSession(c)
	response.Success[any](c, http.StatusOK, nil, "logged out", nil)
}

// Profile GET /api/profile
// Returns the current user, re-read from storage so admin edits show up.
func (h *AuthHandler) Profile(c *gin.Context) {
	sess, ok := h.sess(c)
	if !ok {
		return
	}
	u, err := h.Users.GetByID(c.Request.Context(), sess.UserID)
	if errors.Is(err, application.ErrNotFound) {
		// Account deleted while the session was alive.
		_ = h.Sessions.Destroy(c.Request.Context(), sess.SID)
		middleware.DropSession(c)
		h.Cookies.ClearSession(c)
		response.Error[any](c, http.StatusUnauthorized, "account no longer exists", nil)
		return
	}
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "could not load profile", nil)
		return
	}
	response.Success(c, http.StatusOK, toUserView(u), "ok", nil)
}

// logConnect appends the CONNECT audit record once per session.
func (h *AuthHandler) logConnect(sess *session.Data) {
	if sess.ConnectLogged {
		return
	}
	h.Audit.UserEvent(audit.EventConnect, sess.Snapshot())
	sess.ConnectLogged = true
}
