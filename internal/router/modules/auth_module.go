package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/manuelcattigobetti/provaANPI/internal/container"
	handlers "github.com/manuelcattigobetti/provaANPI/internal/interface/http"
	"github.com/manuelcattigobetti/provaANPI/internal/interface/middleware"
)

// AuthModule wires the passwordless login flow.
// Public: GET /api/csrf, POST /api/auth/login/start, GET /api/auth/login/verify,
// POST /api/auth/register, POST /api/auth/logout
// Protected: GET /api/profile
type AuthModule struct {
	Handler *handlers.AuthHandler
}

func NewAuthModule(h *handlers.AuthHandler) *AuthModule {
	return &AuthModule{Handler: h}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Tight IP-based limits on the endpoints that trigger email or accept
	// guessable tokens.
	startLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	verifyLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	registerLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.GET("/csrf", m.Handler.CSRFToken)
	rg.POST("/auth/login/start", startLimiter, m.Handler.LoginStart)
	rg.GET("/auth/login/verify", verifyLimiter, m.Handler.LoginVerify)
	rg.POST("/auth/register", registerLimiter, m.Handler.Register)
	rg.POST("/auth/logout", m.Handler.Logout)

	auth := rg.Group("/")
	auth.Use(middleware.RequireAuth())
	{
		auth.GET("/profile", m.Handler.Profile)
	}
}
