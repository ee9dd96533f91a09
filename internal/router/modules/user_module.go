package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/manuelcattigobetti/provaANPI/internal/container"
	handlers "github.com/manuelcattigobetti/provaANPI/internal/interface/http"
	"github.com/manuelcattigobetti/provaANPI/internal/interface/middleware"
)

// UserModule wires the admin-only user management routes under /api/users.
type UserModule struct {
	Handler *handlers.UserHandler
}

func NewUserModule(h *handlers.UserHandler) *UserModule {
	return &UserModule{Handler: h}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/users")
	admin.Use(
		middleware.RequireAdmin(),
		middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyBySession(), middleware.AllowPrivateIP()),
	)
	{
		admin.GET("", m.Handler.List)
		admin.GET("/search", m.Handler.Search)
		admin.GET("/:id", m.Handler.Get)
		admin.PUT("/:id", m.Handler.Update)
		admin.DELETE("/:id", m.Handler.Delete)
	}
}
