package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manuelcattigobetti/provaANPI/internal/domain/entity"
	"github.com/manuelcattigobetti/provaANPI/pkg/response"
)

// RequireAuth rejects requests whose session carries no logged-in user.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFromCtx(c)
		if !ok || !sess.Authenticated() {
			response.AbortError[any](c, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		c.Next()
	}
}

// RequireAdmin additionally requires the highest member level.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFromCtx(c)
		if !ok || !sess.Authenticated() {
			response.AbortError[any](c, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		if sess.Level != entity.LevelAdmin {
			response.AbortError[any](c, http.StatusForbidden, "admin access required", nil)
			return
		}
		c.Next()
	}
}
