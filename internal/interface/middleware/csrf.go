package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manuelcattigobetti/provaANPI/internal/audit"
	"github.com/manuelcattigobetti/provaANPI/internal/session"
	"github.com/manuelcattigobetti/provaANPI/pkg/response"
)

// CSRFHeader carries the per-session token on state-changing requests. The
// form field is accepted as a fallback for plain form posts.
const (
	CSRFHeader    = "X-CSRF-Token"
	CSRFFormField = "csrf_token"
)

// CSRF rejects state-changing methods whose presented token does not match
// the session's. Verification is constant-time and fails closed: a session
// that never fetched a token rejects everything.
func CSRF(auditLog *audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		sess, ok := SessionFromCtx(c)
		if !ok {
			response.AbortError[any](c, http.StatusForbidden, "csrf check failed", nil)
			return
		}

		presented := c.GetHeader(CSRFHeader)
		if presented == "" {
			presented = c.PostForm(CSRFFormField)
		}
		if !session.VerifyCSRF(sess, presented) {
			if auditLog != nil {
				auditLog.Error("csrf", "token mismatch on "+c.Request.Method+" "+c.FullPath())
			}
			response.AbortError[any](c, http.StatusForbidden, "csrf check failed", nil)
			return
		}
		c.Next()
	}
}
