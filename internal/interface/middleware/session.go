package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manuelcattigobetti/provaANPI/internal/session"
	"github.com/manuelcattigobetti/provaANPI/pkg/helpers"
	"github.com/manuelcattigobetti/provaANPI/pkg/response"
)

// sessionKey is the Gin context key holding the *session.Data for the request.
const sessionKey = "session"

// SessionFromCtx returns the session attached by Session. The boolean is false
// only when the middleware did not run.
func SessionFromCtx(c *gin.Context) (*session.Data, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	d, ok := v.(*session.Data)
	return d, ok
}

// Session resolves the session for the request cookie, creating a fresh
// anonymous one when the cookie is absent, unknown, or idle-expired. The
// session is touched and saved after the handler chain runs, and the cookie is
// (re)issued so the browser-side lifetime tracks the server-side one.
func Session(mgr *session.Manager, cookies *helpers.CookieManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		sid, _ := c.Cookie(helpers.SessionCookieName)
		sess, found, err := mgr.Load(ctx, sid)
		if err != nil {
			response.AbortError[any](c, http.StatusInternalServerError, "session store unavailable", nil)
			return
		}
		if !found {
			sess, err = mgr.Create(ctx)
			if err != nil {
				response.AbortError[any](c, http.StatusInternalServerError, "session store unavailable", nil)
				return
			}
		}
		cookies.SetSession(c, sess.SID)
		c.Set(sessionKey, sess)

		c.Next()

		// A handler that destroyed the session clears the context key.
		if _, ok := SessionFromCtx(c); !ok {
			return
		}
		mgr.Touch(sess)
		_ = mgr.Save(ctx, sess)
	}
}

// DropSession marks the session as destroyed so the post-handler save is
// skipped. Call after Manager.Destroy.
func DropSession(c *gin.Context) {
	c.Set(sessionKey, nil)
}
