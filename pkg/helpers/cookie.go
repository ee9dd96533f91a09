package helpers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionCookieName is the transport-level carrier of the opaque session id.
const SessionCookieName = "session_id"

// CookieManager writes and clears the session cookie with the attributes the
// portal requires: path "/", HttpOnly, SameSite=Lax, Secure when configured.
type CookieManager struct {
	Domain string
	Secure bool
	MaxAge int // seconds; matches the server-side idle lifetime
}

func NewCookie(domain string, secure bool, maxAge int) *CookieManager {
	return &CookieManager{Domain: domain, Secure: secure, MaxAge: maxAge}
}

func (m *CookieManager) SetSession(c *gin.Context, sid string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, sid, m.MaxAge, "/", m.Domain, m.Secure, true)
}

// ClearSession expires the cookie immediately.
func (m *CookieManager) ClearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", m.Domain, m.Secure, true)
}
