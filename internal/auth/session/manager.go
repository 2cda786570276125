package session

import (
	"crypto/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/nurture/internal/config"
)

const (
	DefaultCookieName = "_sid"
	ClientCookieName  = "_cid"

	clientCookieMaxAge = 365 * 24 * 60 * 60
)

// Manager manages the access token and browser client cookies.
type Manager struct {
	cookieName string
	secure     bool
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{
		cookieName: DefaultCookieName,
		secure:     cfg.AuthCookieSecure,
	}
}

func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	token, err := c.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

func (m *Manager) Set(c *gin.Context, value string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, maxAge, "/", "", m.secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}

// EnsureClientID returns the browser's client ID, minting and setting one when absent
// or malformed.
func (m *Manager) EnsureClientID(c *gin.Context) string {
	if raw, err := c.Cookie(ClientCookieName); err == nil {
		if id, err := ulid.ParseStrict(strings.TrimSpace(raw)); err == nil {
			return id.String()
		}
	}

	id := ulid.MustNew(ulid.Now(), rand.Reader).String()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ClientCookieName, id, clientCookieMaxAge, "/", "", m.secure, true)
	return id
}
