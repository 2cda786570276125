package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/nurture/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureClientIDMintsOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(config.Config{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/signup", nil)

	id := m.EnsureClientID(c)
	_, err := ulid.ParseStrict(id)
	require.NoError(t, err)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, ClientCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	w2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(w2)
	c2.Request = httptest.NewRequest(http.MethodGet, "/signup", nil)
	c2.Request.AddCookie(&http.Cookie{Name: ClientCookieName, Value: id})

	assert.Equal(t, id, m.EnsureClientID(c2))
	assert.Empty(t, w2.Result().Cookies())
}

func TestEnsureClientIDReplacesGarbage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(config.Config{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/signup", nil)
	c.Request.AddCookie(&http.Cookie{Name: ClientCookieName, Value: "not-a-ulid"})

	id := m.EnsureClientID(c)
	assert.NotEqual(t, "not-a-ulid", id)
}

func TestTokenCookieRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(config.Config{AuthCookieSecure: true})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	m.Set(c, "tok", time.Now().Add(time.Hour))

	cookie := w.Result().Cookies()[0]
	assert.Equal(t, DefaultCookieName, cookie.Name)
	assert.True(t, cookie.Secure)

	c.Request.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "tok"})
	token, ok := m.ReadToken(c)
	assert.True(t, ok)
	assert.Equal(t, "tok", token)
}
