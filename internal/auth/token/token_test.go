package token

import (
	"testing"
	"time"

	"github.com/smallbiznis/nurture/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T, secret string) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(config.Config{AuthJWTSecret: secret, AuthSessionTTL: time.Hour})
	require.NoError(t, err)
	return issuer
}

func TestIssueAndParse(t *testing.T) {
	issuer := newIssuer(t, "test-secret")
	raw, err := issuer.Issue("42", "7", "client-1", "a@b.com", time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "7", claims.SessionID)
	assert.Equal(t, "client-1", claims.ClientID)
	assert.Equal(t, "a@b.com", claims.Email)
}

func TestParseRejectsForeignSignature(t *testing.T) {
	raw, err := newIssuer(t, "one").Issue("42", "7", "c", "a@b.com", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = newIssuer(t, "two").Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	issuer := newIssuer(t, "test-secret")
	raw, err := issuer.Issue("42", "7", "c", "a@b.com", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuerRequiresSecretInProduction(t *testing.T) {
	_, err := NewIssuer(config.Config{Environment: "production"})
	assert.ErrorIs(t, err, ErrMissingSecret)
}
