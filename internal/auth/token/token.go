// Package token issues and verifies the HS256 access tokens handed to browsers.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/nurture/internal/config"
)

const issuer = "nurture"

var (
	ErrMissingSecret = errors.New("auth jwt secret is not configured")
	ErrInvalidToken  = errors.New("invalid access token")
)

// Claims carried by an access token.
type Claims struct {
	SessionID string `json:"sid"`
	ClientID  string `json:"cid"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and parses access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(cfg config.Config) (*Issuer, error) {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		if cfg.IsProduction() {
			return nil, ErrMissingSecret
		}
		secret = "nurture-development-secret"
	}
	ttl := cfg.AuthSessionTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue returns a signed token for the given subject.
func (i *Issuer) Issue(userID, sessionID, clientID, email string, expiresAt time.Time) (string, error) {
	now := i.now().UTC()
	claims := Claims{
		SessionID: sessionID,
		ClientID:  clientID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Parse validates signature, issuer and expiry.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(i.now),
	)
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
