package domain

import (
	"context"
	"time"
)

// Service is the local auth provider.
type Service interface {
	// SignUp creates the account and a session for the client. It publishes
	// EventUserUpdated so an open signup wizard keeps running.
	SignUp(ctx context.Context, req SignUpRequest) (*AuthResult, error)
	// SignIn publishes EventSignedIn on success.
	SignIn(ctx context.Context, req SignInRequest) (*AuthResult, error)
	// SignOut revokes every session of the client and publishes EventSignedOut.
	SignOut(ctx context.Context, clientID string) error
	// GetSession returns the client's current identity, or nil when it has none.
	GetSession(ctx context.Context, clientID string) (*Identity, error)
	// Authenticate resolves an access token issued by SignUp or SignIn.
	Authenticate(ctx context.Context, rawToken string) (*Identity, error)
}

type SignUpRequest struct {
	ClientID  string
	Email     string
	Password  string
	Metadata  map[string]any
	UserAgent string
	IPAddress string
}

type SignInRequest struct {
	ClientID  string
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type AuthResult struct {
	Identity    Identity
	AccessToken string
	ExpiresAt   time.Time
}
