package domain

import (
	"context"
	"errors"
)

// Request is the body of POST /api/create-checkout-session.
type Request struct {
	PriceID string `json:"priceId"`
	UserID  string `json:"userId,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Session identifies a hosted checkout created by the payment provider.
type Session struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url,omitempty"`
}

// Service creates checkout sessions against the payment provider.
type Service interface {
	CreateSession(ctx context.Context, req Request) (*Session, error)
}

// Backend is what the signup flow calls to obtain a checkout session. It is
// either the in-process Service or an HTTP client for a remote endpoint.
type Backend interface {
	CreateSession(ctx context.Context, req Request) (*Session, error)
}

// Bridge hands the browser off to the hosted checkout page. Completion is
// observed only through provider webhooks.
type Bridge interface {
	Handoff(ctx context.Context, session *Session) (string, error)
}

var (
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrMissingCustomer = errors.New("missing_customer")
	ErrInvalidSession  = errors.New("invalid_checkout_session")
	ErrBackendRejected = errors.New("checkout_backend_rejected")
)
