package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/smallbiznis/nurture/internal/checkout/domain"
)

// HostedBridge redirects to the provider's hosted checkout page.
type HostedBridge struct {
	baseURL string
}

func NewHostedBridge(baseURL string) *HostedBridge {
	return &HostedBridge{baseURL: strings.TrimRight(baseURL, "/")}
}

// Handoff returns the redirect target for session. A URL issued by the
// provider wins over one derived from the session identifier.
func (b *HostedBridge) Handoff(_ context.Context, session *domain.Session) (string, error) {
	if session == nil || strings.TrimSpace(session.SessionID) == "" {
		return "", domain.ErrInvalidSession
	}
	if session.URL != "" {
		return session.URL, nil
	}
	if b.baseURL == "" {
		return "", domain.ErrInvalidSession
	}
	return b.baseURL + "/" + url.PathEscape(session.SessionID), nil
}
