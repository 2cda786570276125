// Package checkoutclient calls a remote create-checkout-session endpoint.
package checkoutclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	checkoutdomain "github.com/smallbiznis/nurture/internal/checkout/domain"
	obscontext "github.com/smallbiznis/nurture/internal/observability/context"
)

const createSessionPath = "/api/create-checkout-session"

// StatusError is a non-2xx response from the endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("checkout backend returned status %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error { return checkoutdomain.ErrBackendRejected }

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for baseURL. A nil httpClient gets a 15s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// CreateSession posts req and decodes the {sessionId, url} response.
func (c *Client) CreateSession(ctx context.Context, req checkoutdomain.Request) (*checkoutdomain.Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createSessionPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		httpReq.Header.Set("X-Request-Id", requestID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call checkout backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var session checkoutdomain.Session
	if err := json.Unmarshal(respBody, &session); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if session.SessionID == "" {
		return nil, checkoutdomain.ErrInvalidSession
	}
	return &session, nil
}
