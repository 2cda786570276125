package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/nurture/internal/config"
	paymentdomain "github.com/smallbiznis/nurture/internal/payment/domain"
	"go.uber.org/zap"
)

const provider = "stripe"

// Adapter talks to the Stripe REST API and decodes Stripe webhooks.
type Adapter struct {
	log           *zap.Logger
	apiBaseURL    string
	secretKey     string
	webhookSecret string
	tolerance     time.Duration
	httpClient    *http.Client
	now           func() time.Time
}

func NewAdapter(cfg config.Config, log *zap.Logger) *Adapter {
	tolerance := cfg.Stripe.WebhookTolerance
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &Adapter{
		log:           log.Named("payment.stripe"),
		apiBaseURL:    strings.TrimRight(cfg.Stripe.APIBaseURL, "/"),
		secretKey:     cfg.Stripe.SecretKey,
		webhookSecret: cfg.Stripe.WebhookSecret,
		tolerance:     tolerance,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		now:           time.Now,
	}
}

func (a *Adapter) Provider() string {
	return provider
}

// CreateCheckoutSession creates a subscription-mode hosted checkout session.
func (a *Adapter) CreateCheckoutSession(ctx context.Context, req paymentdomain.CheckoutSessionRequest) (*paymentdomain.CheckoutSession, error) {
	if strings.TrimSpace(a.secretKey) == "" {
		return nil, paymentdomain.ErrMissingSecretKey
	}

	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", req.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	if req.ClientReferenceID != "" {
		form.Set("client_reference_id", req.ClientReferenceID)
		form.Set("metadata[user_id]", req.ClientReferenceID)
	}
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}
	if req.CustomerName != "" {
		form.Set("metadata[customer_name]", req.CustomerName)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBaseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.secretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr stripeErrorEnvelope
		_ = json.Unmarshal(body, &apiErr)
		a.log.Warn("checkout session rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("error_type", apiErr.Error.Type),
		)
		return nil, &paymentdomain.ProviderError{
			StatusCode: resp.StatusCode,
			Type:       apiErr.Error.Type,
			Message:    apiErr.Error.Message,
		}
	}

	var session stripeCheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}
	return &paymentdomain.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// Verify checks the Stripe-Signature header and rejects stale timestamps.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if strings.TrimSpace(a.webhookSecret) == "" {
		return paymentdomain.ErrMissingWebhookSecret
	}
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	ts, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	expected := Sign(a.webhookSecret, ts, payload)
	matched := false
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			matched = true
			break
		}
	}
	if !matched {
		return paymentdomain.ErrInvalidSignature
	}

	age := a.now().Sub(time.Unix(unix, 0))
	if age > a.tolerance || age < -a.tolerance {
		return paymentdomain.ErrSignatureExpired
	}
	return nil
}

// Sign computes the v1 signature for payload at timestamp ts.
func Sign(secret, ts string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(ts + "." + string(payload)))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader builds a Stripe-Signature header value.
func SignatureHeader(secret string, payload []byte, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", ts, Sign(secret, ts, payload))
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.ProviderEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case paymentdomain.EventCheckoutCompleted:
		return a.parseCheckoutSession(event, payload)
	case paymentdomain.EventSubscriptionCreated, paymentdomain.EventSubscriptionUpdated:
		return a.parseSubscription(event, payload)
	default:
		return &paymentdomain.ProviderEvent{
			Provider:        provider,
			ProviderEventID: event.ID,
			Type:            event.Type,
			OccurredAt:      timestamp(event.Created, 0),
			RawPayload:      payload,
		}, paymentdomain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	ClientReferenceID string `json:"client_reference_id"`
	Customer          string `json:"customer"`
	CustomerEmail     string `json:"customer_email"`
	Subscription      string `json:"subscription"`
	Created           int64  `json:"created"`
}

type stripeSubscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Created            int64  `json:"created"`
}

type stripeErrorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Adapter) parseCheckoutSession(event stripeEvent, payload []byte) (*paymentdomain.ProviderEvent, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	return &paymentdomain.ProviderEvent{
		Provider:        provider,
		ProviderEventID: event.ID,
		Type:            event.Type,
		UserID:          strings.TrimSpace(session.ClientReferenceID),
		CustomerID:      strings.TrimSpace(session.Customer),
		SubscriptionID:  strings.TrimSpace(session.Subscription),
		Status:          "active",
		OccurredAt:      timestamp(session.Created, event.Created),
		RawPayload:      payload,
	}, nil
}

func (a *Adapter) parseSubscription(event stripeEvent, payload []byte) (*paymentdomain.ProviderEvent, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(sub.Customer) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	return &paymentdomain.ProviderEvent{
		Provider:           provider,
		ProviderEventID:    event.ID,
		Type:               event.Type,
		CustomerID:         strings.TrimSpace(sub.Customer),
		SubscriptionID:     strings.TrimSpace(sub.ID),
		Status:             strings.TrimSpace(sub.Status),
		CurrentPeriodStart: optionalTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   optionalTime(sub.CurrentPeriodEnd),
		OccurredAt:         timestamp(sub.Created, event.Created),
		RawPayload:         payload,
	}, nil
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

func optionalTime(unix int64) *time.Time {
	if unix <= 0 {
		return nil
	}
	t := time.Unix(unix, 0).UTC()
	return &t
}

var (
	_ paymentdomain.Gateway        = (*Adapter)(nil)
	_ paymentdomain.WebhookAdapter = (*Adapter)(nil)
)
