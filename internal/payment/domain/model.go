package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrSignatureExpired      = errors.New("signature_expired")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrMissingWebhookSecret  = errors.New("webhook_secret_missing")
	ErrMissingSecretKey      = errors.New("provider_secret_key_missing")
)

// ProviderError carries a non-success provider response. Message is provider text
// and must never reach the browser.
type ProviderError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *ProviderError) Error() string {
	return "payment provider error: " + e.Type + ": " + e.Message
}

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
)

// EventRecord is one received provider event, unique per provider event ID.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_webhook_events_provider_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_webhook_events_provider_event"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "webhook_events" }

// ProviderEvent is the canonical subscription event parsed by adapters.
type ProviderEvent struct {
	Provider           string
	ProviderEventID    string
	Type               string
	UserID             string
	CustomerID         string
	SubscriptionID     string
	Status             string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	OccurredAt         time.Time
	RawPayload         []byte
}

// CheckoutSessionRequest asks the provider for a hosted subscription checkout.
type CheckoutSessionRequest struct {
	PriceID           string
	ClientReferenceID string
	CustomerEmail     string
	CustomerName      string
	SuccessURL        string
	CancelURL         string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Gateway creates checkout sessions at the payment provider.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
}

// WebhookAdapter authenticates and decodes provider webhooks.
type WebhookAdapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*ProviderEvent, error)
}

// EventHandler applies a verified event to local state.
type EventHandler interface {
	Apply(ctx context.Context, event *ProviderEvent) error
}

type Repository interface {
	InsertEvent(ctx context.Context, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, provider, providerEventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, id snowflake.ID, processedAt time.Time) error
}

type Service interface {
	IngestWebhook(ctx context.Context, payload []byte, headers http.Header) (*IngestResult, error)
}

type IngestResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Ignored   bool   `json:"ignored"`
	Duplicate bool   `json:"duplicate"`
}
