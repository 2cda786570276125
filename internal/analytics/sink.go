// Package analytics captures product funnel events without blocking callers.
package analytics

import (
	"context"
	"time"
)

const (
	EventSignupStarted = "signup_started"
	EventSignupStep    = "signup_step"
)

// Event is one named capture keyed by a distinct visitor identifier.
type Event struct {
	Name       string         `json:"event"`
	DistinctID string         `json:"distinct_id"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Sink accepts events fire-and-forget. Capture never reports failure.
type Sink interface {
	Capture(ctx context.Context, event Event)
}

type noopSink struct{}

// Noop discards every event.
func Noop() Sink { return noopSink{} }

func (noopSink) Capture(context.Context, Event) {}
