// Package notify turns orchestration outcomes into the short messages shown to the user.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/nurture/internal/clock"
	obslogger "github.com/smallbiznis/nurture/internal/observability/logger"
	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeInvalidEmail   Outcome = "invalid_email"
	OutcomeWeakPassword   Outcome = "weak_password"
	OutcomeAccountFailed  Outcome = "account_failed"
	OutcomeInvalidDetails Outcome = "invalid_details"
	OutcomeProfileFailed  Outcome = "profile_failed"
	OutcomeCheckoutFailed Outcome = "checkout_failed"
	OutcomeSignedIn       Outcome = "signed_in"
	OutcomeSignInFailed   Outcome = "sign_in_failed"
	OutcomeSignedOut      Outcome = "signed_out"
	OutcomeSignOutFailed  Outcome = "sign_out_failed"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

var messages = map[Outcome]struct {
	level Level
	text  string
}{
	OutcomeInvalidEmail:   {LevelError, "Please enter a valid email address"},
	OutcomeWeakPassword:   {LevelError, "Please choose a stronger password"},
	OutcomeAccountFailed:  {LevelError, "Failed to create account"},
	OutcomeInvalidDetails: {LevelError, "Please check your details"},
	OutcomeProfileFailed:  {LevelError, "Failed to save details"},
	OutcomeCheckoutFailed: {LevelError, "Failed to start checkout"},
	OutcomeSignedIn:       {LevelSuccess, "Successfully signed in"},
	OutcomeSignInFailed:   {LevelError, "Error signing in"},
	OutcomeSignedOut:      {LevelSuccess, "Successfully signed out"},
	OutcomeSignOutFailed:  {LevelError, "Error signing out"},
}

// Message returns the fixed user facing text for outcome.
func Message(outcome Outcome) (Level, string, bool) {
	m, ok := messages[outcome]
	return m.level, m.text, ok
}

// Notice is one message waiting to be shown.
type Notice struct {
	Outcome   Outcome   `json:"outcome"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink receives orchestration outcomes. attempt identifies one submission; an
// outcome is reported at most once per attempt.
type Sink interface {
	Notify(ctx context.Context, attempt string, outcome Outcome, err error)
}

const seenLimit = 256

// Inbox buffers notices for one browser client until the UI drains them.
type Inbox struct {
	log   *zap.Logger
	clock clock.Clock

	mu      sync.Mutex
	pending []Notice
	seen    map[string]struct{}
}

func NewInbox(log *zap.Logger, clk clock.Clock) *Inbox {
	if clk == nil {
		clk = clock.System()
	}
	return &Inbox{
		log:   log.Named("notify.inbox"),
		clock: clk,
		seen:  make(map[string]struct{}),
	}
}

func (i *Inbox) Notify(ctx context.Context, attempt string, outcome Outcome, err error) {
	level, text, ok := Message(outcome)
	if !ok {
		obslogger.WithContext(ctx, i.log).DPanic("unmapped outcome", zap.String("outcome", string(outcome)))
		return
	}
	if err != nil {
		obslogger.WithContext(ctx, i.log).Warn("signup outcome failed",
			zap.String("attempt", attempt),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	key := attempt + "|" + string(outcome)
	if _, dup := i.seen[key]; dup {
		return
	}
	if len(i.seen) >= seenLimit {
		i.seen = make(map[string]struct{})
	}
	i.seen[key] = struct{}{}

	// identical pending notices collapse into one toast
	for _, n := range i.pending {
		if n.Outcome == outcome {
			return
		}
	}
	i.pending = append(i.pending, Notice{
		Outcome:   outcome,
		Level:     level,
		Message:   text,
		CreatedAt: i.clock.Now().UTC(),
	})
}

// Drain returns and clears the pending notices, oldest first.
func (i *Inbox) Drain() []Notice {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.pending
	i.pending = nil
	if out == nil {
		return []Notice{}
	}
	return out
}

// Pending reports how many notices are waiting.
func (i *Inbox) Pending() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.pending)
}

var _ Sink = (*Inbox)(nil)
