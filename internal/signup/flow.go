package signup

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smallbiznis/nurture/internal/authstate"
	"github.com/smallbiznis/nurture/internal/clock"
	"github.com/smallbiznis/nurture/internal/config"
	"github.com/smallbiznis/nurture/internal/notify"
	obslogger "github.com/smallbiznis/nurture/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/nurture/internal/observability/metrics"
	"github.com/smallbiznis/nurture/internal/wizard"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrMissingClientID = errors.New("missing client id")

const defaultFlowIdleTTL = 30 * time.Minute

// Flow is one browser client's signup state: its session store, dialog and
// pending notices.
type Flow struct {
	ClientID string
	Session  *authstate.Store
	Wizard   *wizard.Controller
	Inbox    *notify.Inbox

	mu       sync.Mutex
	lastSeen time.Time
}

func (f *Flow) touch(now time.Time) {
	f.mu.Lock()
	f.lastSeen = now
	f.mu.Unlock()
}

// idle reports whether the dialog is closed and nobody used the flow since cutoff.
func (f *Flow) idle(cutoff time.Time) bool {
	closedAt, closed := f.Wizard.IdleSince()
	if !closed || closedAt.After(cutoff) {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.lastSeen.After(cutoff)
}

// Close ends the flow's auth subscription and dismisses the dialog.
func (f *Flow) Close() {
	f.Wizard.Close()
	f.Session.Close()
}

type RegistryParams struct {
	fx.In

	Log         *zap.Logger
	Config      config.Config
	Provider    authstate.Provider
	Subscriber  authstate.Subscriber
	Clock       clock.Clock             `optional:"true"`
	HTTPMetrics *obsmetrics.HTTPMetrics `optional:"true"`
}

// Registry creates flows lazily, one per client ID.
type Registry struct {
	log        *zap.Logger
	provider   authstate.Provider
	subscriber authstate.Subscriber
	gauge      *obsmetrics.HTTPMetrics
	ttl        time.Duration
	clock      clock.Clock

	mu     sync.Mutex
	flows  map[string]*Flow
	closed bool
}

func NewRegistry(p RegistryParams) *Registry {
	ttl := p.Config.Signup.FlowIdleTTL
	if ttl <= 0 {
		ttl = defaultFlowIdleTTL
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &Registry{
		log:        p.Log.Named("signup.registry"),
		provider:   p.Provider,
		subscriber: p.Subscriber,
		gauge:      p.HTTPMetrics,
		ttl:        ttl,
		clock:      clk,
		flows:      make(map[string]*Flow),
	}
}

// Get returns the client's flow, creating and starting it on first use.
func (r *Registry) Get(ctx context.Context, clientID string) (*Flow, error) {
	if clientID == "" {
		return nil, ErrMissingClientID
	}

	now := r.clock.Now()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, context.Canceled
	}
	// touched under r.mu so a concurrent Reap cannot dispose it
	if flow, ok := r.flows[clientID]; ok {
		flow.touch(now)
		r.mu.Unlock()
		return flow, nil
	}

	inbox := notify.NewInbox(r.log, r.clock)
	flow := &Flow{
		ClientID: clientID,
		Session:  authstate.New(r.log, clientID, r.provider, r.subscriber, inbox),
		Wizard:   wizard.NewController(r.clock),
		Inbox:    inbox,
		lastSeen: now,
	}
	flow.Session.BindModal(flow.Wizard)
	r.flows[clientID] = flow
	active := len(r.flows)
	r.mu.Unlock()

	r.report(active)

	// A failed fetch leaves the store anonymous; the flow stays usable.
	if err := flow.Session.Start(ctx); err != nil {
		obslogger.WithContext(ctx, r.log).Warn("session store started without a session", zap.String("client_id", clientID), zap.Error(err))
	}
	return flow, nil
}

// Lookup returns an existing flow without creating one.
func (r *Registry) Lookup(clientID string) (*Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flow, ok := r.flows[clientID]
	return flow, ok
}

// Now is the registry's clock reading, used by the reaper.
func (r *Registry) Now() time.Time {
	return r.clock.Now()
}

// Len reports the number of live flows.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

// Reap disposes flows whose dialog has been closed and unused for the idle TTL.
func (r *Registry) Reap(now time.Time) int {
	cutoff := now.Add(-r.ttl)

	r.mu.Lock()
	var stale []*Flow
	for id, flow := range r.flows {
		if flow.idle(cutoff) {
			stale = append(stale, flow)
			delete(r.flows, id)
		}
	}
	active := len(r.flows)
	r.mu.Unlock()

	for _, flow := range stale {
		flow.Close()
	}
	r.report(active)
	if len(stale) > 0 {
		r.log.Debug("reaped idle signup flows", zap.Int("reaped", len(stale)), zap.Int("active", active))
	}
	return len(stale)
}

// Close disposes every flow. Later Gets fail.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	flows := r.flows
	r.flows = make(map[string]*Flow)
	r.mu.Unlock()

	for _, flow := range flows {
		flow.Close()
	}
	r.report(0)
}

func (r *Registry) report(active int) {
	if r.gauge != nil {
		r.gauge.SetActiveFlows(active)
	}
}
