// Package authstate keeps one browser client's view of its auth session in sync with
// the auth provider's event stream.
package authstate

import (
	"context"
	"fmt"
	"sync"

	authdomain "github.com/smallbiznis/nurture/internal/auth/domain"
	"github.com/smallbiznis/nurture/internal/auth/events"
	"github.com/smallbiznis/nurture/internal/notify"
	obslogger "github.com/smallbiznis/nurture/internal/observability/logger"
	"go.uber.org/zap"
)

// Status distinguishes "not resolved yet" from "resolved, nobody signed in".
type Status int

const (
	StatusUnknown Status = iota
	StatusAnonymous
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is an immutable snapshot handed to observers.
type Session struct {
	UserID          string `json:"user_id,omitempty"`
	Email           string `json:"email,omitempty"`
	IsAuthenticated bool   `json:"is_authenticated"`
	Loading         bool   `json:"loading"`
	Status          Status `json:"-"`
}

// Provider is the part of the auth provider the store reads from.
type Provider interface {
	GetSession(ctx context.Context, clientID string) (*authdomain.Identity, error)
	SignOut(ctx context.Context, clientID string) error
}

type Subscriber interface {
	Subscribe(clientID string, handler events.Handler) *events.Subscription
}

// Modal is closed when the client signs in elsewhere.
type Modal interface {
	Close()
}

type Store struct {
	log      *zap.Logger
	clientID string
	provider Provider
	events   Subscriber
	notifier notify.Sink

	mu       sync.Mutex
	session  Session
	version  uint64
	modal    Modal
	sub      *events.Subscription
	started  bool
	closed   bool
	watchers map[uint64]chan Session
	nextW    uint64
}

func New(log *zap.Logger, clientID string, provider Provider, subscriber Subscriber, notifier notify.Sink) *Store {
	return &Store{
		log:      log.Named("authstate.store").With(zap.String("client_id", clientID)),
		clientID: clientID,
		provider: provider,
		events:   subscriber,
		notifier: notifier,
		session:  Session{Loading: true, Status: StatusUnknown},
		watchers: make(map[uint64]chan Session),
	}
}

// BindModal sets the dialog closed on SIGNED_IN.
func (s *Store) BindModal(m Modal) {
	s.mu.Lock()
	s.modal = m
	s.mu.Unlock()
}

// Start subscribes to the client's auth events and then resolves the existing
// session once. Events that arrive while the fetch is pending take precedence.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.sub = s.events.Subscribe(s.clientID, s.handle)
	fetchedAt := s.version
	s.mu.Unlock()

	identity, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return err
	}
	if s.version == fetchedAt {
		if err != nil {
			obslogger.WithContext(ctx, s.log).Warn("initial session fetch failed", zap.Error(err))
			s.setAnonymousLocked()
		} else {
			s.setIdentityLocked(identity)
		}
	}
	s.session.Loading = false
	s.broadcastLocked()
	return err
}

func (s *Store) fetch(ctx context.Context) (identity *authdomain.Identity, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session fetch panicked: %v", r)
		}
	}()
	return s.provider.GetSession(ctx, s.clientID)
}

func (s *Store) handle(event authdomain.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.version++
	attempt := fmt.Sprintf("auth:%d", s.version)

	var modal Modal
	var outcome notify.Outcome
	switch event.Type {
	case authdomain.EventSignedIn:
		s.setIdentityLocked(event.Identity)
		modal = s.modal
		outcome = notify.OutcomeSignedIn
	case authdomain.EventSignedOut:
		s.setAnonymousLocked()
		outcome = notify.OutcomeSignedOut
	case authdomain.EventUserUpdated:
		s.setIdentityLocked(event.Identity)
	default:
		s.mu.Unlock()
		s.log.Debug("ignoring auth event", zap.String("type", string(event.Type)))
		return
	}
	s.session.Loading = false
	s.broadcastLocked()
	s.mu.Unlock()

	if modal != nil {
		modal.Close()
	}
	if outcome != "" && s.notifier != nil {
		s.notifier.Notify(context.Background(), attempt, outcome, nil)
	}
}

// SignOut asks the provider to end the session. Loading is cleared on every path.
func (s *Store) SignOut(ctx context.Context) (err error) {
	s.mu.Lock()
	s.session.Loading = true
	s.broadcastLocked()
	attempt := fmt.Sprintf("signout:%d", s.version)
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sign out panicked: %v", r)
		}
		s.mu.Lock()
		if err == nil && s.session.IsAuthenticated {
			s.version++
			s.setAnonymousLocked()
		}
		s.session.Loading = false
		s.broadcastLocked()
		s.mu.Unlock()

		if err != nil && s.notifier != nil {
			s.notifier.Notify(ctx, attempt, notify.OutcomeSignOutFailed, err)
		}
	}()

	return s.provider.SignOut(ctx, s.clientID)
}

// Snapshot returns the current session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Watch streams snapshots, starting with the current one. Only the latest
// snapshot is kept for slow readers. cancel stops the stream.
func (s *Store) Watch() (<-chan Session, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Session, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.nextW++
	id := s.nextW
	s.watchers[id] = ch
	ch <- s.session

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if w, ok := s.watchers[id]; ok {
				delete(s.watchers, id)
				close(w)
			}
		})
	}
}

// Close unsubscribes from auth events and ends every watch. It is idempotent.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	s.modal = nil
	for id, ch := range s.watchers {
		close(ch)
		delete(s.watchers, id)
	}
	s.mu.Unlock()

	sub.Unsubscribe()
}

func (s *Store) setIdentityLocked(identity *authdomain.Identity) {
	if identity == nil || identity.UserID == "" {
		s.setAnonymousLocked()
		return
	}
	s.session.UserID = identity.UserID
	s.session.Email = identity.Email
	s.session.IsAuthenticated = true
	s.session.Status = StatusAuthenticated
}

func (s *Store) setAnonymousLocked() {
	s.session.UserID = ""
	s.session.Email = ""
	s.session.IsAuthenticated = false
	s.session.Status = StatusAnonymous
}

func (s *Store) broadcastLocked() {
	for _, ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- s.session
	}
}
