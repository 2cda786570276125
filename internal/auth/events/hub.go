// Package events fans auth state changes out to the signup flows of each client.
package events

import (
	"sync"

	"github.com/smallbiznis/nurture/internal/auth/domain"
	"go.uber.org/zap"
)

// Handler receives events for one client. It must not block for long.
type Handler func(domain.Event)

// Hub routes events to handlers keyed by client ID.
type Hub struct {
	log    *zap.Logger
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]Handler
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:  log.Named("auth.events"),
		subs: make(map[string]map[uint64]Handler),
	}
}

// Subscription is returned by Subscribe. Unsubscribe is safe to call more than once.
type Subscription struct {
	once  sync.Once
	leave func()
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.leave)
}

// Subscribe registers handler for events addressed to clientID.
func (h *Hub) Subscribe(clientID string, handler Handler) *Subscription {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[clientID] == nil {
		h.subs[clientID] = make(map[uint64]Handler)
	}
	h.subs[clientID][id] = handler
	h.mu.Unlock()

	return &Subscription{leave: func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[clientID], id)
		if len(h.subs[clientID]) == 0 {
			delete(h.subs, clientID)
		}
	}}
}

// Publish delivers event synchronously to the current subscribers of event.ClientID.
func (h *Hub) Publish(event domain.Event) {
	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.subs[event.ClientID]))
	for _, handler := range h.subs[event.ClientID] {
		handlers = append(handlers, handler)
	}
	h.mu.RUnlock()

	h.log.Debug("auth event",
		zap.String("type", string(event.Type)),
		zap.String("client_id", event.ClientID),
		zap.Int("subscribers", len(handlers)),
	)
	for _, handler := range handlers {
		h.deliver(handler, event)
	}
}

func (h *Hub) deliver(handler Handler, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("auth event handler panicked",
				zap.String("type", string(event.Type)),
				zap.Any("panic", r),
			)
		}
	}()
	handler(event)
}

// Subscribers reports the handler count for clientID.
func (h *Hub) Subscribers(clientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[clientID])
}

var _ domain.Publisher = (*Hub)(nil)
