package authstate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	authdomain "github.com/smallbiznis/nurture/internal/auth/domain"
	"github.com/smallbiznis/nurture/internal/auth/events"
	"github.com/smallbiznis/nurture/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	mu         sync.Mutex
	identity   *authdomain.Identity
	fetchErr   error
	signOutErr error
	release    chan struct{}
	signOuts   int
	hub        *events.Hub
}

func (f *fakeProvider) GetSession(ctx context.Context, clientID string) (*authdomain.Identity, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity, f.fetchErr
}

func (f *fakeProvider) SignOut(ctx context.Context, clientID string) error {
	f.mu.Lock()
	f.signOuts++
	err := f.signOutErr
	f.mu.Unlock()
	if err == nil && f.hub != nil {
		f.hub.Publish(authdomain.Event{Type: authdomain.EventSignedOut, ClientID: clientID})
	}
	return err
}

type fakeModal struct {
	closes int
}

func (m *fakeModal) Close() { m.closes++ }

type recordingSink struct {
	mu       sync.Mutex
	outcomes []notify.Outcome
}

func (r *recordingSink) Notify(_ context.Context, _ string, outcome notify.Outcome, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func newStore(provider *fakeProvider) (*Store, *events.Hub, *recordingSink) {
	hub := events.NewHub(zap.NewNop())
	provider.hub = hub
	sink := &recordingSink{}
	return New(zap.NewNop(), "client-1", provider, hub, sink), hub, sink
}

func alice() *authdomain.Identity {
	return &authdomain.Identity{UserID: "42", Email: "a@b.com"}
}

func TestUnknownUntilInitialFetchResolves(t *testing.T) {
	provider := &fakeProvider{release: make(chan struct{})}
	store, _, _ := newStore(provider)

	done := make(chan error, 1)
	go func() { done <- store.Start(context.Background()) }()

	// the snapshot is Unknown, which is not the same as Anonymous
	before := store.Snapshot()
	assert.Equal(t, StatusUnknown, before.Status)
	assert.NotEqual(t, StatusAnonymous, before.Status)
	assert.True(t, before.Loading)
	assert.False(t, before.IsAuthenticated)

	close(provider.release)
	require.NoError(t, <-done)

	after := store.Snapshot()
	assert.Equal(t, StatusAnonymous, after.Status)
	assert.False(t, after.Loading)
}

func TestInitialFetchRestoresSession(t *testing.T) {
	store, _, _ := newStore(&fakeProvider{identity: alice()})
	require.NoError(t, store.Start(context.Background()))

	s := store.Snapshot()
	assert.Equal(t, StatusAuthenticated, s.Status)
	assert.Equal(t, "42", s.UserID)
}

func TestFetchErrorResolvesAnonymous(t *testing.T) {
	store, _, _ := newStore(&fakeProvider{fetchErr: errors.New("provider down")})
	assert.Error(t, store.Start(context.Background()))

	s := store.Snapshot()
	assert.Equal(t, StatusAnonymous, s.Status)
	assert.False(t, s.Loading)
}

func TestEventDuringFetchWins(t *testing.T) {
	provider := &fakeProvider{release: make(chan struct{})}
	store, hub, _ := newStore(provider)

	done := make(chan error, 1)
	go func() { done <- store.Start(context.Background()) }()

	require.Eventually(t, func() bool { return hub.Subscribers("client-1") == 1 }, time.Second, time.Millisecond)
	hub.Publish(authdomain.Event{Type: authdomain.EventSignedIn, ClientID: "client-1", Identity: alice()})

	close(provider.release)
	require.NoError(t, <-done)

	assert.Equal(t, StatusAuthenticated, store.Snapshot().Status)
}

func TestSignedInClosesModal(t *testing.T) {
	store, hub, sink := newStore(&fakeProvider{})
	modal := &fakeModal{}
	store.BindModal(modal)
	require.NoError(t, store.Start(context.Background()))

	hub.Publish(authdomain.Event{Type: authdomain.EventSignedIn, ClientID: "client-1", Identity: alice()})

	assert.Equal(t, 1, modal.closes)
	s := store.Snapshot()
	assert.True(t, s.IsAuthenticated)
	assert.False(t, s.Loading)
	assert.Equal(t, []notify.Outcome{notify.OutcomeSignedIn}, sink.outcomes)
}

func TestUserUpdatedLeavesModalAlone(t *testing.T) {
	store, hub, _ := newStore(&fakeProvider{})
	modal := &fakeModal{}
	store.BindModal(modal)
	require.NoError(t, store.Start(context.Background()))

	hub.Publish(authdomain.Event{Type: authdomain.EventUserUpdated, ClientID: "client-1", Identity: alice()})

	assert.Equal(t, 0, modal.closes)
	assert.Equal(t, "a@b.com", store.Snapshot().Email)
}

func TestSignedOutClearsIdentity(t *testing.T) {
	store, hub, _ := newStore(&fakeProvider{identity: alice()})
	require.NoError(t, store.Start(context.Background()))

	hub.Publish(authdomain.Event{Type: authdomain.EventSignedOut, ClientID: "client-1"})

	s := store.Snapshot()
	assert.Empty(t, s.UserID)
	assert.False(t, s.IsAuthenticated)
	assert.Equal(t, StatusAnonymous, s.Status)
}

func TestSignOutSuccess(t *testing.T) {
	provider := &fakeProvider{identity: alice()}
	store, _, sink := newStore(provider)
	require.NoError(t, store.Start(context.Background()))

	require.NoError(t, store.SignOut(context.Background()))

	s := store.Snapshot()
	assert.False(t, s.IsAuthenticated)
	assert.False(t, s.Loading)
	assert.Equal(t, []notify.Outcome{notify.OutcomeSignedOut}, sink.outcomes)
}

func TestSignOutFailureClearsLoading(t *testing.T) {
	provider := &fakeProvider{identity: alice(), signOutErr: errors.New("network")}
	store, _, sink := newStore(provider)
	require.NoError(t, store.Start(context.Background()))

	assert.Error(t, store.SignOut(context.Background()))

	s := store.Snapshot()
	assert.True(t, s.IsAuthenticated)
	assert.False(t, s.Loading)
	assert.Equal(t, []notify.Outcome{notify.OutcomeSignOutFailed}, sink.outcomes)
}

func TestWatchReceivesSnapshots(t *testing.T) {
	store, hub, _ := newStore(&fakeProvider{})
	ch, cancel := store.Watch()
	defer cancel()

	first := <-ch
	assert.Equal(t, StatusUnknown, first.Status)

	require.NoError(t, store.Start(context.Background()))
	hub.Publish(authdomain.Event{Type: authdomain.EventSignedIn, ClientID: "client-1", Identity: alice()})

	latest := <-ch
	assert.Equal(t, StatusAuthenticated, latest.Status)
}

func TestCloseUnsubscribesAndIsIdempotent(t *testing.T) {
	store, hub, _ := newStore(&fakeProvider{})
	require.NoError(t, store.Start(context.Background()))
	ch, cancel := store.Watch()
	<-ch

	store.Close()
	store.Close()
	cancel()

	assert.Equal(t, 0, hub.Subscribers("client-1"))
	_, open := <-ch
	assert.False(t, open)

	hub.Publish(authdomain.Event{Type: authdomain.EventSignedIn, ClientID: "client-1", Identity: alice()})
	assert.False(t, store.Snapshot().IsAuthenticated)
}
