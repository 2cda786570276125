package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/nurture/internal/auth/domain"
	"github.com/smallbiznis/nurture/internal/auth/password"
	"github.com/smallbiznis/nurture/internal/auth/repository"
	"github.com/smallbiznis/nurture/internal/auth/token"
	"github.com/smallbiznis/nurture/internal/config"
	"github.com/smallbiznis/nurture/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	events []authdomain.Event
}

func (p *recordingPublisher) Publish(event authdomain.Event) {
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []authdomain.EventType {
	out := make([]authdomain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestService(t *testing.T) (authdomain.Service, *recordingPublisher) {
	t.Helper()
	svc, pub, _ := newTestServiceWithRepo(t)
	return svc, pub
}

func newTestServiceWithRepo(t *testing.T) (authdomain.Service, *recordingPublisher, authdomain.Repository) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo, sessionRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	issuer, err := token.NewIssuer(config.Config{AuthJWTSecret: "test", AuthSessionTTL: time.Hour})
	if err != nil {
		t.Fatalf("failed to create issuer: %v", err)
	}

	pub := &recordingPublisher{}
	return New(zap.NewNop(), repo, sessionRepo, issuer, pub, node), pub, repo
}

func TestSignUpPublishesUserUpdated(t *testing.T) {
	svc, pub := newTestService(t)

	result, err := svc.SignUp(context.Background(), authdomain.SignUpRequest{
		ClientID: "client-1",
		Email:    " Alice@Example.com ",
		Password: "Str0ng!Pass",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", result.Identity.Email)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, []authdomain.EventType{authdomain.EventUserUpdated}, pub.types())

	identity, err := svc.GetSession(context.Background(), "client-1")
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, result.Identity.UserID, identity.UserID)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	req := authdomain.SignUpRequest{ClientID: "c", Email: "bob@example.com", Password: "Str0ng!Pass"}

	_, err := svc.SignUp(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.SignUp(context.Background(), req)
	if !errors.Is(err, authdomain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc, pub := newTestService(t)

	_, err := svc.SignUp(context.Background(), authdomain.SignUpRequest{
		ClientID: "c",
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	require.NoError(t, err)

	_, err = svc.SignIn(context.Background(), authdomain.SignInRequest{
		ClientID: "c",
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	if err != authdomain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	assert.Len(t, pub.events, 1)
}

func TestSignInUpgradesWeakHash(t *testing.T) {
	svc, _, repo := newTestServiceWithRepo(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, authdomain.SignUpRequest{ClientID: "a", Email: "weak@d.com", Password: "Str0ng!Pass"})
	require.NoError(t, err)
	created, err := repo.FindByEmail(ctx, "weak@d.com")
	require.NoError(t, err)

	weak, err := password.Params{Memory: 8 * 1024, Time: 1, Threads: 1, KeyLen: 32, SaltLen: 16}.Hash("Str0ng!Pass")
	require.NoError(t, err)
	require.NoError(t, repo.UpdateFields(ctx, created.ID, map[string]any{"password_hash": weak}))

	_, err = svc.SignIn(ctx, authdomain.SignInRequest{ClientID: "b", Email: "weak@d.com", Password: "Str0ng!Pass"})
	require.NoError(t, err)

	user, err := repo.FindByEmail(ctx, "weak@d.com")
	require.NoError(t, err)
	assert.NotEqual(t, weak, user.PasswordHash)
	assert.False(t, password.DefaultParams.NeedsRehash(user.PasswordHash))
	assert.True(t, password.Verify("Str0ng!Pass", user.PasswordHash))
}

func TestSignInPublishesSignedIn(t *testing.T) {
	svc, pub := newTestService(t)
	_, err := svc.SignUp(context.Background(), authdomain.SignUpRequest{ClientID: "a", Email: "c@d.com", Password: "pw-1234567"})
	require.NoError(t, err)

	result, err := svc.SignIn(context.Background(), authdomain.SignInRequest{ClientID: "b", Email: "c@d.com", Password: "pw-1234567"})
	require.NoError(t, err)
	assert.Equal(t, authdomain.EventSignedIn, pub.events[len(pub.events)-1].Type)
	assert.Equal(t, "b", pub.events[len(pub.events)-1].ClientID)

	identity, err := svc.Authenticate(context.Background(), result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "c@d.com", identity.Email)
}

func TestSignOutRevokesClientSessions(t *testing.T) {
	svc, pub := newTestService(t)
	result, err := svc.SignUp(context.Background(), authdomain.SignUpRequest{ClientID: "a", Email: "e@f.com", Password: "pw-1234567"})
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(context.Background(), "a"))
	assert.Equal(t, authdomain.EventSignedOut, pub.events[len(pub.events)-1].Type)
	assert.Nil(t, pub.events[len(pub.events)-1].Identity)

	identity, err := svc.GetSession(context.Background(), "a")
	require.NoError(t, err)
	assert.Nil(t, identity)

	_, err = svc.Authenticate(context.Background(), result.AccessToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)
}

func TestGetSessionWithoutClientID(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetSession(context.Background(), " ")
	assert.ErrorIs(t, err, authdomain.ErrMissingClientID)
}
