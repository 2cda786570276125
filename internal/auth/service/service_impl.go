package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nurture/internal/auth/domain"
	"github.com/smallbiznis/nurture/internal/auth/password"
	"github.com/smallbiznis/nurture/internal/auth/token"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Service struct {
	log         *zap.Logger
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	tokens      *token.Issuer
	events      domain.Publisher
	genID       *snowflake.Node
	now         func() time.Time
}

func New(log *zap.Logger, repo domain.Repository, sessionRepo domain.SessionRepository, tokens *token.Issuer, events domain.Publisher, genID *snowflake.Node) domain.Service {
	return &Service{
		log:         log.Named("auth.service"),
		repo:        repo,
		sessionRepo: sessionRepo,
		tokens:      tokens,
		events:      events,
		genID:       genID,
		now:         time.Now,
	}
}

func (s *Service) SignUp(ctx context.Context, req domain.SignUpRequest) (*domain.AuthResult, error) {
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		return nil, domain.ErrMissingClientID
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	user := &domain.User{
		ID:                 s.genID.Generate(),
		Email:              email,
		PasswordHash:       hashed,
		Metadata:           metadata,
		SubscriptionStatus: "none",
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	result, err := s.openSession(ctx, user, clientID, req.UserAgent, req.IPAddress)
	if err != nil {
		return nil, err
	}

	s.log.Info("user signed up", zap.String("user_id", user.ID.String()), zap.String("client_id", clientID))
	s.publish(domain.EventUserUpdated, clientID, &result.Identity)
	return result, nil
}

func (s *Service) SignIn(ctx context.Context, req domain.SignInRequest) (*domain.AuthResult, error) {
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		return nil, domain.ErrMissingClientID
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		s.log.Debug("password mismatch", zap.String("user_id", user.ID.String()))
		return nil, domain.ErrInvalidCredentials
	}
	s.upgradeHash(ctx, user, req.Password)

	result, err := s.openSession(ctx, user, clientID, req.UserAgent, req.IPAddress)
	if err != nil {
		return nil, err
	}

	s.publish(domain.EventSignedIn, clientID, &result.Identity)
	return result, nil
}

// upgradeHash rewrites hashes made with older argon2 costs. Failure only logs;
// the sign in already succeeded.
func (s *Service) upgradeHash(ctx context.Context, user *domain.User, plain string) {
	if !password.DefaultParams.NeedsRehash(user.PasswordHash) {
		return
	}
	hashed, err := password.Hash(plain)
	if err == nil {
		err = s.repo.UpdateFields(ctx, user.ID, map[string]any{"password_hash": hashed})
	}
	if err != nil {
		s.log.Warn("password rehash failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return
	}
	user.PasswordHash = hashed
}

func (s *Service) SignOut(ctx context.Context, clientID string) error {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return domain.ErrMissingClientID
	}

	revoked, err := s.sessionRepo.RevokeClientSessions(ctx, clientID, s.now().UTC())
	if err != nil {
		return err
	}
	s.log.Info("client signed out", zap.String("client_id", clientID), zap.Int64("revoked", revoked))
	s.publish(domain.EventSignedOut, clientID, nil)
	return nil
}

func (s *Service) GetSession(ctx context.Context, clientID string) (*domain.Identity, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, domain.ErrMissingClientID
	}

	now := s.now().UTC()
	session, err := s.sessionRepo.LatestSessionForClient(ctx, clientID, now)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if err := s.sessionRepo.UpdateLastSeen(ctx, session.ID, now); err != nil {
		s.log.Warn("failed to touch session", zap.Error(err))
	}
	return identityOf(user, session), nil
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Identity, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, domain.ErrInvalidSession
	}
	claims, err := s.tokens.Parse(rawToken)
	if err != nil {
		return nil, domain.ErrInvalidSession
	}

	sessionID, err := snowflake.ParseString(claims.SessionID)
	if err != nil {
		return nil, domain.ErrInvalidSession
	}
	session, err := s.sessionRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}

	now := s.now().UTC()
	if session.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	user, err := s.repo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return identityOf(user, session), nil
}

func (s *Service) openSession(ctx context.Context, user *domain.User, clientID, userAgent, ip string) (*domain.AuthResult, error) {
	now := s.now().UTC()
	session := &domain.Session{
		ID:         s.genID.Generate(),
		UserID:     user.ID,
		ClientID:   clientID,
		UserAgent:  strings.TrimSpace(userAgent),
		IPAddress:  strings.TrimSpace(ip),
		ExpiresAt:  now.Add(s.tokens.TTL()),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.Issue(user.ID.String(), session.ID.String(), clientID, user.Email, session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	return &domain.AuthResult{
		Identity:    *identityOf(user, session),
		AccessToken: accessToken,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

func (s *Service) publish(eventType domain.EventType, clientID string, identity *domain.Identity) {
	if s.events == nil {
		return
	}
	s.events.Publish(domain.Event{Type: eventType, ClientID: clientID, Identity: identity})
}

func identityOf(user *domain.User, session *domain.Session) *domain.Identity {
	return &domain.Identity{
		UserID:    user.ID.String(),
		Email:     user.Email,
		SessionID: session.ID.String(),
		ExpiresAt: session.ExpiresAt,
	}
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}
