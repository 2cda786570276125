package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nurture/internal/clock"
	paymentdomain "github.com/smallbiznis/nurture/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/nurture/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  subscriptiondomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock `optional:"true"`
	Repo  subscriptiondomain.Repository
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		genID: p.GenID,
		clock: clk,
		repo:  p.Repo,
	}
}

// Apply implements paymentdomain.EventHandler.
func (s *Service) Apply(ctx context.Context, event *paymentdomain.ProviderEvent) error {
	if event == nil {
		return paymentdomain.ErrInvalidEvent
	}

	switch event.Type {
	case paymentdomain.EventCheckoutCompleted:
		return s.applyCheckoutCompleted(ctx, event)
	case paymentdomain.EventSubscriptionCreated:
		return s.applySubscriptionCreated(ctx, event)
	case paymentdomain.EventSubscriptionUpdated:
		return s.applySubscriptionUpdated(ctx, event)
	default:
		return nil
	}
}

func (s *Service) applyCheckoutCompleted(ctx context.Context, event *paymentdomain.ProviderEvent) error {
	log := s.log.With(zap.String("event_id", event.ProviderEventID))

	userID, err := snowflake.ParseString(strings.TrimSpace(event.UserID))
	if err != nil || userID == 0 {
		log.Warn("checkout completed without a user reference, skipping")
		return nil
	}
	customerID := strings.TrimSpace(event.CustomerID)
	if customerID == "" {
		log.Warn("checkout completed without a customer, skipping", zap.String("user_id", userID.String()))
		return nil
	}

	now := s.clock.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.LinkUser(ctx, tx, userID, customerID, subscriptiondomain.SubscriptionStatusActive); err != nil {
			if errors.Is(err, subscriptiondomain.ErrUserNotFound) {
				log.Warn("checkout completed for unknown user, skipping", zap.String("user_id", userID.String()))
				return nil
			}
			return fmt.Errorf("link user: %w", err)
		}

		existing, err := s.repo.LatestForUser(ctx, tx, userID)
		switch {
		case err == nil && existing.StripeCustomerID == customerID:
			return nil
		case err != nil && !errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound):
			return err
		}

		end := now.Add(subscriptiondomain.ProvisionalPeriod)
		return s.repo.Insert(ctx, tx, &subscriptiondomain.Subscription{
			ID:                   s.genID.Generate(),
			UserID:               userID,
			StripeCustomerID:     customerID,
			StripeSubscriptionID: optionalString(event.SubscriptionID),
			Status:               subscriptiondomain.SubscriptionStatusActive,
			CurrentPeriodStart:   &now,
			CurrentPeriodEnd:     &end,
			CreatedAt:            now,
			UpdatedAt:            now,
		})
	})
}

func (s *Service) applySubscriptionCreated(ctx context.Context, event *paymentdomain.ProviderEvent) error {
	customerID := strings.TrimSpace(event.CustomerID)
	if customerID == "" {
		return subscriptiondomain.ErrInvalidCustomer
	}

	now := s.clock.Now()
	status := statusOf(event.Status)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userID, err := s.repo.FindUserIDByCustomer(ctx, tx, customerID)
		if err != nil {
			// The checkout completion links the customer; until it lands the
			// provider has to redeliver this event.
			return fmt.Errorf("resolve customer %s: %w", customerID, err)
		}

		updated, err := s.repo.UpdateByCustomer(ctx, tx, customerID, subscriptiondomain.SubscriptionUpdate{
			Status:             status,
			CurrentPeriodStart: event.CurrentPeriodStart,
			CurrentPeriodEnd:   event.CurrentPeriodEnd,
		})
		if err != nil {
			return err
		}
		if updated > 0 {
			return s.repo.SetUserStatusByCustomer(ctx, tx, customerID, status)
		}

		if err := s.repo.Insert(ctx, tx, &subscriptiondomain.Subscription{
			ID:                   s.genID.Generate(),
			UserID:               userID,
			StripeCustomerID:     customerID,
			StripeSubscriptionID: optionalString(event.SubscriptionID),
			Status:               status,
			CurrentPeriodStart:   event.CurrentPeriodStart,
			CurrentPeriodEnd:     event.CurrentPeriodEnd,
			CreatedAt:            now,
			UpdatedAt:            now,
		}); err != nil {
			return err
		}
		return s.repo.SetUserStatusByCustomer(ctx, tx, customerID, status)
	})
}

func (s *Service) applySubscriptionUpdated(ctx context.Context, event *paymentdomain.ProviderEvent) error {
	customerID := strings.TrimSpace(event.CustomerID)
	if customerID == "" {
		return subscriptiondomain.ErrInvalidCustomer
	}

	status := statusOf(event.Status)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := s.repo.UpdateByCustomer(ctx, tx, customerID, subscriptiondomain.SubscriptionUpdate{
			Status:             status,
			CurrentPeriodStart: event.CurrentPeriodStart,
			CurrentPeriodEnd:   event.CurrentPeriodEnd,
		})
		if err != nil {
			return err
		}
		if updated == 0 {
			s.log.Warn("subscription update for unknown customer",
				zap.String("event_id", event.ProviderEventID),
				zap.String("customer_id", customerID),
			)
		}
		return s.repo.SetUserStatusByCustomer(ctx, tx, customerID, status)
	})
}

// Status implements domain.Service.
func (s *Service) Status(ctx context.Context, userID snowflake.ID) (*subscriptiondomain.StatusView, error) {
	if userID == 0 {
		return nil, subscriptiondomain.ErrInvalidUser
	}

	subscription, err := s.repo.LatestForUser(ctx, s.db, userID)
	if errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound) {
		return &subscriptiondomain.StatusView{}, nil
	}
	if err != nil {
		return nil, err
	}

	return &subscriptiondomain.StatusView{
		IsActive: subscription.Active(s.clock.Now()),
		EndsAt:   subscription.CurrentPeriodEnd,
	}, nil
}

func statusOf(raw string) subscriptiondomain.SubscriptionStatus {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return subscriptiondomain.SubscriptionStatusActive
	}
	return subscriptiondomain.SubscriptionStatus(value)
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
