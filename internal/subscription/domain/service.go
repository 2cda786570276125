package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/nurture/internal/payment/domain"
)

// Service applies provider events to subscription state and reports it.
type Service interface {
	Apply(ctx context.Context, event *paymentdomain.ProviderEvent) error
	Status(ctx context.Context, userID snowflake.ID) (*StatusView, error)
}

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrUserNotFound         = errors.New("user_not_found")
	ErrInvalidUser          = errors.New("invalid_user")
	ErrInvalidCustomer      = errors.New("invalid_customer")
)
