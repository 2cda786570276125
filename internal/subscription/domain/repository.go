package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// SubscriptionUpdate carries the provider fields of a subscription change.
type SubscriptionUpdate struct {
	Status             SubscriptionStatus
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	UpdateByCustomer(ctx context.Context, db *gorm.DB, customerID string, update SubscriptionUpdate) (int64, error)
	LatestForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Subscription, error)

	LinkUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, customerID string, status SubscriptionStatus) error
	SetUserStatusByCustomer(ctx context.Context, db *gorm.DB, customerID string, status SubscriptionStatus) error
	FindUserIDByCustomer(ctx context.Context, db *gorm.DB, customerID string) (snowflake.ID, error)
}
