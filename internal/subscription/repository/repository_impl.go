package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/smallbiznis/nurture/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, user_id, stripe_customer_id, stripe_subscription_id, status,
			current_period_start, current_period_end, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		subscription.ID,
		subscription.UserID,
		subscription.StripeCustomerID,
		subscription.StripeSubscriptionID,
		subscription.Status,
		subscription.CurrentPeriodStart,
		subscription.CurrentPeriodEnd,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}

func (r *repo) UpdateByCustomer(ctx context.Context, db *gorm.DB, customerID string, update subscriptiondomain.SubscriptionUpdate) (int64, error) {
	tx := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		SET status = ?, current_period_start = ?, current_period_end = ?, updated_at = ?
		WHERE stripe_customer_id = ?`,
		update.Status,
		update.CurrentPeriodStart,
		update.CurrentPeriodEnd,
		time.Now().UTC(),
		customerID,
	)
	return tx.RowsAffected, tx.Error
}

func (r *repo) LatestForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, stripe_customer_id, stripe_subscription_id, status,
			current_period_start, current_period_end, created_at, updated_at
		FROM subscriptions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		userID,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, subscriptiondomain.ErrSubscriptionNotFound
	}
	return &subscription, nil
}

func (r *repo) LinkUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, customerID string, status subscriptiondomain.SubscriptionStatus) error {
	tx := db.WithContext(ctx).Exec(
		`UPDATE users SET stripe_customer_id = ?, subscription_status = ?, updated_at = ? WHERE id = ?`,
		customerID,
		status,
		time.Now().UTC(),
		userID,
	)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return subscriptiondomain.ErrUserNotFound
	}
	return nil
}

func (r *repo) SetUserStatusByCustomer(ctx context.Context, db *gorm.DB, customerID string, status subscriptiondomain.SubscriptionStatus) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET subscription_status = ?, updated_at = ? WHERE stripe_customer_id = ?`,
		status,
		time.Now().UTC(),
		customerID,
	).Error
}

func (r *repo) FindUserIDByCustomer(ctx context.Context, db *gorm.DB, customerID string) (snowflake.ID, error) {
	var row struct {
		ID snowflake.ID
	}
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM users WHERE stripe_customer_id = ? LIMIT 1`,
		customerID,
	).Scan(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	if row.ID == 0 {
		return 0, subscriptiondomain.ErrUserNotFound
	}
	return row.ID, nil
}
