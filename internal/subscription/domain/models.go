// Package domain contains persistence models for provider-backed subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SubscriptionStatus mirrors the provider's subscription lifecycle string.
type SubscriptionStatus string

const (
	SubscriptionStatusNone     SubscriptionStatus = "none"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// ProvisionalPeriod is the period granted on checkout completion until the
// provider reports the real billing period.
const ProvisionalPeriod = 30 * 24 * time.Hour

// Subscription links a user to a provider subscription.
type Subscription struct {
	ID                   snowflake.ID       `gorm:"primaryKey"`
	UserID               snowflake.ID       `gorm:"not null;index"`
	StripeCustomerID     string             `gorm:"type:text;not null;index"`
	StripeSubscriptionID *string            `gorm:"type:text"`
	Status               SubscriptionStatus `gorm:"type:text;not null"`
	CurrentPeriodStart   *time.Time         `gorm:""`
	CurrentPeriodEnd     *time.Time         `gorm:""`
	CreatedAt            time.Time          `gorm:"not null"`
	UpdatedAt            time.Time          `gorm:"not null"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// Active reports whether the subscription grants access at t.
func (s Subscription) Active(t time.Time) bool {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusTrialing:
	default:
		return false
	}
	return s.CurrentPeriodEnd == nil || s.CurrentPeriodEnd.After(t)
}

// StatusView is the subscription summary returned to the signed-in user.
type StatusView struct {
	IsActive bool       `json:"is_active"`
	EndsAt   *time.Time `json:"ends_at"`
}
