// Package domain contains core types for the auth provider.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// User represents an account created through signup.
type User struct {
	ID                 snowflake.ID      `gorm:"primaryKey"`
	Email              string            `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash       string            `gorm:"column:password_hash;type:text;not null"`
	Metadata           datatypes.JSONMap `gorm:"not null;default:'{}'"`
	StripeCustomerID   *string           `gorm:"column:stripe_customer_id;type:text;index"`
	SubscriptionStatus string            `gorm:"column:subscription_status;type:text;not null;default:'none'"`
	CreatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Session is a persisted login bound to one browser client.
type Session struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	UserID     snowflake.ID `gorm:"column:user_id;not null;index"`
	ClientID   string       `gorm:"column:client_id;type:text;not null;index"`
	UserAgent  string       `gorm:"column:user_agent;type:text"`
	IPAddress  string       `gorm:"column:ip_address;type:text"`
	ExpiresAt  time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt  *time.Time   `gorm:"column:revoked_at"`
	CreatedAt  time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	LastSeenAt time.Time    `gorm:"column:last_seen_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// Identity is the user view carried by sessions and auth events.
type Identity struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	SessionID string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the session behind the identity is still usable at now.
func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
