package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Age bounds accepted for the child's age in months.
const (
	MinChildAgeMonths = 0
	MaxChildAgeMonths = 120
)

// Profile holds the onboarding details captured after account creation.
type Profile struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	UserID         snowflake.ID `gorm:"not null;uniqueIndex"`
	FullName       string       `gorm:"type:text;not null"`
	ChildAgeMonths int          `gorm:"not null"`
	SelectedPlan   string       `gorm:"type:text;not null"`
	CreatedAt      time.Time    `gorm:"not null"`
}

func (Profile) TableName() string { return "user_profiles" }

// Repository persists profiles keyed by user.
type Repository interface {
	Insert(ctx context.Context, profile *Profile) error
	FindByUserID(ctx context.Context, userID snowflake.ID) (*Profile, error)
}

var (
	ErrProfileExists   = errors.New("profile_exists")
	ErrProfileNotFound = errors.New("profile_not_found")
	ErrInvalidProfile  = errors.New("invalid_profile")
)
