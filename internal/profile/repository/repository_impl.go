package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nurture/internal/profile/domain"
	"github.com/smallbiznis/nurture/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func New(conn *gorm.DB, genID *snowflake.Node) domain.Repository {
	return &repo{db: conn, genID: genID}
}

func (r *repo) Insert(ctx context.Context, profile *domain.Profile) error {
	if profile == nil || profile.UserID == 0 || strings.TrimSpace(profile.FullName) == "" {
		return domain.ErrInvalidProfile
	}
	if profile.ID == 0 {
		profile.ID = r.genID.Generate()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}

	err := r.db.WithContext(ctx).Create(profile).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrProfileExists
	}
	return err
}

func (r *repo) FindByUserID(ctx context.Context, userID snowflake.ID) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
