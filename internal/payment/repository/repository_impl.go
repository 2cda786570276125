package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nurture/internal/payment/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) FindEvent(ctx context.Context, provider string, providerEventID string) (*domain.EventRecord, error) {
	var item domain.EventRecord
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, provider, provider_event_id, event_type, payload, received_at, processed_at
		 FROM webhook_events
		 WHERE provider = ? AND provider_event_id = ?
		 LIMIT 1`,
		provider,
		providerEventID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

// InsertEvent reports false when the provider event was already recorded.
func (r *repo) InsertEvent(ctx context.Context, event *domain.EventRecord) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkProcessed(ctx context.Context, id snowflake.ID, processedAt time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE webhook_events
		 SET processed_at = ?
		 WHERE id = ?`,
		processedAt,
		id,
	).Error
}
