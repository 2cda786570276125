package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	obsmetrics "github.com/smallbiznis/nurture/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/nurture/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       paymentdomain.Repository
	Adapter    paymentdomain.WebhookAdapter
	Handler    paymentdomain.EventHandler
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	repo       paymentdomain.Repository
	adapter    paymentdomain.WebhookAdapter
	handler    paymentdomain.EventHandler
	obsMetrics *obsmetrics.Metrics
	now        func() time.Time
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		log:        p.Log.Named("payment.webhook"),
		genID:      p.GenID,
		repo:       p.Repo,
		adapter:    p.Adapter,
		handler:    p.Handler,
		obsMetrics: p.ObsMetrics,
		now:        time.Now,
	}
}

// IngestWebhook verifies, records and applies one provider event. Every event ID is
// applied at most once; redeliveries of a processed event report Duplicate.
func (s *Service) IngestWebhook(ctx context.Context, payload []byte, headers http.Header) (*paymentdomain.IngestResult, error) {
	if !json.Valid(payload) {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if err := s.adapter.Verify(ctx, payload, headers); err != nil {
		s.record(ctx, "unknown", "rejected")
		return nil, err
	}

	event, err := s.adapter.Parse(ctx, payload)
	if errors.Is(err, paymentdomain.ErrEventIgnored) {
		s.log.Info("unhandled webhook event", zap.String("event_type", event.Type))
		s.record(ctx, event.Type, "ignored")
		return &paymentdomain.IngestResult{EventID: event.ProviderEventID, EventType: event.Type, Ignored: true}, nil
	}
	if err != nil {
		s.record(ctx, "unknown", "invalid")
		return nil, err
	}

	now := s.now().UTC()
	received := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        s.adapter.Provider(),
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, &received)
	if err != nil {
		return nil, err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, received.Provider, received.ProviderEventID)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			s.record(ctx, event.Type, "duplicate")
			return &paymentdomain.IngestResult{EventID: event.ProviderEventID, EventType: event.Type, Duplicate: true}, nil
		}
	}

	if err := s.handler.Apply(ctx, event); err != nil {
		s.log.Error("failed to apply webhook event",
			zap.String("event_id", event.ProviderEventID),
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
		s.record(ctx, event.Type, "failed")
		return nil, err
	}

	if err := s.repo.MarkProcessed(ctx, stored.ID, now); err != nil {
		return nil, err
	}

	s.record(ctx, event.Type, "processed")
	return &paymentdomain.IngestResult{EventID: event.ProviderEventID, EventType: event.Type}, nil
}

func (s *Service) record(ctx context.Context, eventType, result string) {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, eventType, result)
	}
}
