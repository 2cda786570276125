package analytics

import (
	"context"

	"github.com/smallbiznis/nurture/internal/config"
	obsmetrics "github.com/smallbiznis/nurture/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("analytics",
	fx.Provide(NewSink),
)

type SinkParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

// NewSink selects the sink named by ANALYTICS_SINK. Misconfigured sinks fall
// back to Noop so signup never depends on analytics.
func NewSink(p SinkParams) Sink {
	cfg := p.Config.Analytics
	log := p.Log.Named("analytics")

	switch cfg.Sink {
	case config.AnalyticsSinkPostHog:
		if cfg.PostHogToken == "" {
			log.Warn("posthog sink selected without POSTHOG_TOKEN, analytics disabled")
			return Noop()
		}
		sink := NewPostHogSink(PostHogConfig{
			Host:          cfg.PostHogHost,
			Token:         cfg.PostHogToken,
			BufferSize:    cfg.BufferSize,
			FlushInterval: cfg.FlushInterval,
		}, p.Log, p.Metrics, nil)
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				sink.Start()
				return nil
			},
			OnStop: sink.Stop,
		})
		return sink

	case config.AnalyticsSinkAMQP:
		conn, channel, err := dialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Warn("amqp sink unavailable, analytics disabled", zap.Error(err))
			return Noop()
		}
		sink := NewAMQPSink(AMQPConfig{
			Exchange:      cfg.AMQPExchange,
			BufferSize:    cfg.BufferSize,
			FlushInterval: cfg.FlushInterval,
		}, channel, p.Log, p.Metrics)
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				sink.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				err := sink.Stop(ctx)
				_ = channel.Close()
				_ = conn.Close()
				return err
			},
		})
		return sink

	default:
		return Noop()
	}
}
