package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/nurture/internal/observability/logger"
	"github.com/smallbiznis/nurture/internal/observability/metrics"
	"github.com/smallbiznis/nurture/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
		providePrometheusRegisterer,
		metrics.NewHTTPMetrics,
	),
	fx.Invoke(ensureTracingProvider),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

// /metrics serves the default gatherer, so collectors register there.
func providePrometheusRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.Log.Level,
		Format:              cfg.Log.Format,
		Debug:               cfg.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:             cfg.Tracing.Enabled,
		ServiceName:         cfg.ServiceName,
		ServiceVersion:      cfg.Version,
		Environment:         cfg.Environment,
		ExporterEndpoint:    cfg.Tracing.Endpoint,
		ExporterProtocol:    cfg.Tracing.Protocol,
		SamplingRatio:       cfg.Tracing.SamplingRatio,
		SignupSamplingRatio: cfg.Tracing.SignupSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.Tracing.Enabled,
		ExporterEndpoint: cfg.Tracing.Endpoint,
		ExporterProtocol: cfg.Tracing.Protocol,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
	}
}
