package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/nurture/internal/config"
)

const (
	defaultSamplingRatio       = 0.1
	defaultSignupSamplingRatio = 1.0
)

// Config holds the logging and telemetry settings of the service.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	Log     LogConfig
	Tracing TracingConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// TracingConfig covers traces and OTLP metrics. Signup and webhook requests
// are sampled with their own ratio so a funnel trace is rarely lost.
type TracingConfig struct {
	Enabled             bool
	Endpoint            string
	Protocol            string
	SamplingRatio       float64
	SignupSamplingRatio float64
}

func LoadConfig(cfg config.Config) Config {
	return loadConfig(cfg, os.LookupEnv)
}

func loadConfig(cfg config.Config, lookup func(string) (string, bool)) Config {
	env := envReader(lookup)

	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "nurture"
	}

	protocol := env.str("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	protocol = env.str("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", protocol)

	return Config{
		ServiceName: name,
		Environment: env.str("DEPLOYMENT_ENV", cfg.Environment),
		Version:     env.str("SERVICE_VERSION", cfg.AppVersion),
		Log: LogConfig{
			Level:  strings.ToLower(env.str("LOG_LEVEL", "info")),
			Format: strings.ToLower(env.str("LOG_FORMAT", "json")),
		},
		Tracing: TracingConfig{
			Enabled:             env.boolean("OTEL_ENABLED", true),
			Endpoint:            env.str("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint),
			Protocol:            strings.ToLower(protocol),
			SamplingRatio:       env.ratio("OTEL_SAMPLING_RATIO", defaultSamplingRatio),
			SignupSamplingRatio: env.ratio("SIGNUP_TRACE_SAMPLING_RATIO", defaultSignupSamplingRatio),
		},
	}
}

// Debug is true for debug logging or a development environment.
func (c Config) Debug() bool {
	if c.Log.Level == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

type envReader func(string) (string, bool)

func (r envReader) str(key, def string) string {
	if r == nil {
		return strings.TrimSpace(def)
	}
	if value, ok := r(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(def)
}

func (r envReader) boolean(key string, def bool) bool {
	value, err := strconv.ParseBool(r.str(key, ""))
	if err != nil {
		return def
	}
	return value
}

// ratio falls back to def when the value is not a number in [0, 1].
func (r envReader) ratio(key string, def float64) float64 {
	value, err := strconv.ParseFloat(r.str(key, ""), 64)
	if err != nil || value < 0 || value > 1 {
		return def
	}
	return value
}
