package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	HTTPAddr         string
	PublicURL        string
	AuthCookieSecure bool
	AuthJWTSecret    string
	AuthSessionTTL   time.Duration

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Signup    SignupConfig
	Stripe    StripeConfig
	Analytics AnalyticsConfig
}

type SignupConfig struct {
	MinPasswordScore   int
	StepTimeout        time.Duration
	FlowIdleTTL        time.Duration
	ReapSchedule       string
	CheckoutBackendURL string
	RateLimitPerMinute float64
	RateLimitBurst     int
}

type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	APIBaseURL       string
	CheckoutBaseURL  string
	SuccessURL       string
	CancelURL        string
	WebhookTolerance time.Duration
}

type AnalyticsConfig struct {
	Sink          string
	PostHogToken  string
	PostHogHost   string
	BufferSize    int
	AMQPURL       string
	AMQPExchange  string
	FlushInterval time.Duration
}

const (
	AnalyticsSinkNone    = "none"
	AnalyticsSinkPostHog = "posthog"
	AnalyticsSinkAMQP    = "amqp"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	publicURL := strings.TrimRight(getenv("PUBLIC_URL", "http://localhost:8080"), "/")

	cfg := Config{
		AppName:          getenv("APP_SERVICE", "nurture"),
		AppVersion:       getenv("APP_VERSION", "0.1.0"),
		Environment:      environment,
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		PublicURL:        publicURL,
		AuthCookieSecure: authCookieSecure,
		AuthJWTSecret:    strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthSessionTTL:   getenvDuration("AUTH_SESSION_TTL", 7*24*time.Hour),
		OTLPEndpoint:     getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "nurture"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBAutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", true),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		Signup: SignupConfig{
			MinPasswordScore:   getenvInt("SIGNUP_MIN_PASSWORD_SCORE", 2),
			StepTimeout:        getenvDuration("SIGNUP_STEP_TIMEOUT", 20*time.Second),
			FlowIdleTTL:        getenvDuration("SIGNUP_FLOW_IDLE_TTL", 30*time.Minute),
			ReapSchedule:       getenv("SIGNUP_REAP_SCHEDULE", "@every 1m"),
			CheckoutBackendURL: strings.TrimRight(strings.TrimSpace(getenv("CHECKOUT_BACKEND_URL", "")), "/"),
			RateLimitPerMinute: getenvFloat("SIGNUP_RATE_LIMIT_PER_MINUTE", 30),
			RateLimitBurst:     getenvInt("SIGNUP_RATE_LIMIT_BURST", 10),
		},
		Stripe: StripeConfig{
			SecretKey:        strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			WebhookSecret:    strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			APIBaseURL:       strings.TrimRight(getenv("STRIPE_API_BASE_URL", "https://api.stripe.com"), "/"),
			CheckoutBaseURL:  strings.TrimRight(getenv("STRIPE_CHECKOUT_BASE_URL", "https://checkout.stripe.com/c/pay"), "/"),
			SuccessURL:       getenv("STRIPE_SUCCESS_URL", publicURL+"/welcome?session_id={CHECKOUT_SESSION_ID}"),
			CancelURL:        getenv("STRIPE_CANCEL_URL", publicURL+"/#pricing"),
			WebhookTolerance: getenvDuration("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute),
		},
		Analytics: AnalyticsConfig{
			Sink:          normalizeSink(getenv("ANALYTICS_SINK", AnalyticsSinkNone)),
			PostHogToken:  strings.TrimSpace(getenv("POSTHOG_TOKEN", "")),
			PostHogHost:   strings.TrimRight(getenv("POSTHOG_HOST", "https://app.posthog.com"), "/"),
			BufferSize:    getenvInt("ANALYTICS_BUFFER_SIZE", 256),
			AMQPURL:       strings.TrimSpace(getenv("ANALYTICS_AMQP_URL", "")),
			AMQPExchange:  getenv("ANALYTICS_AMQP_EXCHANGE", "analytics"),
			FlushInterval: getenvDuration("ANALYTICS_FLUSH_INTERVAL", 5*time.Second),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func normalizeSink(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case AnalyticsSinkPostHog, AnalyticsSinkAMQP:
		return value
	default:
		return AnalyticsSinkNone
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
