package server

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/nurture/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/nurture/internal/observability/metrics"
	"github.com/smallbiznis/nurture/internal/ratelimit"
	"go.uber.org/zap"
)

const rateLimitReasonClientRate = "client-rate"

// SignupRateLimit throttles account creation, checkout and login per browser client.
// A limiter outage lets the request through.
func (s *Server) SignupRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || !s.limiter.Enabled() {
			c.Next()
			return
		}

		key := clientIDFrom(c)
		if key == "" {
			key = c.ClientIP()
		}

		endpoint := normalizeRateLimitEndpoint(c)
		ctx := c.Request.Context()

		result, err := s.limiter.Allow(ctx, endpoint, key)
		if err != nil {
			logger.FromContext(ctx).Warn("signup rate limit check failed", zap.String("endpoint", endpoint), zap.Error(err))
			c.Next()
			return
		}
		setRateLimitHeaders(c, result)
		if !result.Allowed {
			denySignupRateLimit(c, endpoint, rateLimitReasonClientRate, result, s.obsMetrics)
			return
		}

		recordRateLimitAllowed(ctx, endpoint, s.obsMetrics)
		c.Next()
	}
}

func denySignupRateLimit(c *gin.Context, endpoint, reason string, result *ratelimit.Decision, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)
	log.Warn("signup rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, reason, metrics)

	c.Header("Retry-After", retryAfterSeconds(result))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func setRateLimitHeaders(c *gin.Context, result *ratelimit.Decision) {
	if result == nil || result.Limit <= 0 {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
}

func retryAfterSeconds(result *ratelimit.Decision) string {
	if result == nil || result.RetryAfter <= 0 {
		return "1"
	}
	return strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds())))
}

func recordRateLimitAllowed(ctx context.Context, endpoint string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
