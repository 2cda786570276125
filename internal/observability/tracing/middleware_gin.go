package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/nurture/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// RouteGroupKey tags server spans with the part of the funnel they serve.
// The sampler reads it at span start.
const RouteGroupKey = attribute.Key("nurture.route_group")

const (
	GroupSignup  = "signup"
	GroupAuth    = "auth"
	GroupWebhook = "webhook"
	GroupAPI     = "api"
	GroupOther   = "other"
)

var routeGroups = []struct {
	prefix string
	group  string
}{
	{"/signup", GroupSignup},
	{"/auth", GroupAuth},
	{"/api/webhooks", GroupWebhook},
	{"/api", GroupAPI},
}

// RouteGroup maps a request path onto its funnel group.
func RouteGroup(path string) string {
	for _, g := range routeGroups {
		if path == g.prefix || strings.HasPrefix(path, g.prefix+"/") {
			return g.group
		}
	}
	return GroupOther
}

// GinMiddleware opens a server span per request and names it after the
// matched route once the handler chain has run.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("nurture/http")
	return func(c *gin.Context) {
		method := strings.ToUpper(c.Request.Method)
		group := RouteGroup(c.Request.URL.Path)

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(RouteGroupKey.String(group)),
		)
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			ctx = withRequestBaggage(ctx, requestID)
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		if clientID := obscontext.ClientIDFromContext(c.Request.Context()); clientID != "" {
			attrs = append(attrs, attribute.String("client_id", clientID))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
	}
}

func withRequestBaggage(ctx context.Context, requestID string) context.Context {
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
