package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestRouteGroup(t *testing.T) {
	cases := map[string]string{
		"/signup":                  GroupSignup,
		"/signup/credentials":      GroupSignup,
		"/signupx":                 GroupOther,
		"/auth/login":              GroupAuth,
		"/api/webhooks/stripe":     GroupWebhook,
		"/api/subscription/status": GroupAPI,
		"/healthz":                 GroupOther,
	}
	for path, want := range cases {
		assert.Equal(t, want, RouteGroup(path), path)
	}
}

func TestRouteSamplerKeepsFunnelTraces(t *testing.T) {
	sampler := NewRouteSampler(0, 1)
	traceID := trace.TraceID{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

	sample := func(group string) sdktrace.SamplingDecision {
		return sampler.ShouldSample(sdktrace.SamplingParameters{
			TraceID:    traceID,
			Name:       "HTTP POST",
			Attributes: []attribute.KeyValue{RouteGroupKey.String(group)},
		}).Decision
	}

	assert.Equal(t, sdktrace.RecordAndSample, sample(GroupSignup))
	assert.Equal(t, sdktrace.RecordAndSample, sample(GroupWebhook))
	assert.Equal(t, sdktrace.Drop, sample(GroupAPI))
	assert.Equal(t, sdktrace.Drop, sampler.ShouldSample(sdktrace.SamplingParameters{TraceID: traceID}).Decision)
}

func TestGinMiddlewareTagsSignupSpans(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracerProviderForTest(t, provider)

	r := gin.New()
	r.Use(GinMiddleware())
	r.POST("/signup/credentials", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/signup/credentials", nil))
	require.Equal(t, http.StatusOK, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP POST /signup/credentials", spans[0].Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, GroupSignup, attrs[RouteGroupKey].AsString())
	assert.Equal(t, "/signup/credentials", attrs["http.route"].AsString())
	assert.EqualValues(t, http.StatusOK, attrs["http.status_code"].AsInt64())
}

func tracerProviderForTest(t *testing.T, provider *sdktrace.TracerProvider) {
	t.Helper()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}
