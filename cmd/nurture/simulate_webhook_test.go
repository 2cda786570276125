package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/nurture/internal/config"
	"github.com/smallbiznis/nurture/internal/payment/adapters/stripe"
	paymentdomain "github.com/smallbiznis/nurture/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckoutCompletedPayloadParses(t *testing.T) {
	payload, err := checkoutCompletedPayload(simulateOptions{userID: "42", customerID: "cus_1", subscription: "sub_1"}, time.Now())
	require.NoError(t, err)

	adapter := stripe.NewAdapter(config.Config{}, zap.NewNop())
	event, err := adapter.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.EventCheckoutCompleted, event.Type)
	assert.Equal(t, "42", event.UserID)
	assert.Equal(t, "cus_1", event.CustomerID)
	assert.Equal(t, "sub_1", event.SubscriptionID)
}

func TestSimulateWebhookSignsRequest(t *testing.T) {
	const secret = "whsec_test"
	adapter := stripe.NewAdapter(config.Config{Stripe: config.StripeConfig{WebhookSecret: secret, WebhookTolerance: time.Minute}}, zap.NewNop())

	verified := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		verified <- adapter.Verify(r.Context(), body, r.Header)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"received":true}`))
	}))
	defer srv.Close()

	cmd := newSimulateWebhookCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--url", srv.URL, "--secret", secret, "--user-id", "42"})
	require.NoError(t, cmd.Execute())

	assert.NoError(t, <-verified)
	assert.Contains(t, out.String(), "200")
}

func TestSimulateWebhookRequiresUser(t *testing.T) {
	cmd := newSimulateWebhookCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--secret", "whsec_test"})
	assert.Error(t, cmd.Execute())
}
