package webhook

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nurture/internal/config"
	"github.com/smallbiznis/nurture/internal/payment/adapters/stripe"
	paymentdomain "github.com/smallbiznis/nurture/internal/payment/domain"
	"github.com/smallbiznis/nurture/internal/payment/repository"
	"github.com/smallbiznis/nurture/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingHandler struct {
	applied []string
	err     error
}

func (h *countingHandler) Apply(_ context.Context, event *paymentdomain.ProviderEvent) error {
	if h.err != nil {
		return h.err
	}
	h.applied = append(h.applied, event.ProviderEventID)
	return nil
}

func newTestService(t *testing.T, handler paymentdomain.EventHandler) paymentdomain.Service {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&paymentdomain.EventRecord{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	adapter := stripe.NewAdapter(config.Config{Stripe: config.StripeConfig{
		WebhookSecret:    "whsec_test",
		WebhookTolerance: 5 * time.Minute,
	}}, zap.NewNop())

	return NewService(Params{
		Log:     zap.NewNop(),
		GenID:   node,
		Repo:    repository.Provide(conn),
		Adapter: adapter,
		Handler: handler,
	})
}

func signed(payload []byte) http.Header {
	h := http.Header{}
	h.Set("Stripe-Signature", stripe.SignatureHeader("whsec_test", payload, time.Now()))
	return h
}

const completedEvent = `{"id":"evt_1","type":"checkout.session.completed","created":1700000000,"data":{"object":{"id":"cs_1","client_reference_id":"42","customer":"cus_1","subscription":"sub_1"}}}`

func TestIngestAppliesOnce(t *testing.T) {
	handler := &countingHandler{}
	svc := newTestService(t, handler)
	payload := []byte(completedEvent)

	first, err := svc.IngestWebhook(context.Background(), payload, signed(payload))
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := svc.IngestWebhook(context.Background(), payload, signed(payload))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	assert.Equal(t, []string{"evt_1"}, handler.applied)
}

func TestIngestRetriesUnprocessedEvent(t *testing.T) {
	handler := &countingHandler{err: errors.New("db down")}
	svc := newTestService(t, handler)
	payload := []byte(completedEvent)

	_, err := svc.IngestWebhook(context.Background(), payload, signed(payload))
	require.Error(t, err)

	handler.err = nil
	result, err := svc.IngestWebhook(context.Background(), payload, signed(payload))
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, []string{"evt_1"}, handler.applied)
}

func TestIngestIgnoresOtherEvents(t *testing.T) {
	handler := &countingHandler{}
	svc := newTestService(t, handler)
	payload := []byte(`{"id":"evt_2","type":"invoice.paid","data":{"object":{}}}`)

	result, err := svc.IngestWebhook(context.Background(), payload, signed(payload))
	require.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.Empty(t, handler.applied)
}

func TestIngestRejectsBadSignature(t *testing.T) {
	svc := newTestService(t, &countingHandler{})
	payload := []byte(completedEvent)
	headers := http.Header{}
	headers.Set("Stripe-Signature", "t=1,v1=deadbeef")

	_, err := svc.IngestWebhook(context.Background(), payload, headers)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)
}

func TestIngestRejectsInvalidJSON(t *testing.T) {
	svc := newTestService(t, &countingHandler{})
	_, err := svc.IngestWebhook(context.Background(), []byte("{"), http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)
}
