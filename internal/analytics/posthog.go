package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	obsmetrics "github.com/smallbiznis/nurture/internal/observability/metrics"
	"go.uber.org/zap"
)

const posthogBatchPath = "/batch/"

type PostHogConfig struct {
	Host          string
	Token         string
	BufferSize    int
	FlushInterval time.Duration
}

// PostHogSink posts batches to the PostHog capture API.
type PostHogSink struct {
	host       string
	token      string
	httpClient *http.Client
	worker     *worker
}

func NewPostHogSink(cfg PostHogConfig, log *zap.Logger, metrics *obsmetrics.Metrics, httpClient *http.Client) *PostHogSink {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: deliverTimeout}
	}
	s := &PostHogSink{
		host:       strings.TrimRight(cfg.Host, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
	}
	s.worker = newWorker("posthog", log.Named("analytics.posthog"), metrics, cfg.BufferSize, cfg.FlushInterval, s.post)
	return s
}

func (s *PostHogSink) Start() { s.worker.start() }

func (s *PostHogSink) Stop(ctx context.Context) error { return s.worker.stop(ctx) }

func (s *PostHogSink) Capture(ctx context.Context, event Event) {
	s.worker.enqueue(ctx, event)
}

type posthogBatch struct {
	APIKey string  `json:"api_key"`
	Batch  []Event `json:"batch"`
}

func (s *PostHogSink) post(ctx context.Context, batch []Event) error {
	body, err := json.Marshal(posthogBatch{APIKey: s.token, Batch: batch})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+posthogBatchPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("posthog returned status %d", resp.StatusCode)
	}
	return nil
}
