package analytics

import (
	"context"
	"sync"
	"time"

	obsmetrics "github.com/smallbiznis/nurture/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	defaultBufferSize    = 256
	defaultBatchSize     = 50
	defaultFlushInterval = 5 * time.Second
	deliverTimeout       = 10 * time.Second
)

type deliverFunc func(ctx context.Context, batch []Event) error

// worker buffers events and delivers them in batches on one goroutine.
type worker struct {
	name     string
	log      *zap.Logger
	metrics  *obsmetrics.Metrics
	deliver  deliverFunc
	batch    int
	interval time.Duration

	mu     sync.RWMutex
	closed bool
	events chan Event
	done   chan struct{}
}

func newWorker(name string, log *zap.Logger, metrics *obsmetrics.Metrics, bufferSize int, interval time.Duration, deliver deliverFunc) *worker {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &worker{
		name:     name,
		log:      log,
		metrics:  metrics,
		deliver:  deliver,
		batch:    defaultBatchSize,
		interval: interval,
		events:   make(chan Event, bufferSize),
		done:     make(chan struct{}),
	}
}

func (w *worker) start() {
	go w.run()
}

func (w *worker) enqueue(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.drop(ctx, "closed", 1)
		return
	}
	select {
	case w.events <- event:
	default:
		w.drop(ctx, "buffer_full", 1)
	}
}

func (w *worker) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	pending := make([]Event, 0, w.batch)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		w.send(pending)
		pending = make([]Event, 0, w.batch)
	}

	for {
		select {
		case event, ok := <-w.events:
			if !ok {
				flush()
				return
			}
			pending = append(pending, event)
			if len(pending) >= w.batch {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (w *worker) send(batch []Event) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	if err := w.deliver(ctx, batch); err != nil {
		w.log.Warn("analytics delivery failed", zap.Int("events", len(batch)), zap.Error(err))
		w.drop(ctx, "deliver_failed", len(batch))
	}
}

func (w *worker) drop(ctx context.Context, reason string, n int) {
	for i := 0; i < n; i++ {
		w.metrics.RecordAnalyticsDropped(ctx, w.name, reason)
	}
}

// stop closes the buffer and waits for the final flush or ctx.
func (w *worker) stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.events)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
