package feedback

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hustlexp/insight/internal/observability"
	"github.com/hustlexp/insight/pkg/models"
)

// DefaultFlushInterval is how often the background flusher attempts redelivery.
const DefaultFlushInterval = 30 * time.Second

// SendFunc redelivers one queued entry. A nil return confirms delivery.
type SendFunc func(ctx context.Context, entry *Entry) error

// Queue holds undelivered feedback events in strict FIFO order and retries
// them on a fixed interval.
//
// A flush pass resends the head entry; on success it is removed and the pass
// continues, on the first failure the pass stops with the head (and
// everything behind it) still queued. Delivery order is preserved at the
// cost of head-of-line blocking. Overlapping passes are skipped, not queued.
type Queue struct {
	store    Store
	send     SendFunc
	logger   *slog.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	interval time.Duration

	flushing atomic.Bool

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithFlushInterval overrides the background flush interval.
func WithFlushInterval(interval time.Duration) QueueOption {
	return func(q *Queue) {
		if interval > 0 {
			q.interval = interval
		}
	}
}

// WithQueueLogger sets the logger.
func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) { q.logger = logger }
}

// WithQueueMetrics sets the metrics collector.
func WithQueueMetrics(metrics *observability.Metrics) QueueOption {
	return func(q *Queue) { q.metrics = metrics }
}

// WithQueueTracer sets the tracer.
func WithQueueTracer(tracer *observability.Tracer) QueueOption {
	return func(q *Queue) { q.tracer = tracer }
}

// NewQueue creates a retry queue over the given store. send is invoked for
// each redelivery attempt.
func NewQueue(store Store, send SendFunc, opts ...QueueOption) *Queue {
	q := &Queue{
		store:    store,
		send:     send,
		logger:   slog.Default().With("component", "feedback.queue"),
		interval: DefaultFlushInterval,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends an undelivered event at the tail.
func (q *Queue) Enqueue(ctx context.Context, kind models.EventKind, payload json.RawMessage) error {
	entry := &Entry{
		Kind:       kind,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := q.store.Append(ctx, entry); err != nil {
		q.logger.Error("failed to enqueue feedback event", "kind", kind, "error", err)
		return err
	}
	q.logger.Debug("feedback event queued for retry", "kind", kind, "id", entry.ID)
	q.updateDepth(ctx)
	return nil
}

// Flush performs one delivery pass. It returns the number of delivered
// entries. Delivery failures end the pass without error; only store access
// failures are returned. If another pass is already running, Flush returns
// immediately.
func (q *Queue) Flush(ctx context.Context) (int, error) {
	if !q.flushing.CompareAndSwap(false, true) {
		q.logger.Debug("flush already in progress, skipping")
		return 0, nil
	}
	defer q.flushing.Store(false)

	ctx, span := q.tracer.Start(ctx, "queue.flush")
	defer span.End()

	start := time.Now()
	delivered := 0
	defer func() {
		if q.metrics != nil {
			q.metrics.FlushDuration.Observe(time.Since(start).Seconds())
		}
		q.updateDepth(ctx)
	}()

	for {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		head, err := q.store.Head(ctx)
		if err != nil {
			observability.RecordError(span, err)
			return delivered, err
		}
		if head == nil {
			return delivered, nil
		}

		if err := q.send(ctx, head); err != nil {
			// Head stays queued; everything behind it waits for the next pass.
			if markErr := q.store.MarkAttempt(ctx, head.ID); markErr != nil {
				q.logger.Error("failed to record delivery attempt", "id", head.ID, "error", markErr)
			}
			q.logger.Warn("redelivery failed, stopping pass",
				"id", head.ID,
				"kind", head.Kind,
				"attempts", head.Attempts+1,
				"error", err,
			)
			return delivered, nil
		}

		if err := q.store.Remove(ctx, head.ID); err != nil {
			observability.RecordError(span, err)
			return delivered, err
		}
		delivered++
		if q.metrics != nil {
			q.metrics.FlushDelivered.Inc()
		}
		q.logger.Info("queued feedback event delivered", "id", head.ID, "kind", head.Kind)
	}
}

// Start runs the background flusher until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(q.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := q.Flush(ctx); err != nil && ctx.Err() == nil {
					q.logger.Error("queue flush failed", "error", err)
				}
			}
		}
	}()
}

// Stop waits for the background flusher to exit.
func (q *Queue) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of pending entries.
func (q *Queue) Len(ctx context.Context) (int, error) {
	return q.store.Len(ctx)
}

// Peek returns the head entry without removing it, or nil when empty.
func (q *Queue) Peek(ctx context.Context) (*Entry, error) {
	return q.store.Head(ctx)
}

func (q *Queue) updateDepth(ctx context.Context) {
	if q.metrics == nil {
		return
	}
	if n, err := q.store.Len(ctx); err == nil {
		q.metrics.QueueDepth.Set(float64(n))
	}
}
