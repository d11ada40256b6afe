package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hustlexp/insight/internal/observability"
	"github.com/hustlexp/insight/internal/ratelimit"
	"github.com/hustlexp/insight/pkg/models"
)

const (
	feedbackPath = "/feedback"
	trackPath    = "/experiments/track"

	defaultRequestTimeout = 15 * time.Second
)

// Client submits typed feedback events to the analytics service. Failed
// submissions are handed to the retry queue and surfaced in the returned
// SubmitResult; submission never panics and never interrupts the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	limiter    *ratelimit.Bucket
	queue      *Queue
	queueOpts  []QueueOption
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithClientMetrics sets the metrics collector.
func WithClientMetrics(metrics *observability.Metrics) ClientOption {
	return func(c *Client) { c.metrics = metrics }
}

// WithClientTracer sets the tracer.
func WithClientTracer(tracer *observability.Tracer) ClientOption {
	return func(c *Client) { c.tracer = tracer }
}

// WithLimiter sets the client-side submission rate limiter. Throttled
// submissions are queued for retry instead of hitting the network.
func WithLimiter(limiter *ratelimit.Bucket) ClientOption {
	return func(c *Client) { c.limiter = limiter }
}

// WithQueue sets options for the client's retry queue.
func WithQueue(opts ...QueueOption) ClientOption {
	return func(c *Client) { c.queueOpts = append(c.queueOpts, opts...) }
}

// NewClient creates a feedback client. store backs the retry queue.
func NewClient(baseURL string, store Store, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     slog.Default().With("component", "feedback.client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	queueOpts := append([]QueueOption{
		WithQueueLogger(c.logger.With("component", "feedback.queue")),
		WithQueueMetrics(c.metrics),
		WithQueueTracer(c.tracer),
	}, c.queueOpts...)
	c.queue = NewQueue(store, c.redeliver, queueOpts...)
	return c
}

// Queue returns the client's retry queue.
func (c *Client) Queue() *Queue { return c.queue }

// SubmitMatch submits match acceptance or rejection feedback.
func (c *Client) SubmitMatch(ctx context.Context, event models.MatchFeedback) models.SubmitResult {
	return c.submit(ctx, models.KindMatch, string(event.Action), event.EventID, event)
}

// SubmitCompletion submits task completion feedback.
func (c *Client) SubmitCompletion(ctx context.Context, event models.CompletionFeedback) models.SubmitResult {
	return c.submit(ctx, models.KindCompletion, string(event.Action), event.EventID, event)
}

// SubmitTrade submits trade completion feedback.
func (c *Client) SubmitTrade(ctx context.Context, event models.TradeFeedback) models.SubmitResult {
	return c.submit(ctx, models.KindTrade, string(event.Action), event.EventID, event)
}

// TrackOutcome forwards an experiment outcome record. A failed delivery is
// queued for retry and the error returned so the caller can log it.
func (c *Client) TrackOutcome(ctx context.Context, outcome models.ExperimentOutcome) error {
	body, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	if _, err := c.post(ctx, trackPath, outcome.EventID, body); err != nil {
		c.countSubmission(models.KindOutcome, "failure")
		if enqErr := c.queue.Enqueue(ctx, models.KindOutcome, body); enqErr != nil {
			c.logger.Error("failed to queue outcome for retry", "error", enqErr)
		}
		return err
	}
	c.countSubmission(models.KindOutcome, "success")
	return nil
}

// submit validates, posts, and on failure queues the event. All failure
// information is carried in the SubmitResult.
func (c *Client) submit(ctx context.Context, kind models.EventKind, action, eventID string, payload any) models.SubmitResult {
	if strings.TrimSpace(action) == "" {
		c.countSubmission(kind, "failure")
		return models.Failure("feedback action is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.countSubmission(kind, "failure")
		return models.Failure(fmt.Sprintf("encode feedback event: %v", err))
	}

	if !c.limiter.Allow() {
		c.logger.Info("submission throttled, queueing for retry", "kind", kind)
		c.countSubmission(kind, "throttled")
		if err := c.queue.Enqueue(ctx, kind, body); err != nil {
			return models.Failure(fmt.Sprintf("throttled and not queued: %v", err))
		}
		return models.Failure("throttled, queued for retry")
	}

	analysis, err := c.post(ctx, feedbackPath, eventID, body)
	if err != nil {
		c.logger.Warn("feedback submission failed, queueing for retry", "kind", kind, "error", err)
		c.countSubmission(kind, "failure")
		if enqErr := c.queue.Enqueue(ctx, kind, body); enqErr != nil {
			c.logger.Error("failed to queue feedback for retry", "kind", kind, "error", enqErr)
		}
		return models.Failure(err.Error())
	}

	c.countSubmission(kind, "success")
	return models.SubmitResult{Success: true, Analysis: analysis}
}

// redeliver resends one queued entry to its original endpoint.
func (c *Client) redeliver(ctx context.Context, entry *Entry) error {
	path := feedbackPath
	if entry.Kind == models.KindOutcome {
		path = trackPath
	}
	_, err := c.post(ctx, path, eventIDFromPayload(entry.Payload), entry.Payload)
	return err
}

// post sends a JSON body and decodes the JSON response. Non-2xx statuses are
// errors. The event's client-generated ID rides along as an idempotency key
// so the server can suppress duplicates from at-least-once redelivery.
func (c *Client) post(ctx context.Context, path, eventID string, body []byte) (map[string]any, error) {
	ctx, span := c.tracer.Start(ctx, "feedback.post",
		attribute.String("path", path),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if eventID != "" {
		req.Header.Set("Idempotency-Key", eventID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("post %s: unexpected status %d", path, resp.StatusCode)
		observability.RecordError(span, err)
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var analysis map[string]any
	if err := json.Unmarshal(data, &analysis); err != nil {
		// A malformed success body is not a delivery failure.
		c.logger.Debug("undecodable response body", "path", path, "error", err)
		return nil, nil
	}
	return analysis, nil
}

func (c *Client) countSubmission(kind models.EventKind, status string) {
	if c.metrics != nil {
		c.metrics.SubmissionCounter.WithLabelValues(string(kind), status).Inc()
	}
}

// eventIDFromPayload extracts the client-generated event id for redelivery.
func eventIDFromPayload(payload json.RawMessage) string {
	var probe struct {
		EventID string `json:"eventId"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return ""
	}
	return probe.EventID
}
