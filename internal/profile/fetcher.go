// Package profile fetches server-computed user profiles and calibration
// metrics. Both endpoints are read-only; failures degrade to absent results
// rather than propagating, except for rate-limit exhaustion which is the one
// error callers are expected to see.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hustlexp/insight/internal/backoff"
	"github.com/hustlexp/insight/internal/observability"
	"github.com/hustlexp/insight/internal/retry"
	"github.com/hustlexp/insight/pkg/models"
)

// ErrRateLimited is returned when the profile endpoint keeps responding 429
// after the retry budget is spent.
var ErrRateLimited = errors.New("profile endpoint rate limited")

const (
	defaultRequestTimeout = 15 * time.Second

	// The first 429 costs three backoff waits (1s, 2s, 4s); a fourth
	// consecutive 429 exhausts the budget.
	rateLimitAttempts = 4
)

// Fetcher retrieves AI user profiles and calibration metrics.
type Fetcher struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	retryCfg   retry.Config
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = httpClient }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(f *Fetcher) { f.metrics = metrics }
}

// WithTracer sets the tracer.
func WithTracer(tracer *observability.Tracer) Option {
	return func(f *Fetcher) { f.tracer = tracer }
}

// WithRetryConfig overrides the rate-limit retry configuration.
func WithRetryConfig(cfg retry.Config) Option {
	return func(f *Fetcher) { f.retryCfg = cfg }
}

// NewFetcher creates a profile fetcher for the given API base URL.
func NewFetcher(baseURL string, opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     slog.Default().With("component", "profile.fetcher"),
		retryCfg: retry.Config{
			MaxAttempts: rateLimitAttempts,
			Policy:      backoff.RateLimitPolicy(),
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAIProfile retrieves the learned profile for a user. HTTP 429 is
// retried with doubling waits; when the budget is exhausted ErrRateLimited is
// returned. Any other failure is logged and degrades to a nil profile.
func (f *Fetcher) FetchAIProfile(ctx context.Context, userID string) (*models.AIUserProfile, error) {
	ctx, span := f.tracer.Start(ctx, "profile.fetch",
		attribute.String("user.id", userID),
	)
	defer span.End()

	path := fmt.Sprintf("/users/%s/profile/ai", url.PathEscape(userID))
	body, result := retry.DoWithValue(ctx, f.retryCfg, func() ([]byte, error) {
		return f.get(ctx, path)
	})
	if result.Err != nil {
		if errors.Is(result.Err, errTooManyRequests) {
			f.countFetch("profile", "rate_limited")
			observability.RecordError(span, ErrRateLimited)
			return nil, fmt.Errorf("fetch profile for %s: %w", userID, ErrRateLimited)
		}
		f.countFetch("profile", "failure")
		f.logger.Warn("profile fetch failed", "userId", userID, "error", result.Err)
		return nil, nil
	}

	profile, err := mapProfile(userID, body)
	if err != nil {
		f.countFetch("profile", "failure")
		f.logger.Warn("profile response undecodable", "userId", userID, "error", err)
		return nil, nil
	}
	f.countFetch("profile", "success")
	return profile, nil
}

// errTooManyRequests marks a 429 so the retry loop keeps going while every
// other status is permanent.
var errTooManyRequests = errors.New("too many requests")

func (f *Fetcher) get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("get %s: %w", path, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("get %s: %w", path, errTooManyRequests)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, retry.Permanent(fmt.Errorf("get %s: unexpected status %d", path, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("read response: %w", err))
	}
	return body, nil
}

func (f *Fetcher) countFetch(endpoint, status string) {
	if f.metrics != nil {
		f.metrics.FetchCounter.WithLabelValues(endpoint, status).Inc()
	}
}

// mapProfile normalizes the two response shapes the server emits: the current
// envelope with a nested aiProfile object, and the legacy flat profile.
func mapProfile(userID string, body []byte) (*models.AIUserProfile, error) {
	var envelope struct {
		UserID    string          `json:"userId"`
		AIProfile json.RawMessage `json:"aiProfile"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode profile response: %w", err)
	}

	raw := envelope.AIProfile
	if len(raw) == 0 || string(raw) == "null" {
		// Legacy shape: the profile fields sit at the top level.
		raw = body
	}

	var profile models.AIUserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("decode profile body: %w", err)
	}

	if profile.UserID == "" {
		profile.UserID = envelope.UserID
	}
	if profile.UserID == "" {
		profile.UserID = userID
	}
	if profile.PreferredCategories == nil {
		profile.PreferredCategories = []string{}
	}
	if profile.PriceRange.Min == 0 && profile.PriceRange.Max == 0 {
		profile.PriceRange = models.PriceRange{Min: models.DefaultPriceMin, Max: models.DefaultPriceMax}
	}
	return &profile, nil
}
