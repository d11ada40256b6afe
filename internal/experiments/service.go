package experiments

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hustlexp/insight/internal/observability"
	"github.com/hustlexp/insight/pkg/models"
)

// OutcomeTracker forwards experiment outcome records to the remote tracking
// endpoint. Implemented by the feedback client.
type OutcomeTracker interface {
	TrackOutcome(ctx context.Context, outcome models.ExperimentOutcome) error
}

// Service assigns experiment variants and records outcomes.
//
// Assignment is sticky: the first variant chosen for a (user, experiment)
// pair is returned unchanged for the life of the local installation.
type Service struct {
	catalog *Catalog
	store   *AssignmentStore
	tracker OutcomeTracker
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTracker sets the remote outcome tracker.
func WithTracker(tracker OutcomeTracker) ServiceOption {
	return func(s *Service) { s.tracker = tracker }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics *observability.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = metrics }
}

// WithSeed seeds variant selection for deterministic tests.
func WithSeed(seed int64) ServiceOption {
	return func(s *Service) { s.rng = rand.New(rand.NewSource(seed)) } // #nosec G404 -- variant selection does not require cryptographic randomness
}

// NewService creates an experiment service over the given catalog and store.
func NewService(catalog *Catalog, store *AssignmentStore, opts ...ServiceOption) *Service {
	s := &Service{
		catalog: catalog,
		store:   store,
		logger:  slog.Default().With("component", "experiments.service"),
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssignVariant returns the user's variant for the experiment, choosing and
// persisting one on first call. Missing or inactive experiments yield
// "control" without persisting anything. Assignment never fails the caller:
// persistence errors are logged and the in-process assignment stands.
func (s *Service) AssignVariant(ctx context.Context, userID, experimentID string) string {
	if existing, ok, err := s.store.Get(ctx, userID, experimentID); err != nil {
		s.logger.Error("assignment lookup failed", "experiment", experimentID, "error", err)
		return VariantControl
	} else if ok {
		return existing.Variant
	}

	exp, ok := s.catalog.Find(experimentID)
	if !ok || !exp.Active || len(exp.Variants) == 0 {
		return VariantControl
	}

	s.mu.Lock()
	variant := exp.Variants[s.rng.Intn(len(exp.Variants))]
	s.mu.Unlock()

	assignment := Assignment{
		ExperimentID: experimentID,
		Variant:      variant,
		AssignedAt:   s.now(),
	}
	if err := s.store.Add(ctx, userID, assignment); err != nil {
		// The in-memory assignment stands for this process; it just won't
		// survive a restart.
		s.logger.Error("failed to persist assignment", "experiment", experimentID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.AssignmentCounter.WithLabelValues(experimentID, variant).Inc()
	}
	s.logger.Info("variant assigned", "experiment", experimentID, "variant", variant)
	return variant
}

// GetVariant returns the existing assignment, assigning lazily if absent.
func (s *Service) GetVariant(ctx context.Context, userID, experimentID string) string {
	if existing, ok, err := s.store.Get(ctx, userID, experimentID); err == nil && ok {
		return existing.Variant
	}
	return s.AssignVariant(ctx, userID, experimentID)
}

// TrackOutcome correlates the user's variant with a success metric and
// forwards it to the tracking endpoint. Assigns a variant lazily if the user
// has none. Failures are logged, never propagated.
func (s *Service) TrackOutcome(ctx context.Context, userID, experimentID, metric string, value float64, metadata map[string]any) {
	variant := s.GetVariant(ctx, userID, experimentID)
	if s.tracker == nil {
		return
	}
	outcome := models.ExperimentOutcome{
		EventID:       uuid.New().String(),
		UserID:        userID,
		ExperimentID:  experimentID,
		Variant:       variant,
		SuccessMetric: metric,
		MetricValue:   value,
		Metadata:      metadata,
		RecordedAt:    s.now(),
	}
	if err := s.tracker.TrackOutcome(ctx, outcome); err != nil {
		s.logger.Warn("outcome tracking failed", "experiment", experimentID, "metric", metric, "error", err)
	}
}

// Variant-derived tunables. Each maps the resolved variant through a fixed
// table with one fallback default for unrecognized variants.
var (
	matchThresholds = map[string]float64{
		"control": 70,
		"test_a":  65,
		"test_b":  75,
	}
	chatStyles = map[string]string{
		"control": "professional",
		"test_a":  "casual",
		"test_b":  "enthusiastic",
	}
	pricingMultipliers = map[string]float64{
		"control": 1.0,
		"test_a":  1.1,
		"test_b":  0.95,
	}
)

// MatchScoreThreshold returns the minimum match score to surface to the user.
func (s *Service) MatchScoreThreshold(ctx context.Context, userID string) float64 {
	if v, ok := matchThresholds[s.GetVariant(ctx, userID, ExperimentMatchThreshold)]; ok {
		return v
	}
	return matchThresholds[VariantControl]
}

// ChatStyle returns the AI chat assistant style for the user.
func (s *Service) ChatStyle(ctx context.Context, userID string) string {
	if v, ok := chatStyles[s.GetVariant(ctx, userID, ExperimentChatStyle)]; ok {
		return v
	}
	return chatStyles[VariantControl]
}

// PricingMultiplier returns the AI pricing suggestion multiplier for the user.
func (s *Service) PricingMultiplier(ctx context.Context, userID string) float64 {
	if v, ok := pricingMultipliers[s.GetVariant(ctx, userID, ExperimentPricing)]; ok {
		return v
	}
	return pricingMultipliers[VariantControl]
}
