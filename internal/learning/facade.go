// Package learning is the domain-shaped entry point UI flows call into. Each
// function builds a typed feedback event, submits it, and records the
// matching experiment outcome. The facade holds no state of its own.
package learning

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hustlexp/insight/internal/experiments"
	"github.com/hustlexp/insight/internal/feedback"
	"github.com/hustlexp/insight/pkg/models"
)

// Facade composes feedback submission with experiment outcome tracking.
type Facade struct {
	client      *feedback.Client
	experiments *experiments.Service
	logger      *slog.Logger
}

// Option configures a Facade.
type Option func(*Facade)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Facade) { f.logger = logger }
}

// New creates the facade over a feedback client and experiment service.
func New(client *feedback.Client, service *experiments.Service, opts ...Option) *Facade {
	f := &Facade{
		client:      client,
		experiments: service,
		logger:      slog.Default().With("component", "learning"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SubmitMatchAcceptance reports that the user accepted an AI-proposed match
// and credits the match-threshold experiment with a success.
func (f *Facade) SubmitMatchAcceptance(ctx context.Context, userID, taskID string, matchScore, aiConfidence float64) models.SubmitResult {
	result := f.client.SubmitMatch(ctx, models.MatchFeedback{
		EventID:      uuid.NewString(),
		Action:       models.ActionMatchAccept,
		UserID:       userID,
		TaskID:       taskID,
		MatchScore:   matchScore,
		AIConfidence: aiConfidence,
	})
	f.experiments.TrackOutcome(ctx, userID, experiments.ExperimentMatchThreshold, "match_accepted", 1, map[string]any{
		"taskId":     taskID,
		"matchScore": matchScore,
	})
	return result
}

// SubmitMatchRejection reports that the user declined an AI-proposed match.
func (f *Facade) SubmitMatchRejection(ctx context.Context, userID, taskID string, matchScore float64, reason string) models.SubmitResult {
	result := f.client.SubmitMatch(ctx, models.MatchFeedback{
		EventID:         uuid.NewString(),
		Action:          models.ActionMatchReject,
		UserID:          userID,
		TaskID:          taskID,
		MatchScore:      matchScore,
		RejectionReason: reason,
	})
	f.experiments.TrackOutcome(ctx, userID, experiments.ExperimentMatchThreshold, "match_accepted", 0, map[string]any{
		"taskId":          taskID,
		"matchScore":      matchScore,
		"rejectionReason": reason,
	})
	return result
}

// SubmitTaskCompletion reports a finished task with the prediction-vs-actual
// comparison and feeds the pricing experiment with the rating outcome.
func (f *Facade) SubmitTaskCompletion(ctx context.Context, event models.CompletionFeedback) models.SubmitResult {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	event.Action = models.ActionTaskComplete
	result := f.client.SubmitCompletion(ctx, event)
	f.experiments.TrackOutcome(ctx, event.UserID, experiments.ExperimentPricing, "task_rating", float64(event.Rating), map[string]any{
		"taskId":      event.TaskID,
		"pricingFair": event.PricingFair,
	})
	return result
}

// SubmitTradeCompletion reports a finished skill-trade.
func (f *Facade) SubmitTradeCompletion(ctx context.Context, event models.TradeFeedback) models.SubmitResult {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	event.Action = models.ActionTradeComplete
	result := f.client.SubmitTrade(ctx, event)

	success := 0.0
	if event.PricingFair {
		success = 1
	}
	f.experiments.TrackOutcome(ctx, event.UserID, experiments.ExperimentPricing, "trade_pricing_fair", success, map[string]any{
		"tradeId": event.TradeID,
	})
	return result
}
