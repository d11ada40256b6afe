package models

import "time"

// FeedbackAction discriminates the feedback event types on the wire.
type FeedbackAction string

const (
	ActionMatchAccept   FeedbackAction = "match_accept"
	ActionMatchReject   FeedbackAction = "match_reject"
	ActionTaskComplete  FeedbackAction = "task_complete"
	ActionTradeComplete FeedbackAction = "trade_complete"
)

// EventKind identifies which payload shape a queued event carries, so the
// retry path can reconstruct the exact original request.
type EventKind string

const (
	KindMatch      EventKind = "match"
	KindCompletion EventKind = "completion"
	KindTrade      EventKind = "trade"
	KindOutcome    EventKind = "outcome"
)

// MatchFeedback reports a user's reaction to an AI-proposed task match.
type MatchFeedback struct {
	EventID         string         `json:"eventId"`
	Action          FeedbackAction `json:"action"`
	UserID          string         `json:"userId"`
	TaskID          string         `json:"taskId"`
	MatchScore      float64        `json:"matchScore"`
	AIConfidence    float64        `json:"aiConfidence"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
}

// CompletionFeedback reports the outcome of a completed task, including how
// the AI's predictions compared against what actually happened.
type CompletionFeedback struct {
	EventID           string         `json:"eventId"`
	Action            FeedbackAction `json:"action"`
	UserID            string         `json:"userId"`
	TaskID            string         `json:"taskId"`
	Rating            int            `json:"rating"`
	MatchScore        float64        `json:"matchScore"`
	ActualScore       float64        `json:"actualScore"`
	CompletionTime    float64        `json:"completionTime"` // minutes
	PricingFair       bool           `json:"pricingFair"`
	PredictedPrice    float64        `json:"predictedPrice"`
	ActualPrice       float64        `json:"actualPrice"`
	PredictedDuration float64        `json:"predictedDuration"` // minutes
	ActualDuration    float64        `json:"actualDuration"`    // minutes
}

// TradeFeedback reports a completed skill-trade between users.
type TradeFeedback struct {
	EventID           string         `json:"eventId"`
	Action            FeedbackAction `json:"action"`
	UserID            string         `json:"userId"`
	TradeID           string         `json:"tradeId"`
	CompletionTime    float64        `json:"completionTime"` // minutes
	PricingFair       bool           `json:"pricingFair"`
	CertificationUsed *bool          `json:"certificationUsed,omitempty"`
	SquadSize         *int           `json:"squadSize,omitempty"`
	EstimatedDuration float64        `json:"estimatedDuration"` // minutes
	ActualDuration    float64        `json:"actualDuration"`    // minutes
	EstimatedPrice    float64        `json:"estimatedPrice"`
	ActualPrice       float64        `json:"actualPrice"`
}

// ExperimentOutcome correlates an experiment variant with a success metric.
type ExperimentOutcome struct {
	EventID       string         `json:"eventId"`
	UserID        string         `json:"userId"`
	ExperimentID  string         `json:"experimentId"`
	Variant       string         `json:"variant"`
	SuccessMetric string         `json:"successMetric"`
	MetricValue   float64        `json:"metricValue"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	RecordedAt    time.Time      `json:"recordedAt"`
}

// SubmitResult carries the outcome of a feedback submission. Failures are
// reported here, never as panics: a failed submission degrades gracefully and
// must not interrupt the calling UI flow.
type SubmitResult struct {
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Analysis map[string]any `json:"analysis,omitempty"` // server-side analysis, opaque to the client
}

// Failure builds a failed SubmitResult with the given reason.
func Failure(reason string) SubmitResult {
	return SubmitResult{Success: false, Error: reason}
}
