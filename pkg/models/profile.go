package models

// Default price range bounds applied when the server omits them.
const (
	DefaultPriceMin = 20
	DefaultPriceMax = 200
)

// PriceRange bounds a user's preferred task pricing.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// AIUserProfile is the server-computed view of a user's learned preferences.
// It is read-only on the client and re-fetched on demand.
type AIUserProfile struct {
	UserID                 string         `json:"userId"`
	PreferredCategories    []string       `json:"preferredCategories"`
	PriceRange             PriceRange     `json:"priceRange"`
	AcceptanceTimePatterns []string       `json:"acceptanceTimePatterns,omitempty"`
	RejectionReasons       map[string]int `json:"rejectionReasons,omitempty"`
	Insights               []string       `json:"insights,omitempty"`
	RecommendedFilters     map[string]any `json:"recommendedFilters,omitempty"`
}

// CalibrationMetric is a server-computed tuning recommendation snapshot.
type CalibrationMetric struct {
	Metric         string  `json:"metric"`
	CurrentValue   float64 `json:"currentValue"`
	SuccessRate    float64 `json:"successRate"`
	SampleSize     int     `json:"sampleSize"`
	Recommendation string  `json:"recommendation"`
	SuggestedValue float64 `json:"suggestedValue"`
	Confidence     float64 `json:"confidence"`
	ShouldUpdate   bool    `json:"shouldUpdate"`
	Trend          string  `json:"trend"`
}
