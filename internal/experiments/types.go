package experiments

import "time"

// VariantControl is the fallback variant for missing or inactive experiments.
const VariantControl = "control"

// Experiment IDs for the marketplace's active experiments.
const (
	ExperimentMatchThreshold = "match_score_threshold"
	ExperimentChatStyle      = "chat_style"
	ExperimentPricing        = "pricing_multiplier"
)

// Experiment defines a single experiment.
type Experiment struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Variants []string `yaml:"variants" json:"variants"`
	Active   bool     `yaml:"active" json:"active"`
}

// Assignment records a user's sticky experiment variant. Once created it is
// immutable for the life of the local installation.
type Assignment struct {
	ExperimentID string    `json:"experimentId"`
	Variant      string    `json:"variant"`
	AssignedAt   time.Time `json:"assignedAt"`
}

// CatalogFile is the on-disk shape of an experiment catalog.
type CatalogFile struct {
	Experiments []Experiment `yaml:"experiments"`
}
