package experiments

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is a static, read-only table of experiments, defined at process start.
type Catalog struct {
	byID map[string]Experiment
}

// NewCatalog builds a catalog from the given experiments.
func NewCatalog(experiments []Experiment) *Catalog {
	byID := make(map[string]Experiment, len(experiments))
	for _, exp := range experiments {
		if exp.ID == "" {
			continue
		}
		byID[exp.ID] = exp
	}
	return &Catalog{byID: byID}
}

// DefaultCatalog returns the compiled-in marketplace experiments.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Experiment{
		{
			ID:       ExperimentMatchThreshold,
			Name:     "AI Match Score Threshold",
			Variants: []string{"control", "test_a", "test_b"},
			Active:   true,
		},
		{
			ID:       ExperimentChatStyle,
			Name:     "AI Chat Assistant Style",
			Variants: []string{"control", "test_a", "test_b"},
			Active:   true,
		},
		{
			ID:       ExperimentPricing,
			Name:     "AI Pricing Suggestion Multiplier",
			Variants: []string{"control", "test_a", "test_b"},
			Active:   true,
		},
	})
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(file.Experiments), nil
}

// Find returns the experiment with the given id.
func (c *Catalog) Find(experimentID string) (Experiment, bool) {
	exp, ok := c.byID[experimentID]
	return exp, ok
}
