package experiments

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCatalog_Find(t *testing.T) {
	catalog := DefaultCatalog()

	exp, ok := catalog.Find(ExperimentMatchThreshold)
	if !ok {
		t.Fatal("expected default experiment to be present")
	}
	if !exp.Active {
		t.Error("default experiments should be active")
	}
	if len(exp.Variants) != 3 || exp.Variants[0] != "control" {
		t.Errorf("Variants = %v", exp.Variants)
	}

	if _, ok := catalog.Find("missing"); ok {
		t.Error("missing experiment should not be found")
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiments.yaml")
	content := `
experiments:
  - id: custom_exp
    name: Custom
    variants: [control, test_a]
    active: true
  - id: retired_exp
    name: Retired
    variants: [control]
    active: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog error: %v", err)
	}
	exp, ok := catalog.Find("custom_exp")
	if !ok || !exp.Active || len(exp.Variants) != 2 {
		t.Errorf("custom_exp = %+v, ok = %v", exp, ok)
	}
	retired, ok := catalog.Find("retired_exp")
	if !ok || retired.Active {
		t.Errorf("retired_exp = %+v, ok = %v", retired, ok)
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing catalog file")
	}
}
