package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lodestar-viz/lodestar/pkg/errors"
)

func TestDefaultTuningValid(t *testing.T) {
	if err := DefaultTuning().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestTuningValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tuning)
	}{
		{"zero damping", func(tu *Tuning) { tu.Damping = 0 }},
		{"damping above one", func(tu *Tuning) { tu.Damping = 1.5 }},
		{"zero timestep", func(tu *Tuning) { tu.Timestep = 0 }},
		{"max below timestep", func(tu *Tuning) { tu.MaxTimestep = tu.Timestep / 2 }},
		{"anneal rate below one", func(tu *Tuning) { tu.AnnealRate = 0.5 }},
		{"negative anneal after", func(tu *Tuning) { tu.AnnealAfter = -1 }},
		{"zero rest length", func(tu *Tuning) { tu.RestLength = 0 }},
		{"negative node size", func(tu *Tuning) { tu.NodeSize = -1 }},
	}

	for _, tt := range tests {
		tu := DefaultTuning()
		tt.mutate(&tu)
		err := tu.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tt.name)
			continue
		}
		if !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("%s: code = %v, want INVALID_INPUT", tt.name, errors.GetCode(err))
		}
	}
}

func writeTuningFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write tuning file: %v", err)
	}
	return path
}

func TestLoadTuning(t *testing.T) {
	path := writeTuningFile(t, "repulsion = 80.0\ndamping = 0.85\n")

	tu, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning: %v", err)
	}
	if tu.Repulsion != 80.0 {
		t.Errorf("Repulsion = %g, want 80", tu.Repulsion)
	}
	if tu.Damping != 0.85 {
		t.Errorf("Damping = %g, want 0.85", tu.Damping)
	}
	// Unset fields keep their defaults.
	if tu.Spring != DefaultTuning().Spring {
		t.Errorf("Spring = %g, want default %g", tu.Spring, DefaultTuning().Spring)
	}
}

func TestLoadTuningUnknownKey(t *testing.T) {
	path := writeTuningFile(t, "repulsionn = 80.0\n")
	if _, err := LoadTuning(path); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown key should fail with INVALID_INPUT, got %v", err)
	}
}

func TestLoadTuningInvalidValues(t *testing.T) {
	path := writeTuningFile(t, "damping = 2.0\n")
	if _, err := LoadTuning(path); err == nil {
		t.Error("out-of-range value should fail validation")
	}
}

func TestLoadTuningMissingFile(t *testing.T) {
	if _, err := LoadTuning(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("missing file should fail")
	}
}
