package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/aeropinn/internal/models"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Model != models.DefaultArchitecture() {
		t.Errorf("expected default architecture, got %s", cfg.Model)
	}
	tc := cfg.Trainer()
	if tc.ClipNorm != 1.0 || tc.DecayStep != 50 || tc.DecayGamma != 0.9 || tc.CheckpointEvery != 10 {
		t.Errorf("unexpected training policy: %+v", tc)
	}
	if tc.PhysicsWeight != 1.0 {
		t.Errorf("expected physics weight 1, got %f", tc.PhysicsWeight)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("quick")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Training.Epochs != 20 {
		t.Errorf("expected 20 epochs, got %d", cfg.Training.Epochs)
	}
	if DefaultConfig().Training.Epochs != DefaultEpochs {
		t.Error("preset leaked into defaults")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if ApplyPreset(DefaultConfig(), "nonexistent") {
		t.Error("expected false for nonexistent preset")
	}
}

func TestPresetsValidate(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "run.yaml")
	tomlPath := filepath.Join(dir, "run.toml")

	yamlDoc := `
training:
  epochs: 25
  physics_weight: 0.5
condition:
  reynolds: 20000
  mach: 0.4
model:
  hidden_size: 64
`
	tomlDoc := `
[training]
epochs = 25
physics_weight = 0.5

[condition]
reynolds = 20000.0
mach = 0.4

[model]
hidden_size = 64
`
	if err := os.WriteFile(yamlPath, []byte(yamlDoc), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tomlPath, []byte(tomlDoc), 0644); err != nil {
		t.Fatal(err)
	}

	fromYAML, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	fromTOML, err := Load(tomlPath)
	if err != nil {
		t.Fatalf("load toml: %v", err)
	}

	for name, cfg := range map[string]*Config{"yaml": fromYAML, "toml": fromTOML} {
		if cfg.Training.Epochs != 25 || cfg.Training.PhysicsWeight != 0.5 {
			t.Errorf("%s: training not applied: %+v", name, cfg.Training)
		}
		if cfg.Condition.Reynolds != 20000 || cfg.Condition.Mach != 0.4 {
			t.Errorf("%s: condition not applied: %+v", name, cfg.Condition)
		}
		if cfg.Model.HiddenSize != 64 || cfg.Model.HiddenLayers != models.DefaultHiddenLayers {
			t.Errorf("%s: model merged incorrectly: %s", name, cfg.Model)
		}
		if cfg.Training.LearningRate != DefaultConfig().Training.LearningRate {
			t.Errorf("%s: default learning rate lost", name)
		}
	}
	if *fromYAML != *fromTOML {
		t.Errorf("yaml and toml configs differ:\n%+v\n%+v", fromYAML, fromTOML)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"out.yaml", "out.toml"} {
		cfg := GetPreset("transonic")
		path := filepath.Join(dir, name)
		if err := Save(path, cfg); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		if *loaded != *cfg {
			t.Errorf("%s: round trip mismatch", name)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"val fraction", func(c *Config) { c.Dataset.ValFraction = 1 }},
		{"batch size", func(c *Config) { c.Dataset.BatchSize = 0 }},
		{"optimizer", func(c *Config) { c.Training.Optimizer = "rmsprop" }},
		{"residual", func(c *Config) { c.Training.Residual = "euler" }},
		{"activation", func(c *Config) { c.Model.Activation = "relu6" }},
		{"mach", func(c *Config) { c.Condition.Mach = 1 }},
		{"no data", func(c *Config) { c.Dataset.Synthetic = 0 }},
		{"input size", func(c *Config) { c.Model.InputSize = 4 }},
		{"decay step", func(c *Config) { c.Training.DecayStep = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadIntoKeepsPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	if err := os.WriteFile(path, []byte("training:\n  epochs: 7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := GetPreset("physics_heavy")
	if err := LoadInto(path, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Training.Epochs != 7 {
		t.Errorf("expected file to override epochs, got %d", cfg.Training.Epochs)
	}
	if cfg.Training.PhysicsWeight != 10 {
		t.Errorf("expected preset physics weight to survive, got %f", cfg.Training.PhysicsWeight)
	}
}
