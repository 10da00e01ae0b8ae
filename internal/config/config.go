package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/aeropinn/internal/aero"
	"github.com/san-kum/aeropinn/internal/models"
	"github.com/san-kum/aeropinn/internal/optim"
	"github.com/san-kum/aeropinn/internal/physics"
	"github.com/san-kum/aeropinn/internal/trainer"
)

const (
	DefaultEpochs        = 100
	DefaultBatchSize     = 32
	DefaultValFraction   = 0.2
	DefaultPhysicsWeight = 1.0
	DefaultReynolds      = 1e6
	DefaultMach          = 0.3
	DefaultRunsDir       = "~/.aeropinn/runs"
	DefaultSynthetic     = 1000
)

type Config struct {
	Dataset   DatasetConfig       `yaml:"dataset" toml:"dataset"`
	Model     models.Architecture `yaml:"model" toml:"model"`
	Training  TrainingConfig      `yaml:"training" toml:"training"`
	Condition aero.FlowCondition  `yaml:"condition" toml:"condition"`
	Output    OutputConfig        `yaml:"output" toml:"output"`
	Log       LogConfig           `yaml:"log" toml:"log"`
}

type DatasetConfig struct {
	// Path to a CSV file. When empty, Synthetic rows are generated.
	Path        string  `yaml:"path" toml:"path"`
	Synthetic   int     `yaml:"synthetic" toml:"synthetic"`
	ValFraction float64 `yaml:"val_fraction" toml:"val_fraction"`
	BatchSize   int     `yaml:"batch_size" toml:"batch_size"`
	Shuffle     bool    `yaml:"shuffle" toml:"shuffle"`
	Seed        int64   `yaml:"seed" toml:"seed"`
}

type TrainingConfig struct {
	Epochs          int     `yaml:"epochs" toml:"epochs"`
	PhysicsWeight   float64 `yaml:"physics_weight" toml:"physics_weight"`
	LearningRate    float64 `yaml:"learning_rate" toml:"learning_rate"`
	Optimizer       string  `yaml:"optimizer" toml:"optimizer"`
	Residual        string  `yaml:"residual" toml:"residual"`
	ClipNorm        float64 `yaml:"clip_norm" toml:"clip_norm"`
	CheckpointEvery int     `yaml:"checkpoint_every" toml:"checkpoint_every"`
	DecayStep       int     `yaml:"decay_step" toml:"decay_step"`
	DecayGamma      float64 `yaml:"decay_gamma" toml:"decay_gamma"`
	Seed            int64   `yaml:"seed" toml:"seed"`
}

type OutputConfig struct {
	RunsDir string `yaml:"runs_dir" toml:"runs_dir"`
	// CheckpointDir overrides the per-run checkpoint directory.
	CheckpointDir string `yaml:"checkpoint_dir" toml:"checkpoint_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	// Every is the epoch interval of info-level progress lines.
	Every int `yaml:"every" toml:"every"`
}

func DefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Synthetic:   DefaultSynthetic,
			ValFraction: DefaultValFraction,
			BatchSize:   DefaultBatchSize,
			Shuffle:     true,
			Seed:        42,
		},
		Model: models.DefaultArchitecture(),
		Training: TrainingConfig{
			Epochs:          DefaultEpochs,
			PhysicsWeight:   DefaultPhysicsWeight,
			LearningRate:    optim.DefaultLearningRate,
			Optimizer:       "adam",
			Residual:        "navier_stokes",
			ClipNorm:        optim.DefaultClipNorm,
			CheckpointEvery: trainer.DefaultCheckpointEvery,
			DecayStep:       optim.DefaultDecayStep,
			DecayGamma:      optim.DefaultDecayGamma,
			Seed:            42,
		},
		Condition: aero.FlowCondition{Reynolds: DefaultReynolds, Mach: DefaultMach},
		Output:    OutputConfig{RunsDir: DefaultRunsDir},
		Log:       LogConfig{Level: "info", Format: "console", Every: trainer.DefaultCheckpointEvery},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads a YAML or TOML (by extension) file over the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto overlays the keys present in the file onto cfg.
func LoadInto(path string, cfg *Config) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	var data []byte
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Dataset.Path == "" && c.Dataset.Synthetic < 2 {
		return fmt.Errorf("dataset: no path and synthetic size %d", c.Dataset.Synthetic)
	}
	if !(c.Dataset.ValFraction > 0 && c.Dataset.ValFraction < 1) {
		return fmt.Errorf("dataset: validation fraction %g outside (0, 1)", c.Dataset.ValFraction)
	}
	if c.Dataset.BatchSize <= 0 {
		return fmt.Errorf("dataset: batch size must be positive, got %d", c.Dataset.BatchSize)
	}
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if _, err := optim.ByName(c.Training.Optimizer, c.Training.LearningRate); err != nil {
		return err
	}
	if _, err := physics.ByName(c.Training.Residual, c.Condition); err != nil {
		return err
	}
	return c.Trainer().Validate()
}

// Trainer extracts the trainer settings.
func (c *Config) Trainer() trainer.Config {
	return trainer.Config{
		Epochs:          c.Training.Epochs,
		PhysicsWeight:   c.Training.PhysicsWeight,
		LearningRate:    c.Training.LearningRate,
		ClipNorm:        c.Training.ClipNorm,
		CheckpointEvery: c.Training.CheckpointEvery,
		DecayStep:       c.Training.DecayStep,
		DecayGamma:      c.Training.DecayGamma,
		Condition:       c.Condition,
	}
}

// RunsDir returns the runs directory with ~ expanded.
func (c *Config) RunsDir() (string, error) {
	return homedir.Expand(c.Output.RunsDir)
}
