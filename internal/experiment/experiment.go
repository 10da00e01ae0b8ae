package experiment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/san-kum/aeropinn/internal/aero"
	"github.com/san-kum/aeropinn/internal/checkpoint"
	"github.com/san-kum/aeropinn/internal/config"
	"github.com/san-kum/aeropinn/internal/dataset"
	"github.com/san-kum/aeropinn/internal/logging"
	"github.com/san-kum/aeropinn/internal/metrics"
	"github.com/san-kum/aeropinn/internal/models"
	"github.com/san-kum/aeropinn/internal/optim"
	"github.com/san-kum/aeropinn/internal/physics"
	"github.com/san-kum/aeropinn/internal/storage"
	"github.com/san-kum/aeropinn/internal/trainer"
)

// Experiment assembles a training run from a config: data, model,
// optimizer, residual, checkpoint store and run record.
type Experiment struct {
	cfg       *config.Config
	preset    string
	runs      *storage.Store
	log       logging.Logger
	registry  *Registry
	observers []trainer.Observer
}

type Result struct {
	RunID         string
	CheckpointDir string
	History       trainer.History
	Metrics       map[string]float64
	Model         *models.FlowModel
	TrainSize     int
	ValSize       int
}

// New prepares an experiment. runs may be nil, in which case nothing is
// recorded and checkpoints go to cfg.Output.CheckpointDir, if set.
func New(cfg *config.Config, runs *storage.Store, log logging.Logger) *Experiment {
	if log == nil {
		log = logging.Nop()
	}
	return &Experiment{
		cfg:      cfg,
		runs:     runs,
		log:      log,
		registry: NewRegistry(),
	}
}

func (e *Experiment) SetPreset(name string)         { e.preset = name }
func (e *Experiment) AddObserver(o trainer.Observer) { e.observers = append(e.observers, o) }
func (e *Experiment) Registry() *Registry            { return e.registry }

// LoadSamples reads the configured CSV or generates synthetic rows.
func (e *Experiment) LoadSamples() ([]aero.FlowSample, string, error) {
	if e.cfg.Dataset.Path != "" {
		samples, err := dataset.LoadCSV(e.cfg.Dataset.Path)
		return samples, e.cfg.Dataset.Path, err
	}
	n := e.cfg.Dataset.Synthetic
	return dataset.Generate(n, e.cfg.Dataset.Seed), fmt.Sprintf("synthetic:%d", n), nil
}

// Run trains to completion or failure. A run record is written in both
// cases; the returned Result carries whatever history was completed.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	cfg := e.cfg
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	samples, source, err := e.LoadSamples()
	if err != nil {
		return nil, err
	}
	part, err := dataset.Split(samples, cfg.Dataset.ValFraction, dataset.SplitOptions{
		Shuffle: cfg.Dataset.Shuffle,
		Seed:    cfg.Dataset.Seed,
	})
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Dataset.Seed + 1))
	trainLoader, err := dataset.NewLoader(part.Train, cfg.Dataset.BatchSize, true, rng)
	if err != nil {
		return nil, err
	}
	valLoader, err := dataset.NewLoader(part.Validation, cfg.Dataset.BatchSize, false, nil)
	if err != nil {
		return nil, err
	}
	for name, l := range map[string]*dataset.Loader{"train": trainLoader, "validation": valLoader} {
		if l.Clamped() {
			e.log.Warn("batch size exceeds split, using a single batch per epoch",
				logging.String("split", name),
				logging.Int("batch_size", cfg.Dataset.BatchSize),
				logging.Int("samples", l.Len()))
		}
	}

	model, err := models.New(cfg.Model, cfg.Training.Seed)
	if err != nil {
		return nil, err
	}
	opt, err := e.registry.GetOptimizer(cfg.Training.Optimizer, cfg.Training.LearningRate)
	if err != nil {
		return nil, err
	}
	residual, err := e.registry.GetResidual(cfg.Training.Residual, cfg.Condition)
	if err != nil {
		return nil, err
	}

	res := &Result{Model: model, TrainSize: len(part.Train), ValSize: len(part.Validation)}
	meta := &storage.RunMetadata{
		Preset:        e.preset,
		Dataset:       source,
		Samples:       len(samples),
		TrainSize:     res.TrainSize,
		ValSize:       res.ValSize,
		Seed:          cfg.Training.Seed,
		Epochs:        cfg.Training.Epochs,
		BatchSize:     trainLoader.BatchSize(),
		ValFraction:   cfg.Dataset.ValFraction,
		PhysicsWeight: cfg.Training.PhysicsWeight,
		LearningRate:  cfg.Training.LearningRate,
		Optimizer:     opt.Name(),
		Condition:     cfg.Condition,
		Architecture:  cfg.Model,
	}

	res.CheckpointDir = cfg.Output.CheckpointDir
	if e.runs != nil {
		if err := e.runs.Init(); err != nil {
			return nil, err
		}
		if res.RunID, err = e.runs.Create(meta); err != nil {
			return nil, err
		}
		if res.CheckpointDir == "" {
			res.CheckpointDir = e.runs.CheckpointDir(res.RunID)
		}
	}

	var (
		history  trainer.History
		store    *checkpoint.Store
		trainErr error
	)
	tr, err := e.newTrainer(model, trainLoader, valLoader, opt, residual, res.CheckpointDir)
	if err != nil {
		trainErr = fmt.Errorf("prepare run: %w", err)
	} else {
		store = tr.store
		e.log.Info("run prepared",
			logging.String("run", res.RunID),
			logging.String("dataset", source),
			logging.Int("train", res.TrainSize),
			logging.Int("validation", res.ValSize),
			logging.String("model", cfg.Model.String()),
			logging.Int("workers", aero.Workers))

		history, trainErr = tr.Train(ctx)
		res.History = history
	}

	if trainErr == nil {
		res.Metrics, err = metrics.Collect(model, valLoader.Epoch(), cfg.Condition, e.registry.DefaultMetrics()...)
		if err != nil {
			trainErr = fmt.Errorf("validation metrics: %w", err)
		}
	}

	if store != nil {
		if entries, err := store.List(); err == nil {
			for _, en := range entries {
				meta.Checkpoints = append(meta.Checkpoints, en.Name)
			}
		}
	}

	if e.runs != nil {
		meta.Metrics = res.Metrics
		meta.Status = storage.StatusCompleted
		if trainErr != nil {
			meta.Status = storage.StatusFailed
			meta.Error = trainErr.Error()
		}
		if err := e.runs.Save(meta, history); err != nil {
			return res, errors.Join(trainErr, fmt.Errorf("save run: %w", err))
		}
	}
	return res, trainErr
}

type preparedTrainer struct {
	*trainer.Trainer
	store *checkpoint.Store
}

// newTrainer assembles the trainer for a run whose record already exists.
func (e *Experiment) newTrainer(model *models.FlowModel, train, val *dataset.Loader, opt optim.Optimizer, residual physics.Residual, ckptDir string) (*preparedTrainer, error) {
	tr, err := trainer.New(model, train, e.cfg.Trainer())
	if err != nil {
		return nil, err
	}
	tr.SetOptimizer(opt)
	tr.SetResidual(residual)
	tr.SetValidation(val)

	p := &preparedTrainer{Trainer: tr}
	if ckptDir != "" {
		if p.store, err = checkpoint.NewStore(ckptDir); err != nil {
			return nil, err
		}
		tr.SetCheckpoints(p.store)
	}
	tr.AddObserver(logging.NewObserver(e.log, e.cfg.Log.Every))
	for _, o := range e.observers {
		tr.AddObserver(o)
	}
	return p, nil
}
