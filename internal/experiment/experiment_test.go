package experiment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/aeropinn/internal/aero"
	"github.com/san-kum/aeropinn/internal/checkpoint"
	"github.com/san-kum/aeropinn/internal/config"
	"github.com/san-kum/aeropinn/internal/dataset"
	"github.com/san-kum/aeropinn/internal/inference"
	"github.com/san-kum/aeropinn/internal/storage"
	"github.com/san-kum/aeropinn/internal/trainer"
)

func tinyConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Dataset.Synthetic = 100
	cfg.Dataset.BatchSize = 32
	cfg.Model.HiddenSize = 8
	cfg.Model.HiddenLayers = 1
	cfg.Training.Epochs = 25
	cfg.Training.LearningRate = 5e-3
	return cfg
}

func TestRunRecordsEverything(t *testing.T) {
	runs := storage.New(t.TempDir())
	exp := New(tinyConfig(), runs, nil)
	exp.SetPreset("test")

	res, err := exp.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 80, res.TrainSize)
	assert.Equal(t, 20, res.ValSize)
	require.Len(t, res.History, 25)
	assert.Contains(t, res.Metrics, "rmse_u")

	meta, err := runs.Load(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusCompleted, meta.Status)
	assert.Equal(t, "test", meta.Preset)
	assert.Equal(t, []string{"epoch_10.ckpt", "epoch_20.ckpt"}, meta.Checkpoints)
	assert.Equal(t, "synthetic:100", meta.Dataset)

	h, err := runs.LoadHistory(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.History, h)

	store, err := checkpoint.NewStore(res.CheckpointDir)
	require.NoError(t, err)
	p, err := inference.Load(store, "epoch_20.ckpt", tinyConfig().Model)
	require.NoError(t, err)
	_, err = p.PredictOne(inference.Point{X: 0.1, Y: 0.2, AoA: 3}, tinyConfig().Condition)
	require.NoError(t, err)
}

func TestRunFromCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flow.csv")
	require.NoError(t, dataset.SaveCSV(path, dataset.Generate(30, 7)))

	cfg := tinyConfig()
	cfg.Dataset.Path = path
	cfg.Training.Epochs = 2
	cfg.Output.CheckpointDir = filepath.Join(dir, "ckpt")
	cfg.Training.CheckpointEvery = 1

	res, err := New(cfg, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.RunID)
	assert.Equal(t, 24, res.TrainSize)

	entries, err := os.ReadDir(cfg.Output.CheckpointDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRunFailureIsRecorded(t *testing.T) {
	runs := storage.New(t.TempDir())
	cfg := tinyConfig()
	cfg.Training.Epochs = 5

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exp := New(cfg, runs, nil)
	exp.AddObserver(cancelAfter{epoch: 1, cancel: cancel})

	res, err := exp.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	var runErr *trainer.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Len(t, res.History, 2)

	meta, err := runs.Load(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusFailed, meta.Status)
	assert.NotEmpty(t, meta.Error)
}

func TestRunSetupFailureIsRecorded(t *testing.T) {
	runs := storage.New(t.TempDir())
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	cfg := tinyConfig()
	cfg.Output.CheckpointDir = filepath.Join(blocker, "checkpoints")

	res, err := New(cfg, runs, nil).Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Empty(t, res.History)

	meta, err := runs.Load(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusFailed, meta.Status)
	assert.Contains(t, meta.Error, "prepare run")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := tinyConfig()
	cfg.Condition = aero.FlowCondition{Reynolds: -1}
	_, err := New(cfg, nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, aero.ErrInvalidCondition)
}

func TestRunInsufficientData(t *testing.T) {
	cfg := tinyConfig()
	cfg.Dataset.Synthetic = 2
	cfg.Dataset.ValFraction = 0.1
	_, err := New(cfg, nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, aero.ErrInsufficientData)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"adam", "momentum", "sgd"}, r.ListOptimizers())
	assert.Equal(t, []string{"detached", "navier_stokes"}, r.ListResiduals())
	assert.Contains(t, r.ListActivations(), "tanh")

	opt, err := r.GetOptimizer("", 0.1)
	require.NoError(t, err)
	assert.Equal(t, "adam", opt.Name())

	_, err = r.GetOptimizer("lbfgs", 0.1)
	assert.Error(t, err)
	_, err = r.GetResidual("euler", aero.FlowCondition{Reynolds: 1, Mach: 0})
	assert.Error(t, err)
	assert.NotEmpty(t, r.DefaultMetrics())
}

type cancelAfter struct {
	epoch  int
	cancel context.CancelFunc
}

func (c cancelAfter) OnTrainBegin(trainer.Config, int) {}
func (c cancelAfter) OnEpochEnd(r trainer.Record) {
	if r.Epoch == c.epoch {
		c.cancel()
	}
}
func (c cancelAfter) OnCheckpoint(int, string)          {}
func (c cancelAfter) OnTrainEnd(trainer.History, error) {}
