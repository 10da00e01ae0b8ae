package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConfigDefaults(t *testing.T) {
	cmd, f := trainCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := buildConfig(cmd, f, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Training.Epochs)
	assert.Equal(t, 1.0, cfg.Training.PhysicsWeight)
	assert.Equal(t, 1000, cfg.Dataset.Synthetic)
	assert.Empty(t, cfg.Dataset.Path)
}

func TestBuildConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	body := "training:\n  epochs: 7\n  physics_weight: 3\ndataset:\n  batch_size: 16\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cmd, f := trainCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"--preset", "quick",
		"--config", path,
		"--epochs", "9",
	}))

	cfg, err := buildConfig(cmd, f, []string{"flow.csv"})
	require.NoError(t, err)
	// flag beats file, file beats preset, preset beats defaults
	assert.Equal(t, 9, cfg.Training.Epochs)
	assert.Equal(t, 3.0, cfg.Training.PhysicsWeight)
	assert.Equal(t, 16, cfg.Dataset.BatchSize)
	assert.Equal(t, 32, cfg.Model.HiddenSize)
	assert.Equal(t, "flow.csv", cfg.Dataset.Path)
}

func TestBuildConfigUnknownPreset(t *testing.T) {
	cmd, f := trainCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--preset", "hypersonic"}))

	_, err := buildConfig(cmd, f, nil)
	assert.ErrorContains(t, err, "unknown preset")
}

func TestBuildConfigRejectsInvalid(t *testing.T) {
	cmd, f := trainCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--mach", "1.5"}))

	_, err := buildConfig(cmd, f, nil)
	assert.Error(t, err)
}

func TestBindEnvFillsUnsetFlags(t *testing.T) {
	t.Setenv("AEROPINN_EPOCHS", "12")
	t.Setenv("AEROPINN_PHYSICS_WEIGHT", "0.5")
	t.Setenv("AEROPINN_BATCH_SIZE", "8")

	cmd, f := trainCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--batch-size", "64"}))
	require.NoError(t, bindEnv(cmd))

	cfg, err := buildConfig(cmd, f, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Training.Epochs)
	assert.Equal(t, 0.5, cfg.Training.PhysicsWeight)
	assert.Equal(t, 64, cfg.Dataset.BatchSize, "explicit flag wins over the environment")
}

func TestBindEnvRejectsMalformedValue(t *testing.T) {
	t.Setenv("AEROPINN_EPOCHS", "many")

	cmd, _ := trainCommand()
	require.NoError(t, cmd.ParseFlags(nil))
	assert.ErrorContains(t, bindEnv(cmd), "AEROPINN_EPOCHS")
}

func TestLatestInLeavesMissingDirectoryAlone(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nowhere")

	_, _, err := latestIn(dir)
	require.Error(t, err)
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}
