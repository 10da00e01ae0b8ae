package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/san-kum/aeropinn/internal/config"
	"github.com/san-kum/aeropinn/internal/dataset"
	"github.com/san-kum/aeropinn/internal/experiment"
	"github.com/san-kum/aeropinn/internal/logging"
	"github.com/san-kum/aeropinn/internal/storage"
)

type trainFlags struct {
	configFile    string
	preset        string
	epochs        int
	batchSize     int
	valFraction   float64
	physicsWeight float64
	lr            float64
	reynolds      float64
	mach          float64
	seed          int64
	checkpoints   string
	every         int
	hidden        int
	layers        int
	activation    string
	optimizer     string
	residual      string
	synthetic     int
	profile       string
}

func newTrainCmd() *cobra.Command {
	cmd, _ := trainCommand()
	return cmd
}

func trainCommand() (*cobra.Command, *trainFlags) {
	f := &trainFlags{}
	cmd := &cobra.Command{
		Use:   "train [csv]",
		Short: "train a flow model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, f, args)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.configFile, "config", "", "config file path (yaml or toml)")
	fl.StringVar(&f.preset, "preset", "", "use preset configuration")
	fl.IntVar(&f.epochs, "epochs", config.DefaultEpochs, "number of epochs")
	fl.IntVar(&f.batchSize, "batch-size", config.DefaultBatchSize, "batch size")
	fl.Float64Var(&f.valFraction, "val-fraction", config.DefaultValFraction, "validation fraction")
	fl.Float64Var(&f.physicsWeight, "physics-weight", config.DefaultPhysicsWeight, "weight of the physics residual")
	fl.Float64Var(&f.lr, "lr", 1e-3, "learning rate")
	fl.Float64Var(&f.reynolds, "reynolds", config.DefaultReynolds, "reynolds number")
	fl.Float64Var(&f.mach, "mach", config.DefaultMach, "mach number")
	fl.Int64Var(&f.seed, "seed", 42, "random seed for split, shuffling and initialization")
	fl.StringVar(&f.checkpoints, "checkpoints", "", "checkpoint directory (default: inside the run)")
	fl.IntVar(&f.every, "checkpoint-every", 10, "epochs between checkpoints")
	fl.IntVar(&f.hidden, "hidden", 128, "hidden layer width")
	fl.IntVar(&f.layers, "layers", 3, "number of hidden layers")
	fl.StringVar(&f.activation, "activation", "tanh", "hidden activation")
	fl.StringVar(&f.optimizer, "optimizer", "adam", "adam, sgd or momentum")
	fl.StringVar(&f.residual, "residual", "navier_stokes", "navier_stokes or detached")
	fl.IntVar(&f.synthetic, "synthetic", config.DefaultSynthetic, "synthetic rows when no csv is given")
	fl.StringVar(&f.profile, "profile", "", "write a cpu profile to this directory")
	return cmd, f
}

// buildConfig layers defaults, preset, config file and explicit flags, in
// that order.
func buildConfig(cmd *cobra.Command, f *trainFlags, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.preset != "" && !config.ApplyPreset(cfg, f.preset) {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", f.preset, config.ListPresets())
	}
	if f.configFile != "" {
		if err := config.LoadInto(f.configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if len(args) == 1 {
		cfg.Dataset.Path = args[0]
	}

	changed := cmd.Flags().Changed
	if changed("epochs") {
		cfg.Training.Epochs = f.epochs
	}
	if changed("batch-size") {
		cfg.Dataset.BatchSize = f.batchSize
	}
	if changed("val-fraction") {
		cfg.Dataset.ValFraction = f.valFraction
	}
	if changed("physics-weight") {
		cfg.Training.PhysicsWeight = f.physicsWeight
	}
	if changed("lr") {
		cfg.Training.LearningRate = f.lr
	}
	if changed("reynolds") {
		cfg.Condition.Reynolds = f.reynolds
	}
	if changed("mach") {
		cfg.Condition.Mach = f.mach
	}
	if changed("seed") {
		cfg.Dataset.Seed = f.seed
		cfg.Training.Seed = f.seed
	}
	if changed("checkpoints") {
		cfg.Output.CheckpointDir = f.checkpoints
	}
	if changed("checkpoint-every") {
		cfg.Training.CheckpointEvery = f.every
	}
	if changed("hidden") {
		cfg.Model.HiddenSize = f.hidden
	}
	if changed("layers") {
		cfg.Model.HiddenLayers = f.layers
	}
	if changed("activation") {
		cfg.Model.Activation = f.activation
	}
	if changed("optimizer") {
		cfg.Training.Optimizer = f.optimizer
	}
	if changed("residual") {
		cfg.Training.Residual = f.residual
	}
	if changed("synthetic") {
		cfg.Dataset.Synthetic = f.synthetic
	}
	if changed("data") {
		cfg.Output.RunsDir = dataDir
	}
	if changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if cfg.Output.CheckpointDir != "" {
		dir, err := homedir.Expand(cfg.Output.CheckpointDir)
		if err != nil {
			return nil, err
		}
		cfg.Output.CheckpointDir = dir
	}
	return cfg, cfg.Validate()
}

func runTrain(cmd *cobra.Command, f *trainFlags, args []string) error {
	cfg, err := buildConfig(cmd, f, args)
	if err != nil {
		return err
	}

	if f.profile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(f.profile), profile.Quiet).Stop()
	}

	runsDir, err := cfg.RunsDir()
	if err != nil {
		return err
	}
	exp := experiment.New(cfg, storage.New(runsDir), newLogger(cfg.Log.Level, cfg.Log.Format))
	exp.SetPreset(f.preset)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := exp.Run(ctx)
	if res != nil && res.RunID != "" {
		fmt.Printf("run: %s\n", res.RunID)
	}
	if err != nil {
		return err
	}

	fmt.Printf("checkpoints: %s\n", res.CheckpointDir)
	if last, ok := res.History.Last(); ok {
		fmt.Printf("final: data=%.6f physics=%.6f total=%.6f\n", last.DataLoss, last.PhysicsLoss, last.TotalLoss)
	}
	for _, name := range []string{"rmse_u", "rmse_v", "rmse_p", "within_tolerance"} {
		if v, ok := res.Metrics[name]; ok {
			fmt.Printf("%s: %.6f\n", name, v)
		}
	}
	return nil
}

func newGenerateCmd() *cobra.Command {
	var (
		samples int
		seed    int64
	)
	cmd := &cobra.Command{
		Use:   "generate [out.csv]",
		Short: "write a synthetic flow dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := dataset.Generate(samples, seed)
			if err := dataset.SaveCSV(args[0], rows); err != nil {
				return err
			}
			log.Info("dataset written", logging.String("path", args[0]), logging.Int("rows", len(rows)))
			return nil
		},
	}
	cmd.Flags().IntVar(&samples, "samples", config.DefaultSynthetic, "number of rows")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	return cmd
}

func newConfigCmd() *cobra.Command {
	var preset string
	cmd := &cobra.Command{
		Use:   "config [out.yaml|out.toml]",
		Short: "write the default (or a preset) configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if preset != "" {
				if cfg = config.GetPreset(preset); cfg == nil {
					return fmt.Errorf("unknown preset: %s", preset)
				}
			}
			return config.Save(args[0], cfg)
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "", "start from a preset")
	return cmd
}
