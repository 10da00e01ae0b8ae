package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/san-kum/aeropinn/internal/config"
	"github.com/san-kum/aeropinn/internal/logging"
)

var (
	dataDir   string
	logLevel  string
	logFormat string
	log       logging.Logger = logging.Nop()
)

// main registers the aeropinn commands and exits with status 1 if the
// selected command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "aeropinn",
		Short:         "physics-informed flow field trainer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindEnv(cmd); err != nil {
				return err
			}
			log = newLogger(logLevel, logFormat)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultRunsDir, "runs directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "console or json")

	rootCmd.AddCommand(
		newTrainCmd(),
		newGenerateCmd(),
		newPredictCmd(),
		newRunsCmd(),
		newPlotCmd(),
		newExportCmd(),
		newCheckpointsCmd(),
		newPresetsCmd(),
		newConfigCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bindEnv fills every flag the user did not set from an AEROPINN_<FLAG>
// environment variable (dashes become underscores).
func bindEnv(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix("aeropinn")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}
		key := "AEROPINN_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if _, ok := os.LookupEnv(key); !ok {
			return
		}
		if setErr := cmd.Flags().Set(f.Name, v.GetString(f.Name)); setErr != nil {
			err = fmt.Errorf("%s: %w", key, setErr)
		}
	})
	return err
}

func newLogger(level, format string) logging.Logger {
	if level == "" {
		level = "info"
	}
	if format == "json" {
		return logging.NewJSON(os.Stderr, level)
	}
	return logging.NewConsole(os.Stderr, level)
}
