package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/san-kum/aeropinn/internal/aero"
	"github.com/san-kum/aeropinn/internal/checkpoint"
	"github.com/san-kum/aeropinn/internal/config"
	"github.com/san-kum/aeropinn/internal/export"
	"github.com/san-kum/aeropinn/internal/inference"
	"github.com/san-kum/aeropinn/internal/logging"
	"github.com/san-kum/aeropinn/internal/models"
	"github.com/san-kum/aeropinn/internal/storage"
	"github.com/san-kum/aeropinn/internal/trainer"
)

func runStore() (*storage.Store, error) {
	dir, err := homedir.Expand(dataDir)
	if err != nil {
		return nil, err
	}
	return storage.New(dir), nil
}

// resolveCheckpoint accepts a checkpoint file, a checkpoint directory or a
// run id and returns the store and file name to load.
func resolveCheckpoint(arg string) (*checkpoint.Store, string, error) {
	path, err := homedir.Expand(arg)
	if err != nil {
		return nil, "", err
	}
	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			store, err := checkpoint.Open(filepath.Dir(path))
			return store, filepath.Base(path), err
		}
		return latestIn(path)
	}
	runs, err := runStore()
	if err != nil {
		return nil, "", err
	}
	if _, err := runs.Load(arg); err != nil {
		return nil, "", fmt.Errorf("%s is neither a checkpoint nor a run: %w", arg, err)
	}
	return latestIn(runs.CheckpointDir(arg))
}

func latestIn(dir string) (*checkpoint.Store, string, error) {
	store, err := checkpoint.Open(dir)
	if err != nil {
		return nil, "", err
	}
	latest, err := store.Latest()
	if err != nil {
		return nil, "", err
	}
	return store, latest.Name, nil
}

func newPredictCmd() *cobra.Command {
	var (
		xs, ys, aoa    []float64
		reynolds, mach float64
		asJSON         bool
	)
	cmd := &cobra.Command{
		Use:   "predict [checkpoint|dir|run_id]",
		Short: "evaluate a trained model at query points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(xs) != len(ys) || len(xs) != len(aoa) {
				return fmt.Errorf("--x, --y and --aoa need the same number of values (%d, %d, %d)", len(xs), len(ys), len(aoa))
			}
			store, name, err := resolveCheckpoint(args[0])
			if err != nil {
				return err
			}
			p, err := inference.Load(store, name, models.Architecture{})
			if err != nil {
				return err
			}

			pts := make([]inference.Point, len(xs))
			for i := range pts {
				pts[i] = inference.Point{X: xs[i], Y: ys[i], AoA: aoa[i]}
			}
			cond := aero.FlowCondition{Reynolds: reynolds, Mach: mach}
			preds, err := p.Predict(pts, cond)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(preds)
			}
			fmt.Printf("checkpoint: %s (%s)\n", store.Path(name), p.Architecture())
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "X\tY\tAOA\tU\tV\tP")
			for i, pr := range preds {
				fmt.Fprintf(w, "%.4f\t%.4f\t%.2f\t%.6f\t%.6f\t%.6f\n", pts[i].X, pts[i].Y, pts[i].AoA, pr.U, pr.V, pr.P)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Float64SliceVar(&xs, "x", []float64{0}, "x coordinates")
	cmd.Flags().Float64SliceVar(&ys, "y", []float64{0}, "y coordinates")
	cmd.Flags().Float64SliceVar(&aoa, "aoa", []float64{0}, "angles of attack in degrees")
	cmd.Flags().Float64Var(&reynolds, "reynolds", config.DefaultReynolds, "reynolds number")
	cmd.Flags().Float64Var(&mach, "mach", config.DefaultMach, "mach number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print json")
	return cmd
}

func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "list recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := runStore()
			if err != nil {
				return err
			}
			runs, err := st.List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIME\tSTATUS\tDATASET\tEPOCHS\tPHYS_W\tCONDITION\tMODEL")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%g\t%s\t%s\n",
					run.ID,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Status,
					run.Dataset,
					run.Epochs,
					run.PhysicsWeight,
					run.Condition,
					run.Architecture,
				)
			}
			return w.Flush()
		},
	}
}

func newPlotCmd() *cobra.Command {
	var (
		columns []string
		height  int
		width   int
		svgPath string
	)
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot loss curves of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := runStore()
			if err != nil {
				return err
			}
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			h, err := st.LoadHistory(args[0])
			if err != nil {
				return err
			}
			if len(h) == 0 {
				return fmt.Errorf("no data to plot")
			}

			if svgPath != "" {
				return writeSVG(svgPath, h, columns)
			}

			fmt.Printf("run: %s\n", meta.ID)
			fmt.Printf("condition: %s  physics weight: %g\n", meta.Condition, meta.PhysicsWeight)
			fmt.Printf("epochs: %d\n\n", len(h))

			for _, col := range columns {
				data, err := h.Column(col)
				if err != nil {
					return err
				}
				graph := asciigraph.Plot(data,
					asciigraph.Height(height),
					asciigraph.Width(width),
					asciigraph.Caption(col+" vs epoch"),
				)
				fmt.Println(graph)
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&columns, "metric", []string{"total", "data", "physics"}, "history columns to plot")
	cmd.Flags().IntVar(&height, "height", 10, "plot height")
	cmd.Flags().IntVar(&width, "width", 80, "plot width")
	cmd.Flags().StringVar(&svgPath, "svg", "", "write a log-scale svg chart instead of printing")
	return cmd
}

func writeSVG(path string, h trainer.History, columns []string) error {
	series, err := export.HistorySeries(h, columns...)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteSVG(f, series, export.DefaultSVGOptions()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info("chart written", logging.String("path", path))
	return nil
}

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and history as json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := runStore()
			if err != nil {
				return err
			}
			if out == "" {
				return st.Export(os.Stdout, args[0])
			}
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			h, err := st.LoadHistory(args[0])
			if err != nil {
				return err
			}
			return storage.ExportFile(out, meta, h)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newCheckpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoints [dir|run_id]",
		Short: "list epoch checkpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := homedir.Expand(args[0])
			if err != nil {
				return err
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				runs, err := runStore()
				if err != nil {
					return err
				}
				if _, err := runs.Load(args[0]); err != nil {
					return err
				}
				dir = runs.CheckpointDir(args[0])
			}
			store, err := checkpoint.Open(dir)
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no checkpoints found")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "EPOCH\tFILE\tSIZE\tWRITTEN")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", e.Epoch, e.Name, e.Size, e.ModTime.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, name := range config.ListPresets() {
				fmt.Fprintf(w, "%s\t%s\n", name, config.Presets[name].Description)
			}
			w.Flush()
		},
	}
}
