package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/gridcv/config"
	"github.com/YuminosukeSato/gridcv/dataset"
	"github.com/YuminosukeSato/gridcv/experiment"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
	"github.com/YuminosukeSato/gridcv/pkg/log"
	"github.com/YuminosukeSato/gridcv/sklearn/model_selection"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)
	root := &cobra.Command{
		Use:           "gridcv",
		Short:         "Cross-validated grid search for regression models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch logFormat {
			case "console", "json":
			default:
				return errors.NewInvalidConfigurationErrorf("gridcv", "unknown log format %q (console or json)", logFormat)
			}
			return log.SetupLogger(cmd.ErrOrStderr(), logLevel, logFormat == "console")
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: console or json")

	root.AddCommand(newRunCmd(), newSelectCmd(), newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		configPath string
		workers    int
		outDir     string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the experiment described by a YAML file",
		Example: `  gridcv run --config experiment.yaml
  gridcv run --config experiment.yaml --workers 8 --out results/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("out") {
				cfg.OutputDir = outDir
			}

			summary, err := experiment.Run(cmd.Context(), cfg, log.GetLoggerWithName("gridcv"))
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "experiment file (YAML)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent fits; 0 uses every CPU (overrides the file)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (overrides the file)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func printSummary(w io.Writer, s *experiment.Summary) error {
	fmt.Fprintf(w, "run %s: %d samples, %d features, %d folds\n", s.RunID, s.Samples, s.Features, s.Folds)
	for _, m := range s.Models {
		if !m.Selected || m.Err != nil {
			fmt.Fprintf(w, "  %-16s skipped: %v\n", m.Name, m.Err)
			continue
		}
		fmt.Fprintf(w, "  %-16s %s  train=%s valid=%s failed units=%d\n",
			m.Name, m.Best.Point, dataset.FormatFloat(m.Best.TrainRMSE), dataset.FormatFloat(m.Best.ValidRMSE), m.FailedUnits())
	}
	for _, f := range s.Files {
		fmt.Fprintf(w, "wrote %s\n", f)
	}
	return nil
}

func newSelectCmd() *cobra.Command {
	var (
		results string
		top     int
	)
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Print the best row of a result table",
		Long: `Reads a result table written by "gridcv run" and prints the grid point
with the lowest mean validation RMSE. Ties go to the earlier row.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(results)
			if err != nil {
				return err
			}
			defer f.Close()

			name := strings.TrimSuffix(filepath.Base(results), experiment.GridSuffix)
			res, err := dataset.ReadResultTable(f, name)
			if err != nil {
				return err
			}
			best, err := model_selection.Select(res.Records)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\t%s\ttrainRMSE=%s\tvalidRMSE=%s\n",
				res.Model, best.Point, dataset.FormatFloat(best.TrainRMSE), dataset.FormatFloat(best.ValidRMSE))
			if top > 1 {
				for i, rec := range model_selection.Rank(res.Records) {
					if i >= top {
						break
					}
					fmt.Fprintf(out, "%d\t%s\t%s\n", i+1, rec.Point, dataset.FormatFloat(rec.ValidRMSE))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&results, "results", "r", "", "result table (<model>_grid.csv)")
	cmd.Flags().IntVar(&top, "top", 0, "also print the N best rows")
	_ = cmd.MarkFlagRequired("results")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gridcv %s\n", version)
		},
	}
}
