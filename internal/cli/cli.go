// Package cli implements the carprice command line: the same dataset
// summary and price predictions the HTTP API serves, run once from a shell.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/carprice/internal/config"
	"github.com/stwalsh4118/carprice/internal/dataset"
	"github.com/stwalsh4118/carprice/internal/estimator"
	"github.com/stwalsh4118/carprice/internal/logger"
	"github.com/stwalsh4118/carprice/internal/models"
	"github.com/stwalsh4118/carprice/internal/repository"
	"github.com/stwalsh4118/carprice/internal/services"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	dataPath  string
	modelPath string
	logLevel  string

	log *logger.Logger
}

// NewRootCommand builds the carprice command tree. Logs go to the command's
// error stream so that results on the output stream can be piped.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "carprice",
		Short:         "Inspect used-car listings and price cars with a trained model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.dataPath == "" {
				opts.dataPath = cfg.Data.DatasetPath
			}
			if opts.modelPath == "" {
				opts.modelPath = cfg.Data.ModelPath
			}
			level := opts.logLevel
			if level == "" {
				level = cfg.Server.LogLevel
			}
			opts.log = logger.NewWithWriter(cfg.Server.Env, cmd.ErrOrStderr()).SetLevel(level)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.dataPath, "data", "", "listings table (defaults to DATA_PATH)")
	root.PersistentFlags().StringVar(&opts.modelPath, "model", "", "model artifact (defaults to MODEL_PATH)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override")

	root.AddCommand(
		newSummaryCommand(opts),
		newPredictCommand(opts),
		newBatchCommand(opts),
	)
	return root
}

func newSummaryCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the cleaned row count and price statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := dataset.NewLoader(opts.dataPath, opts.log).Load()
			if err != nil {
				return err
			}

			service := services.NewListingService(repository.NewListingRepository(ds), opts.log)
			result, err := service.CleaningSummary(cmd.Context())
			if err != nil {
				return err
			}

			rows, cols := ds.Shape()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"rows":                rows,
				"cols":                cols,
				"rows_after_cleaning": result.Count,
				"price_summary":       result.Summary,
			})
		},
	}
}

func newPredictCommand(opts *options) *cobra.Command {
	var in models.PredictionInput

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Price a single car",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			model, err := estimator.LoadArtifact(opts.modelPath)
			if err != nil {
				return err
			}

			service := services.NewPredictionService(model, opts.log, nil)
			price, err := service.PredictSingle(cmd.Context(), in)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), formatPrice(price))
			return err
		},
	}

	cmd.Flags().StringVar(&in.Company, "company", "", "manufacturer, e.g. Maruti")
	cmd.Flags().StringVar(&in.FuelType, "fuel-type", "", "fuel type, e.g. Petrol")
	cmd.Flags().Int64Var(&in.YearNum, "year", 0, "model year")
	cmd.Flags().Float64Var(&in.KmsNum, "kms", 0, "kilometres driven")
	for _, name := range []string{"company", "fuel-type", "year"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newBatchCommand(opts *options) *cobra.Command {
	var inPath, outPath string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Price every row of a CSV or XLSX table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			model, err := estimator.LoadArtifact(opts.modelPath)
			if err != nil {
				return err
			}

			f, err := os.Open(inPath)
			if err != nil {
				return fmt.Errorf("failed to open upload: %w", err)
			}
			defer f.Close()

			table, err := dataset.ReadTable(f, dataset.FormatFromFilename(inPath))
			if err != nil {
				return err
			}

			service := services.NewPredictionService(model, opts.log, nil)
			priced, err := service.PredictBatch(cmd.Context(), table)
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				file, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				defer file.Close()
				out = file
			}
			if err := dataset.WriteCSV(out, priced); err != nil {
				return err
			}

			opts.log.Info("Batch written", map[string]interface{}{
				"rows": priced.Nrow(),
				"out":  outPath,
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "", "table to price (.csv or .xlsx)")
	cmd.Flags().StringVar(&outPath, "out", "", "output CSV (defaults to stdout)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

// ExitCode maps a command error to a process exit status: 2 for input the
// model cannot use, 1 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, services.ErrSchema), errors.Is(err, services.ErrPrediction):
		return 2
	default:
		return 1
	}
}

func formatPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
