package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"namerank/internal/app"
	"namerank/internal/config"
	"namerank/internal/exporter"
)

// WorkbookFile is the workbook name written by report --xlsx
const WorkbookFile = "namerank_report.xlsx"

type reportOptions struct {
	outDir   string
	xlsx     bool
	topK     int
	quantile float64
	timeout  time.Duration
}

func newReportCommand(st *state) *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the full analysis and write the derived tables",
		Long: `Report ingests the configured dataset, runs every analysis stage and writes
one CSV file per derived table into the output directory.

Example:
  namerank report --out out
  namerank report --out out --xlsx --top-k 500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := st.setup(); err != nil {
				return err
			}
			err := st.override(func(cfg *config.Config) {
				if cmd.Flags().Changed("top-k") {
					cfg.Analysis.TopK = opts.topK
				}
				if cmd.Flags().Changed("quantile") {
					cfg.Analysis.Quantile = opts.quantile
				}
			})
			if err != nil {
				return err
			}
			return runReport(cmd, st, opts)
		},
	}

	cmd.Flags().StringVar(&opts.outDir, "out", "out", "output directory")
	cmd.Flags().BoolVar(&opts.xlsx, "xlsx", false, "also write an Excel workbook with one sheet per table")
	cmd.Flags().IntVar(&opts.topK, "top-k", 0, "override the configured top-K")
	cmd.Flags().Float64Var(&opts.quantile, "quantile", 0, "override the configured diversity quantile")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "overall timeout")
	return cmd
}

func runReport(cmd *cobra.Command, st *state, opts *reportOptions) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	application, err := app.NewApplication(ctx, st.cfg, st.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(context.WithoutCancel(ctx)); err != nil {
			st.logger.WarnContext(ctx, "telemetry shutdown failed", "error", err.Error())
		}
	}()

	report, err := application.Service.Report(ctx, application.Service.Defaults())
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	written, err := exporter.NewCSVWriter(opts.outDir, st.logger).WriteReport(ctx, report)
	if err != nil {
		return err
	}
	if opts.xlsx {
		path := filepath.Join(opts.outDir, WorkbookFile)
		if err := exporter.NewWorkbookExporter(st.logger).Export(ctx, report, path); err != nil {
			return err
		}
		written = append(written, WorkbookFile)
	}

	out := cmd.OutOrStdout()
	for _, name := range written {
		fmt.Fprintln(out, filepath.Join(opts.outDir, name))
	}
	return nil
}
