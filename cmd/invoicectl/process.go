package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/mapper"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

var (
	outPath    string
	format     string
	skipHidden bool
	vendors    []string
	minAmount  string
)

var processCmd = &cobra.Command{
	Use:   "process <file-or-dir>...",
	Short: "Process invoice files and write one export",
	Long: `Send every PDF, PNG, JPG, JPEG or TIFF file to Document AI and write the
combined rows to a single export file. Directories are walked recursively.
A file that fails is reported and does not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	addMappingFlags(processCmd)
	processCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default invoice_data_<timestamp>.<format>)")
	processCmd.Flags().StringVarP(&format, "format", "f", "csv", "Export format: csv, xlsx or json")
	processCmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "Skip hidden files and directories")
	processCmd.Flags().StringArrayVar(&vendors, "vendor", nil, "Export only rows from this vendor (repeatable)")
	processCmd.Flags().StringVar(&minAmount, "min-amount", "", "Export only rows whose line or invoice total is at least this")
}

func runProcess(cmd *cobra.Command, args []string) error {
	opts, err := mappingOptions()
	if err != nil {
		return err
	}
	f, ok := constants.ParseExportFormat(format)
	if !ok {
		return common.NewStageError(constants.StageExport, common.ErrUnsupportedExportFormat,
			fmt.Sprintf("%q is not one of csv, xlsx, json", format), nil)
	}

	filter, err := mapper.NewFilter(vendors, minAmount)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := build(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	paths, err := collectPaths(args, a.Logger)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return common.NewStageError(constants.StageIngest, common.ErrInvalidInput, "no invoice files found", nil)
	}

	inputs := make([]pipeline.Input, len(paths))
	for i, p := range paths {
		inputs[i] = pipeline.Input{FileName: filepath.Base(p), Path: p, Options: opts, IncludeSource: withSource}
	}
	batch := a.Processor.ProcessBatch(ctx, inputs)

	out := cmd.OutOrStdout()
	for _, it := range batch.Items {
		if it.Err != nil {
			fmt.Fprintf(out, "✗ %s: %s (%s)\n", it.FileName, common.CodeOf(it.Err), it.Err)
			continue
		}
		fmt.Fprintf(out, "✓ %s: %d rows, %s\n", it.FileName, len(it.Outcome.Records), it.Outcome.Status)
	}

	records := filter.Apply(batch.Records())
	b, _, err := a.Processor.Export(ctx, records, string(f))
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = "invoice_data_" + time.Now().Format("20060102_150405") + "." + f.Extension()
	}
	if err := os.WriteFile(outPath, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	if filter.Active() {
		fmt.Fprintf(out, "Filtered out %d of %d rows\n", len(batch.Records())-len(records), len(batch.Records()))
	}
	fmt.Fprintf(out, "Wrote %d rows from %d/%d files to %s\n",
		len(records), len(batch.Items)-batch.Failed(), len(batch.Items), outPath)

	if batch.Status() == constants.RunStatusFailed {
		return fmt.Errorf("all %d files failed", len(batch.Items))
	}
	return nil
}

// collectPaths expands directories into their invoice files, keeping argument order.
func collectPaths(args []string, logger *slog.Logger) ([]string, error) {
	paths, failures, stats, err := ingest.ExpandPaths(args, skipHidden)
	for _, f := range failures {
		logger.Warn("scan.path.failed", "path", f.Path, "err", f.Err)
	}
	if err != nil {
		return nil, common.NewStageError(constants.StageIngest, common.ErrInvalidInput, "cannot read input paths", err)
	}
	logger.Debug("scan.ok", "scanned", stats.Scanned, "matched", stats.Matched, "skipped", stats.Skipped)
	return paths, nil
}
