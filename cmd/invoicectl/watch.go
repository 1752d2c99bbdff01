package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/async"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

var (
	outDir      string
	initialScan bool
	debounce    time.Duration
	queueSize   int
	jobTimeout  time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Process invoice files as they appear in a directory",
	Long: `Watch directories recursively and process every new or rewritten invoice
file. Each document gets its own export in --out-dir named after the file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	addMappingFlags(watchCmd)
	watchCmd.Flags().StringVar(&outDir, "out-dir", "exports", "Directory for per-document exports")
	watchCmd.Flags().StringVarP(&format, "format", "f", "csv", "Export format: csv, xlsx or json")
	watchCmd.Flags().BoolVar(&initialScan, "initial-scan", false, "Process files already present on start")
	watchCmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "Skip hidden files and directories")
	watchCmd.Flags().IntVar(&queueSize, "queue-size", 64, "Files buffered before the watcher waits for a free worker")
	watchCmd.Flags().DurationVar(&jobTimeout, "timeout", 3*time.Minute, "Upper bound on processing one file")
	watchCmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Wait this long after the last write before processing")
}

func runWatch(cmd *cobra.Command, args []string) error {
	opts, err := mappingOptions()
	if err != nil {
		return err
	}
	f, ok := constants.ParseExportFormat(format)
	if !ok {
		return common.NewStageError(constants.StageExport, common.ErrUnsupportedExportFormat, format+" is not one of csv, xlsx, json", nil)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.Logger

	var queue async.Queue = async.NewProcessorQueue(a.Processor, logger,
		async.WithWorkers(a.Config.Batch.Workers),
		async.WithQueueSize(queueSize),
		async.WithProcessTimeout(jobTimeout),
		async.WithOnDone(func(job async.Job, out *pipeline.Outcome, err error) {
			if err != nil {
				return
			}
			b, _, err := a.Processor.Export(context.Background(), out.Records, string(f))
			if err != nil {
				logger.Error("watch.export.failed", "path", job.Path, "err", err)
				return
			}
			base := strings.TrimSuffix(filepath.Base(job.Path), filepath.Ext(job.Path))
			dst := filepath.Join(outDir, base+"."+f.Extension())
			if err := os.WriteFile(dst, b, 0o644); err != nil {
				logger.Error("watch.export.failed", "path", job.Path, "err", err)
				return
			}
			logger.Info("watch.export.ok", "path", job.Path, "out", dst, "records", len(out.Records))
		}),
	)

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       args,
		InitialScan: initialScan,
		SkipHidden:  skipHidden,
		Debounce:    debounce,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	logger.Info("watch.started", "roots", args, "out_dir", outDir)

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			queue.Shutdown(shutdownCtx)
			cancel()
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Error("watch.error", "err", err)
		case path, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			job := async.Job{Path: path, Options: opts, IncludeSource: withSource, TraceID: uuid.NewString()}
			if err := queue.Enqueue(ctx, job); err != nil {
				logger.Warn("watch.enqueue.failed", "path", path, "err", err)
			}
		}
	}
}
