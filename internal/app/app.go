package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
	"github.com/joseph-ayodele/invoice-extractor/internal/storage"
	"github.com/joseph-ayodele/invoice-extractor/internal/storage/local"
	s3store "github.com/joseph-ayodele/invoice-extractor/internal/storage/s3"
)

// App holds the shared dependencies of the server and the CLI.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Store     storage.Store
	History   repository.RunRepository
	Extractor extract.Extractor
	Processor *pipeline.Processor

	closers []func()
}

// Options select which dependencies Build wires.
type Options struct {
	// Offline skips the Document AI client; processing documents then fails with MissingConfiguration.
	Offline bool
	// Extractor replaces the Document AI client, mostly for tests.
	Extractor extract.Extractor
}

// NewLogger builds the text logger used by every binary.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// timestamps come from the process supervisor
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// Build validates cfg and prepares staging, history, extraction and the processor.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.ValidateRuntime(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger}

	store, err := openStore(ctx, cfg.Staging)
	if err != nil {
		return nil, err
	}
	a.Store = store

	history, err := repository.OpenHistory(ctx, cfg.History, logger)
	if err != nil {
		return nil, err
	}
	a.History = history
	a.closers = append(a.closers, history.Close)

	switch {
	case opts.Extractor != nil:
		a.Extractor = opts.Extractor
	case opts.Offline:
		a.Extractor = unconfigured{}
	default:
		client, err := extract.NewDocumentAIClient(ctx, cfg.DocumentAI, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Extractor = client
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("documentai.close.failed", "err", err)
			}
		})
	}

	ing := ingest.NewFSIngestor(store, cfg.Ingest.MaxFileSize, logger)
	a.Processor = pipeline.NewProcessor(logger, ing, a.Extractor, store, history)
	a.Processor.RetainStaging = cfg.Staging.Retain
	a.Processor.Workers = cfg.Batch.Workers
	return a, nil
}

// Close releases everything Build opened, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openStore(ctx context.Context, cfg common.StagingConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "s3":
		s, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, common.NewStageError(constants.StageConfig, common.ErrMissingConfiguration, "s3 staging", err)
		}
		return s, nil
	case "local", "":
		return local.New(cfg.Dir), nil
	}
	return nil, fmt.Errorf("%w: unknown staging backend %q", common.ErrMissingConfiguration, cfg.Backend)
}

// unconfigured stands in for the extraction client when running offline.
type unconfigured struct{}

func (unconfigured) Extract(context.Context, []byte, string) (*extract.Result, error) {
	return nil, common.NewStageError(constants.StageConfig, common.ErrMissingConfiguration,
		"document ai is not configured for this command", nil)
}
