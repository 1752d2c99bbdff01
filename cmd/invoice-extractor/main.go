package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/server"
)

func main() {
	if err := common.LoadDotEnv(); err != nil {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}
	cfg := common.LoadConfig()

	logger := app.NewLogger(os.Stdout, cfg.SlogLevel())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// MissingConfiguration surfaces here, before the listener opens
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "code", common.CodeOf(err), "error", err)
		os.Exit(2)
	}

	a, err := app.Build(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Error("failed to start", "code", common.CodeOf(err), "error", err)
		os.Exit(1)
	}
	defer a.Close()

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.Deps{
		Pipeline:    a.Processor,
		History:     a.History,
		Logger:      logger,
		MaxFileSize: cfg.Ingest.MaxFileSize,
	})

	if err := server.New(cfg.Server, router, logger).Run(ctx); err != nil {
		logger.Error("http serve error", "error", err)
		os.Exit(1)
	}
}
