package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/mapper"
)

var (
	envFile    string
	mode       string
	confidence bool
	withSource bool
	dayFirst   bool
)

var rootCmd = &cobra.Command{
	Use:   "invoicectl",
	Short: "Extract invoice data with Document AI and export it",
	Long: `Process invoice PDFs and images through Google Document AI, flatten the
extracted fields into rows, and write CSV, XLSX or JSON.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a KEY=VALUE file loaded before the environment is read")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
}

// addMappingFlags registers the row options shared by process, map and watch.
func addMappingFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&mode, "mode", "m", "auto", "Rows to emit: auto, invoice or line_items")
	cmd.Flags().BoolVar(&confidence, "confidence", false, "Add a <field>_confidence column after each field")
	cmd.Flags().BoolVar(&withSource, "source", true, "Add a source_file column")
	cmd.Flags().BoolVar(&dayFirst, "day-first", false, "Read ambiguous numeric dates as DD/MM")
}

func mappingOptions() (mapper.Options, error) {
	m, ok := mapper.ParseMode(mode)
	if !ok {
		return mapper.Options{}, common.NewAppError("INVALID_INPUT", "mode must be auto, invoice or line_items", common.ErrInvalidInput)
	}
	return mapper.Options{Mode: m, IncludeConfidence: confidence, DayFirst: dayFirst}, nil
}

// build loads configuration and wires the application; offline skips Document AI.
func build(ctx context.Context, offline bool) (*app.App, error) {
	if err := common.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg := common.LoadConfig()
	if !offline {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	logger := app.NewLogger(os.Stderr, cfg.SlogLevel())
	slog.SetDefault(logger)
	return app.Build(ctx, cfg, logger, app.Options{Offline: offline})
}
