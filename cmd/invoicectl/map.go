package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

var mapCmd = &cobra.Command{
	Use:   "map <document.json>",
	Short: "Map a saved Document AI response to rows without calling the service",
	Long: `Read a Document AI document (as saved under responses/ in the staging
directory, or returned by the REST API) and export its rows. No credentials
are needed.`,
	Args: cobra.ExactArgs(1),
	RunE: runMap,
}

func init() {
	addMappingFlags(mapCmd)
	mapCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default stdout)")
	mapCmd.Flags().StringVarP(&format, "format", "f", "csv", "Export format: csv, xlsx or json")
}

func runMap(cmd *cobra.Command, args []string) error {
	opts, err := mappingOptions()
	if err != nil {
		return err
	}
	if _, ok := constants.ParseExportFormat(format); !ok {
		return common.NewStageError(constants.StageExport, common.ErrUnsupportedExportFormat,
			fmt.Sprintf("%q is not one of csv, xlsx, json", format), nil)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return common.NewStageError(constants.StageIngest, common.ErrInvalidInput, "cannot read "+args[0], err)
	}

	ctx := cmd.Context()
	a, err := build(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if withSource {
		opts.SourceFile = filepath.Base(args[0])
	}
	records, err := a.Processor.MapSaved(ctx, data, opts)
	if err != nil {
		return err
	}
	b, _, err := a.Processor.Export(ctx, records, format)
	if err != nil {
		return err
	}
	if outPath == "" {
		_, err = cmd.OutOrStdout().Write(b)
		return err
	}
	return os.WriteFile(outPath, b, 0o644)
}
