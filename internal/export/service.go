package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/mapper"
)

// SheetName is the worksheet that holds exported rows.
const SheetName = "Invoice_Data"

// Service renders export records into downloadable files.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Export serializes records in the named format. Matching is case-insensitive and
// "excel" is accepted for xlsx; any other name fails with ErrUnsupportedExportFormat.
func (s *Service) Export(ctx context.Context, records []mapper.Record, format string) ([]byte, constants.ExportFormat, error) {
	f, ok := constants.ParseExportFormat(format)
	if !ok {
		return nil, "", common.NewStageError(constants.StageExport, common.ErrUnsupportedExportFormat,
			fmt.Sprintf("%q is not one of csv, xlsx, json", format), nil)
	}
	b, err := s.Write(ctx, records, f)
	return b, f, err
}

// Write serializes records in an already parsed format.
func (s *Service) Write(ctx context.Context, records []mapper.Record, format constants.ExportFormat) ([]byte, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, s.logger)

	var (
		b   []byte
		err error
	)
	switch format {
	case constants.ExportCSV:
		b, err = WriteCSV(records)
	case constants.ExportXLSX:
		b, err = WriteXLSX(records)
	case constants.ExportJSON:
		b, err = WriteJSON(records)
	default:
		return nil, common.NewStageError(constants.StageExport, common.ErrUnsupportedExportFormat,
			fmt.Sprintf("%q is not one of csv, xlsx, json", format), nil)
	}
	if err != nil {
		logger.Error("export.failed", "format", format, "rows", len(records), "err", err)
		return nil, common.NewStageError(constants.StageExport, common.ErrInternal, "write "+string(format), err)
	}

	logger.Info("export."+string(format)+".ok",
		"rows", len(records),
		"bytes", len(b),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}

// Columns is the union of the records' columns in first-seen order.
func Columns(records []mapper.Record) []string {
	var cols []string
	seen := map[string]struct{}{}
	for _, r := range records {
		for _, c := range r.Cells {
			if _, ok := seen[c.Column]; ok {
				continue
			}
			seen[c.Column] = struct{}{}
			cols = append(cols, c.Column)
		}
	}
	return cols
}

// row lays out a record's cells against cols; missing columns yield a zero Cell.
func row(r mapper.Record, cols []string) []mapper.Cell {
	byName := make(map[string]mapper.Cell, len(r.Cells))
	for _, c := range r.Cells {
		if _, dup := byName[c.Column]; !dup {
			byName[c.Column] = c
		}
	}
	out := make([]mapper.Cell, len(cols))
	for i, col := range cols {
		out[i] = byName[col]
	}
	return out
}
