package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/mapper"
	"github.com/joseph-ayodele/invoice-extractor/internal/metrics"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
	"github.com/joseph-ayodele/invoice-extractor/internal/storage"
)

// Input is one document to process. Reader takes precedence over Path.
type Input struct {
	FileName      string
	Reader        io.Reader
	Path          string
	Options       mapper.Options
	IncludeSource bool // fill Options.SourceFile with the uploaded file name
}

// Outcome is what one processed document produced.
type Outcome struct {
	DocumentID string              `json:"document_id"`
	FileName   string              `json:"file_name"`
	MIMEType   string              `json:"mime_type"`
	Pages      int                 `json:"pages"`
	Status     constants.RunStatus `json:"status"`
	Result     *extract.Result     `json:"result"`
	Records    []mapper.Record     `json:"-"`
	Duration   time.Duration       `json:"-"`
}

// Processor coordinates ingest, extraction, mapping and export for single documents.
type Processor struct {
	Logger    *slog.Logger
	Ingestor  ingest.Ingestor
	Extractor extract.Extractor
	Exporter  *export.Service
	Store     storage.Store // optional; staged responses and results live here
	History   repository.RunRepository
	// RetainStaging keeps uploads, responses and results after processing.
	RetainStaging bool
	Workers       int
}

// NewProcessor wires a processor; nil history disables the run log.
func NewProcessor(logger *slog.Logger, ing ingest.Ingestor, ex extract.Extractor, store storage.Store, history repository.RunRepository) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if history == nil {
		history = repository.NopRunRepository{}
	}
	return &Processor{
		Logger:        logger,
		Ingestor:      ing,
		Extractor:     ex,
		Exporter:      export.NewService(logger),
		Store:         store,
		History:       history,
		RetainStaging: true,
		Workers:       4,
	}
}

// Process runs one document through ingest, extract and map. A fatal error at any stage
// is returned as a stage error and logged to history as FAILED.
func (p *Processor) Process(ctx context.Context, in Input) (*Outcome, error) {
	start := time.Now()
	name := in.FileName
	if name == "" {
		name = in.Path
	}
	run := &repository.Run{FileName: name}

	// 1) Ingest
	stageStart := time.Now()
	doc, err := p.ingest(ctx, in)
	metrics.ObserveStage(string(constants.StageIngest), stageStart)
	if err != nil {
		return nil, p.fail(ctx, run, start, err)
	}
	run.DocumentID, run.FileName, run.SHA256 = doc.ID, doc.FileName, doc.SHA256
	run.MIMEType, run.Pages = doc.MIMEType, doc.Pages

	ctx = common.WithDocumentID(ctx, doc.ID)
	logger := common.LoggerFromContext(ctx, p.Logger)
	defer p.release(ctx, doc)

	// 2) Extract
	stageStart = time.Now()
	res, err := p.Extractor.Extract(ctx, doc.Content, doc.MIMEType)
	metrics.ObserveStage(string(constants.StageExtract), stageStart)
	if err != nil {
		return nil, p.fail(ctx, run, start, err)
	}
	if res.Pages == 0 {
		res.Pages = doc.Pages
	}
	p.stage(ctx, doc.ID, res)

	// 3) Map
	opts := in.Options
	if in.IncludeSource && opts.SourceFile == "" {
		opts.SourceFile = doc.FileName
	}
	stageStart = time.Now()
	records, err := mapper.Map(res, opts)
	metrics.ObserveStage(string(constants.StageMap), stageStart)
	if err != nil {
		return nil, p.fail(ctx, run, start, err)
	}

	out := &Outcome{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		MIMEType:   doc.MIMEType,
		Pages:      res.Pages,
		Status:     constants.RunStatusOK,
		Result:     res,
		Records:    records,
		Duration:   time.Since(start),
	}
	unnormalized := tallyFailures(records)
	if unnormalized > 0 {
		out.Status = constants.RunStatusPartial
	}

	run.Status = out.Status
	run.Records = len(records)
	run.Unnormalized = unnormalized
	run.DurationMs = out.Duration.Milliseconds()
	p.record(ctx, run)
	metrics.DocumentsProcessedTotal.WithLabelValues(string(out.Status)).Inc()

	logger.Info("processor.ok",
		"file", doc.FileName,
		"status", out.Status,
		"records", len(records),
		"unnormalized", unnormalized,
		"elapsed_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

func (p *Processor) ingest(ctx context.Context, in Input) (*ingest.Document, error) {
	if in.Reader != nil {
		return p.Ingestor.Ingest(ctx, in.FileName, in.Reader)
	}
	if in.Path == "" {
		return nil, common.NewStageError(constants.StageIngest, common.ErrInvalidInput, "no file given", nil)
	}
	return p.Ingestor.IngestPath(ctx, in.Path)
}

// fail records a FAILED run for err and returns it unchanged.
func (p *Processor) fail(ctx context.Context, run *repository.Run, start time.Time, err error) error {
	logger := common.LoggerFromContext(ctx, p.Logger)
	stage := common.StageOf(err)
	code := common.CodeOf(err)

	run.Status = constants.RunStatusFailed
	run.Stage = stage
	run.ErrorCode = code
	run.ErrorMessage = err.Error()
	run.DurationMs = time.Since(start).Milliseconds()
	p.record(ctx, run)

	metrics.DocumentsProcessedTotal.WithLabelValues(string(constants.RunStatusFailed)).Inc()
	metrics.StageErrorsTotal.WithLabelValues(string(stage), code).Inc()
	logger.Error("processor.failed", "file", run.FileName, "stage", stage, "code", code, "err", err)
	return err
}

// record writes the run to history; history failures never fail processing.
func (p *Processor) record(ctx context.Context, run *repository.Run) {
	if err := p.History.Record(ctx, run); err != nil {
		common.LoggerFromContext(ctx, p.Logger).Warn("history.record.failed", "err", err)
	}
}

// stage saves the raw service response and the result JSON for later export.
func (p *Processor) stage(ctx context.Context, documentID string, res *extract.Result) {
	if p.Store == nil {
		return
	}
	logger := common.LoggerFromContext(ctx, p.Logger)
	if len(res.Raw) > 0 {
		if _, err := p.Store.Put(ctx, storage.ResponseKey(documentID), "application/json", bytes.NewReader(res.Raw)); err != nil {
			logger.Warn("staging.response.failed", "err", err)
		}
	}
	b, err := json.Marshal(res)
	if err != nil {
		logger.Warn("staging.result.marshal_failed", "err", err)
		return
	}
	if _, err := p.Store.Put(ctx, storage.ResultKey(documentID), "application/json", bytes.NewReader(b)); err != nil {
		logger.Warn("staging.result.failed", "err", err)
	}
}

// release drops staged artifacts unless they are retained.
func (p *Processor) release(ctx context.Context, doc *ingest.Document) {
	if p.RetainStaging {
		return
	}
	logger := common.LoggerFromContext(ctx, p.Logger)
	if err := p.Ingestor.Release(ctx, doc); err != nil {
		logger.Warn("staging.release.failed", "key", doc.StagingKey, "err", err)
	}
	if p.Store == nil {
		return
	}
	for _, key := range []string{storage.ResponseKey(doc.ID), storage.ResultKey(doc.ID)} {
		if err := p.Store.Delete(ctx, key); err != nil {
			logger.Warn("staging.release.failed", "key", key, "err", err)
		}
	}
}

// Export renders records in the named format and counts it.
func (p *Processor) Export(ctx context.Context, records []mapper.Record, format string) ([]byte, constants.ExportFormat, error) {
	stageStart := time.Now()
	b, f, err := p.Exporter.Export(ctx, records, format)
	metrics.ObserveStage(string(constants.StageExport), stageStart)
	if err != nil {
		metrics.StageErrorsTotal.WithLabelValues(string(constants.StageExport), common.CodeOf(err)).Inc()
		return nil, "", err
	}
	metrics.ExportsTotal.WithLabelValues(string(f)).Inc()
	return b, f, nil
}

// LoadResult reads the staged result of a processed document.
func (p *Processor) LoadResult(ctx context.Context, documentID string) (*extract.Result, error) {
	if p.Store == nil {
		return nil, common.NewAppError("NOT_FOUND", "staging is disabled", common.ErrNotFound)
	}
	rc, err := p.Store.Open(ctx, storage.ResultKey(documentID))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("no staged result for %s", documentID), err)
		}
		return nil, common.NewStageError(constants.StageExport, common.ErrInternal, "open staged result", err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, common.NewStageError(constants.StageExport, common.ErrInternal, "read staged result", err)
	}
	return extract.DecodeResultJSON(data)
}

// ExportDocument maps a previously processed document again and exports it.
func (p *Processor) ExportDocument(ctx context.Context, documentID, format string, opts mapper.Options) ([]byte, constants.ExportFormat, error) {
	if _, ok := constants.ParseExportFormat(format); !ok {
		return nil, "", common.NewStageError(constants.StageExport, common.ErrUnsupportedExportFormat,
			fmt.Sprintf("%q is not one of csv, xlsx, json", format), nil)
	}
	res, err := p.LoadResult(ctx, documentID)
	if err != nil {
		return nil, "", err
	}
	records, err := mapper.Map(res, opts)
	if err != nil {
		return nil, "", err
	}
	b, f, err := p.Export(ctx, records, format)
	if err != nil {
		return nil, "", err
	}
	if p.RetainStaging {
		if _, err := p.Store.Put(ctx, storage.ExportKey(documentID, f), f.ContentType(), bytes.NewReader(b)); err != nil {
			common.LoggerFromContext(ctx, p.Logger).Warn("staging.export.failed", "err", err)
		}
	}
	return b, f, nil
}

// MapSaved maps Result JSON or a saved Document AI response without calling the service.
func (p *Processor) MapSaved(ctx context.Context, data []byte, opts mapper.Options) ([]mapper.Record, error) {
	logger := common.LoggerFromContext(ctx, p.Logger)
	res, err := extract.DecodeJSON(data)
	if err != nil {
		logger.Warn("processor.map_saved.rejected", "code", common.CodeOf(err), "err", err)
		return nil, err
	}
	records, err := mapper.Map(res, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("processor.map_saved.ok", "records", len(records), "unnormalized", tallyFailures(records))
	return records, nil
}

// tallyFailures counts normalization failures and feeds the per-field metric.
func tallyFailures(records []mapper.Record) int {
	n := 0
	for _, r := range records {
		for _, e := range r.Errors() {
			metrics.FieldNormalizationFailuresTotal.WithLabelValues(e.Field).Inc()
			n++
		}
	}
	return n
}
