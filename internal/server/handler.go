package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/mapper"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
	"github.com/joseph-ayodele/invoice-extractor/internal/server/respond"
	"github.com/joseph-ayodele/invoice-extractor/internal/storage"
)

const (
	defaultMaxFileSize = 10 << 20
	// multipart framing around the file itself
	formOverhead  = 1 << 20
	maxBatchFiles = 20
	maxJSONBody   = 16 << 20
)

// Handler wires HTTP handlers to the pipeline.
type Handler struct {
	pipe        Pipeline
	history     repository.RunRepository
	logger      *slog.Logger
	maxFileSize int64
	now         func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(d Deps) *Handler {
	limit := d.MaxFileSize
	if limit <= 0 {
		limit = defaultMaxFileSize
	}
	return &Handler{pipe: d.Pipeline, history: d.History, logger: d.Logger, maxFileSize: limit, now: time.Now}
}

// RegisterRoutes attaches API routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.processDocument)
	rg.POST("/documents/batch", h.processBatch)
	rg.GET("/documents/:id/export", h.exportDocument)
	rg.POST("/export", h.exportRecords)
	rg.POST("/records", h.mapRecords)
	rg.GET("/history", h.listHistory)
	rg.DELETE("/history", h.clearHistory)
}

// FieldError reports a field kept raw because it could not be normalized.
type FieldError struct {
	Record int                 `json:"record"`
	Field  string              `json:"field"`
	Kind   constants.FieldKind `json:"kind"`
	Value  string              `json:"value"`
	Reason string              `json:"reason"`
}

type recordsPayload struct {
	Columns []string        `json:"columns"`
	Records json.RawMessage `json:"records"`
	Summary mapper.Summary  `json:"summary"`
	Errors  []FieldError    `json:"normalization_errors"`
}

type documentResponse struct {
	DocumentID string              `json:"document_id"`
	FileName   string              `json:"file_name"`
	MIMEType   string              `json:"mime_type"`
	Pages      int                 `json:"pages"`
	Status     constants.RunStatus `json:"status"`
	DurationMs int64               `json:"duration_ms"`
	recordsPayload
}

type batchItemResponse struct {
	FileName   string              `json:"file_name"`
	DocumentID string              `json:"document_id,omitempty"`
	Status     constants.RunStatus `json:"status"`
	Records    int                 `json:"records"`
	Error      *respond.ErrorBody  `json:"error,omitempty"`
}

type batchResponse struct {
	Status     constants.RunStatus `json:"status"`
	Files      int                 `json:"files"`
	Failed     int                 `json:"failed"`
	DurationMs int64               `json:"duration_ms"`
	Items      []batchItemResponse `json:"items"`
	recordsPayload
}

func (h *Handler) processDocument(c *gin.Context) {
	opts, includeSource, err := parseOptions(c.Query)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+formOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, formError(err, "file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, common.NewStageError(constants.StageIngest, common.ErrInvalidInput, "unable to read file", err))
		return
	}
	defer file.Close()

	out, err := h.pipe.Process(c.Request.Context(), pipeline.Input{
		FileName:      fileHeader.Filename,
		Reader:        file,
		Options:       opts,
		IncludeSource: includeSource,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	if format := c.Query("format"); format != "" {
		h.sendExport(c, out.Records, format)
		return
	}
	payload, err := buildPayload(out.Records)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, documentResponse{
		DocumentID:     out.DocumentID,
		FileName:       out.FileName,
		MIMEType:       out.MIMEType,
		Pages:          out.Pages,
		Status:         out.Status,
		DurationMs:     out.Duration.Milliseconds(),
		recordsPayload: payload,
	})
}

func (h *Handler) processBatch(c *gin.Context) {
	opts, includeSource, err := parseOptions(c.Query)
	if err != nil {
		respond.Error(c, err)
		return
	}
	batch, err := h.runBatch(c, opts, includeSource)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if format := c.Query("format"); format != "" {
		h.sendExport(c, batch.Records(), format)
		return
	}
	resp, err := toBatchResponse(batch)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, resp)
}

// runBatch reads the multipart "files" and processes them on the pool.
func (h *Handler) runBatch(c *gin.Context, opts mapper.Options, includeSource bool) (pipeline.Batch, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, (h.maxFileSize+formOverhead)*maxBatchFiles)
	form, err := c.MultipartForm()
	if err != nil {
		return pipeline.Batch{}, formError(err, "multipart form with files is required")
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		return pipeline.Batch{}, common.NewStageError(constants.StageIngest, common.ErrInvalidInput, "at least one file is required", nil)
	}
	if len(headers) > maxBatchFiles {
		return pipeline.Batch{}, common.NewStageError(constants.StageIngest, common.ErrInvalidInput,
			fmt.Sprintf("at most %d files per batch", maxBatchFiles), nil)
	}

	files := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	inputs := make([]pipeline.Input, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return pipeline.Batch{}, common.NewStageError(constants.StageIngest, common.ErrInvalidInput, "unable to read "+fh.Filename, err)
		}
		files = append(files, f)
		inputs = append(inputs, pipeline.Input{FileName: fh.Filename, Reader: f, Options: opts, IncludeSource: includeSource})
	}
	return h.pipe.ProcessBatch(c.Request.Context(), inputs), nil
}

func (h *Handler) exportDocument(c *gin.Context) {
	id := c.Param("id")
	if err := common.NewValidator().Field("id", id, common.UUID).StageError(constants.StageExport, common.ErrInvalidInput); err != nil {
		respond.Error(c, err)
		return
	}
	opts, includeSource, err := parseOptions(c.Query)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if includeSource {
		opts.SourceFile = c.Query("source_file")
	}
	format := c.DefaultQuery("format", string(constants.ExportCSV))
	b, f, err := h.pipe.ExportDocument(c.Request.Context(), id, format, opts)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Attachment(c, h.fileName(c, f), f, b)
}

func (h *Handler) exportRecords(c *gin.Context) {
	opts, _, err := parseOptions(c.Query)
	if err != nil {
		respond.Error(c, err)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody))
	if err != nil {
		respond.Error(c, formError(err, "unable to read body"))
		return
	}
	records, err := mapper.FromRows(data, opts.DayFirst)
	if err != nil {
		respond.Error(c, err)
		return
	}
	filter, err := mapper.NewFilter(c.QueryArray("vendor"), c.Query("min_amount"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	h.sendExport(c, filter.Apply(records), c.DefaultQuery("format", string(constants.ExportCSV)))
}

func (h *Handler) mapRecords(c *gin.Context) {
	opts, _, err := parseOptions(c.Query)
	if err != nil {
		respond.Error(c, err)
		return
	}
	opts.SourceFile = c.Query("source_file")
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody))
	if err != nil {
		respond.Error(c, formError(err, "unable to read body"))
		return
	}
	records, err := h.pipe.MapSaved(c.Request.Context(), data, opts)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if format := c.Query("format"); format != "" {
		h.sendExport(c, records, format)
		return
	}
	payload, err := buildPayload(records)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, payload)
}

func (h *Handler) listHistory(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respond.Error(c, common.NewAppError("INVALID_INPUT", "limit must be a non-negative integer", common.ErrInvalidInput))
			return
		}
		limit = n
	}
	runs, err := h.history.List(c.Request.Context(), limit)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, gin.H{"runs": runs})
}

func (h *Handler) clearHistory(c *gin.Context) {
	n, err := h.history.Clear(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, gin.H{"deleted": n})
}

func (h *Handler) sendExport(c *gin.Context, records []mapper.Record, format string) {
	b, f, err := h.pipe.Export(c.Request.Context(), records, format)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Attachment(c, h.fileName(c, f), f, b)
}

// fileName is ?filename= when given, else invoice_data_<timestamp>.
func (h *Handler) fileName(c *gin.Context, f constants.ExportFormat) string {
	base := strings.TrimSuffix(c.Query("filename"), "."+f.Extension())
	if base != "" {
		if clean, err := storage.SanitizeFileName(base); err == nil {
			return clean + "." + f.Extension()
		}
	}
	return "invoice_data_" + h.now().Format("20060102_150405") + "." + f.Extension()
}

// parseOptions reads mode, confidence, source and day_first through get.
func parseOptions(get func(string) string) (mapper.Options, bool, error) {
	mode, ok := mapper.ParseMode(get("mode"))
	if !ok {
		return mapper.Options{}, false, common.NewAppError("INVALID_INPUT",
			fmt.Sprintf("mode %q is not one of auto, invoice, line_items", get("mode")), common.ErrInvalidInput)
	}
	opts := mapper.Options{Mode: mode}
	var includeSource bool
	flags := []struct {
		name string
		dst  *bool
	}{
		{"confidence", &opts.IncludeConfidence},
		{"source", &includeSource},
		{"day_first", &opts.DayFirst},
	}
	for _, fl := range flags {
		v, err := parseFlag(get(fl.name))
		if err != nil {
			return mapper.Options{}, false, common.NewAppError("INVALID_INPUT",
				fmt.Sprintf("%s must be a boolean", fl.name), common.ErrInvalidInput)
		}
		*fl.dst = v
	}
	return opts, includeSource, nil
}

// parseFlag accepts strconv booleans plus the "on" an HTML checkbox submits.
func parseFlag(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return false, nil
	case "on", "yes":
		return true, nil
	}
	return strconv.ParseBool(v)
}

// formError maps body read failures; an oversized body is PayloadTooLarge.
func formError(err error, msg string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return common.NewStageError(constants.StageIngest, common.ErrPayloadTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), err)
	}
	return common.NewStageError(constants.StageIngest, common.ErrInvalidInput, msg, err)
}

func buildPayload(records []mapper.Record) (recordsPayload, error) {
	raw, err := export.WriteJSON(records)
	if err != nil {
		return recordsPayload{}, common.NewStageError(constants.StageExport, common.ErrInternal, "encode records", err)
	}
	return recordsPayload{
		Columns: export.Columns(records),
		Records: raw,
		Summary: mapper.Summarize(records),
		Errors:  fieldErrors(records),
	}, nil
}

func fieldErrors(records []mapper.Record) []FieldError {
	out := make([]FieldError, 0)
	for i, r := range records {
		for _, e := range r.Errors() {
			out = append(out, FieldError{Record: i, Field: e.Field, Kind: e.Kind, Value: e.Value, Reason: e.Reason})
		}
	}
	return out
}

func toBatchResponse(b pipeline.Batch) (batchResponse, error) {
	payload, err := buildPayload(b.Records())
	if err != nil {
		return batchResponse{}, err
	}
	items := make([]batchItemResponse, len(b.Items))
	for i, it := range b.Items {
		items[i] = batchItemResponse{FileName: it.FileName}
		if it.Err != nil {
			body := respond.BodyOf(it.Err)
			items[i].Status = constants.RunStatusFailed
			items[i].Error = &body
			continue
		}
		items[i].DocumentID = it.Outcome.DocumentID
		items[i].Status = it.Outcome.Status
		items[i].Records = len(it.Outcome.Records)
	}
	return batchResponse{
		Status:         b.Status(),
		Files:          len(b.Items),
		Failed:         b.Failed(),
		DurationMs:     b.Duration.Milliseconds(),
		Items:          items,
		recordsPayload: payload,
	}, nil
}
