package server

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/mapper"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
	"github.com/joseph-ayodele/invoice-extractor/internal/server/respond"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const historySidebarSize = 5

type ui struct {
	h *Handler
}

func newUI(h *Handler) *ui {
	return &ui{h: h}
}

type uiCell struct {
	Value string
	Raw   bool // kept unnormalized
}

type uiResult struct {
	Status      constants.RunStatus
	Files       int
	Failed      int
	Items       []batchItemResponse
	Columns     []string
	Rows        [][]uiCell
	Summary     mapper.Summary
	Vendors     []string
	Errors      []FieldError
	RecordsJSON string
}

type pageData struct {
	Extensions []string
	Formats    []constants.ExportFormat
	History    []repository.Run
	Result     *uiResult
	Error      *respond.ErrorBody
}

func (u *ui) page(c *gin.Context) pageData {
	data := pageData{
		Extensions: constants.AllowedExtList(),
		Formats:    constants.ExportFormats(),
	}
	runs, err := u.h.history.List(c.Request.Context(), historySidebarSize)
	if err != nil {
		u.h.logger.Warn("ui.history.failed", "err", err)
	}
	data.History = runs
	return data
}

func (u *ui) render(c *gin.Context, status int, data pageData) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.ExecuteTemplate(c.Writer, "index.html", data); err != nil {
		u.h.logger.Error("ui.render.failed", "err", err)
	}
}

func (u *ui) fail(c *gin.Context, err error) {
	body := respond.BodyOf(err)
	data := u.page(c)
	data.Error = &body
	u.render(c, respond.StatusOf(err), data)
}

func (u *ui) index(c *gin.Context) {
	u.render(c, http.StatusOK, u.page(c))
}

func (u *ui) process(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, (u.h.maxFileSize+formOverhead)*maxBatchFiles)
	if _, err := c.MultipartForm(); err != nil {
		u.fail(c, formError(err, "choose at least one invoice file"))
		return
	}
	opts, _, err := parseOptions(c.PostForm)
	if err != nil {
		u.fail(c, err)
		return
	}
	// every uploaded row carries its file name, as the batch table mixes invoices
	batch, err := u.h.runBatch(c, opts, true)
	if err != nil {
		u.fail(c, err)
		return
	}
	res, err := toUIResult(batch)
	if err != nil {
		u.fail(c, err)
		return
	}
	data := u.page(c)
	data.Result = res
	u.render(c, http.StatusOK, data)
}

func (u *ui) export(c *gin.Context) {
	records, err := mapper.FromRows([]byte(c.PostForm("records")), false)
	if err != nil {
		respond.Error(c, err)
		return
	}
	filter, err := mapper.NewFilter(c.PostFormArray("vendor"), c.PostForm("min_amount"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	u.h.sendExport(c, filter.Apply(records), c.DefaultPostForm("format", string(constants.ExportCSV)))
}

func toUIResult(b pipeline.Batch) (*uiResult, error) {
	resp, err := toBatchResponse(b)
	if err != nil {
		return nil, err
	}
	records := b.Records()
	cols := export.Columns(records)
	rows := make([][]uiCell, len(records))
	for i, r := range records {
		row := make([]uiCell, len(cols))
		for j, col := range cols {
			if cell, ok := r.Get(col); ok {
				row[j] = uiCell{Value: cell.Value, Raw: !cell.Normalized}
			}
		}
		rows[i] = row
	}
	return &uiResult{
		Status:      resp.Status,
		Files:       resp.Files,
		Failed:      resp.Failed,
		Items:       resp.Items,
		Columns:     cols,
		Rows:        rows,
		Summary:     resp.Summary,
		Vendors:     mapper.Vendors(records),
		Errors:      resp.Errors,
		RecordsJSON: string(resp.Records),
	}, nil
}
