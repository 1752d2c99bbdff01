package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/mapper"
	"github.com/joseph-ayodele/invoice-extractor/internal/metrics"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
	"github.com/joseph-ayodele/invoice-extractor/internal/server/middleware"
	"github.com/joseph-ayodele/invoice-extractor/internal/server/respond"
)

// Pipeline is what the HTTP layer needs from the processor.
type Pipeline interface {
	Process(ctx context.Context, in pipeline.Input) (*pipeline.Outcome, error)
	ProcessBatch(ctx context.Context, inputs []pipeline.Input) pipeline.Batch
	Export(ctx context.Context, records []mapper.Record, format string) ([]byte, constants.ExportFormat, error)
	ExportDocument(ctx context.Context, documentID, format string, opts mapper.Options) ([]byte, constants.ExportFormat, error)
	MapSaved(ctx context.Context, data []byte, opts mapper.Options) ([]mapper.Record, error)
}

// Deps are the collaborators the router serves.
type Deps struct {
	Pipeline    Pipeline
	History     repository.RunRepository
	Logger      *slog.Logger
	MaxFileSize int64
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.History == nil {
		d.History = repository.NopRunRepository{}
	}
	metrics.Register()

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(d.Logger),
		middleware.Recovery(d.Logger),
		metrics.Middleware(),
	)

	h := NewHandler(d)
	ui := newUI(h)

	r.GET("/", ui.index)
	r.POST("/ui/process", ui.process)
	r.POST("/ui/export", ui.export)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if err := d.History.Ping(c.Request.Context()); err != nil {
			d.Logger.Warn("health.history.failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "history": "unavailable"})
			return
		}
		respond.OK(c, gin.H{"ok": true})
	})
	h.RegisterRoutes(api)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, respond.ErrorResponse{
			Error: respond.ErrorBody{Code: "NOT_FOUND", Message: "no route for " + c.Request.URL.Path},
		})
	})
	return r
}
