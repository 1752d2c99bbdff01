package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/googleapis/gax-go/v2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// DocumentProcessor is the subset of the Document AI client used here.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
	Close() error
}

// DocumentAIClient implements Extractor against a Document AI invoice processor.
type DocumentAIClient struct {
	proc        DocumentProcessor
	name        string
	timeout     time.Duration
	maxAttempts int
	backoff     gax.Backoff
	logger      *slog.Logger
}

// ProcessorName is the fully qualified processor resource name.
func ProcessorName(projectID, location, processorID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", projectID, location, processorID)
}

// Endpoint is the regional API endpoint for location unless override is set.
func Endpoint(location, override string) string {
	if override != "" {
		return override
	}
	return fmt.Sprintf("%s-documentai.googleapis.com:443", location)
}

// NewDocumentAIClient reads the service-account credentials and dials the regional endpoint.
func NewDocumentAIClient(ctx context.Context, cfg common.DocumentAIConfig, logger *slog.Logger) (*DocumentAIClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := (&common.Config{DocumentAI: cfg}).ValidateExtraction(); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, common.NewStageError(constants.StageConfig, common.ErrMissingConfiguration,
			"read credentials "+cfg.CredentialsFile, err)
	}
	creds, err := google.CredentialsFromJSON(ctx, b, documentai.DefaultAuthScopes()...)
	if err != nil {
		return nil, common.NewStageError(constants.StageConfig, common.ErrMissingConfiguration,
			"parse credentials "+cfg.CredentialsFile, err)
	}

	endpoint := Endpoint(cfg.Location, cfg.Endpoint)
	c, err := documentai.NewDocumentProcessorClient(ctx,
		option.WithEndpoint(endpoint),
		option.WithCredentials(creds),
	)
	if err != nil {
		return nil, common.NewStageError(constants.StageExtract, common.ErrServiceUnavailable, "create document ai client", err)
	}
	logger.Info("extract.documentai.client.ready",
		"endpoint", endpoint,
		"project", cfg.ProjectID,
		"location", cfg.Location,
		"processor", cfg.ProcessorID,
		"max_attempts", cfg.MaxAttempts,
	)
	return NewDocumentAIClientWith(c, cfg, logger), nil
}

// NewDocumentAIClientWith wraps an existing processor client.
func NewDocumentAIClientWith(proc DocumentProcessor, cfg common.DocumentAIConfig, logger *slog.Logger) *DocumentAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &DocumentAIClient{
		proc:        proc,
		name:        ProcessorName(cfg.ProjectID, cfg.Location, cfg.ProcessorID),
		timeout:     cfg.Timeout,
		maxAttempts: attempts,
		backoff:     defaultBackoff(),
		logger:      logger,
	}
}

// Extract sends the raw bytes to the processor and converts the returned document.
func (c *DocumentAIClient) Extract(ctx context.Context, content []byte, mimeType string) (*Result, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, c.logger)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := &documentaipb.ProcessRequest{
		Name: c.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
	}
	logger.Debug("extract.documentai.start", "processor", c.name, "mime", mimeType, "bytes", len(content))

	resp, err := c.proc.ProcessDocument(ctx, req, retryOption(c.maxAttempts, c.backoff))
	if err != nil {
		classified := classify(err)
		logger.Error("extract.documentai.failed",
			"code", common.CodeOf(classified),
			"err", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, classified
	}

	doc := resp.GetDocument()
	if doc == nil {
		logger.Error("extract.documentai.empty", "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.NewStageError(constants.StageExtract, common.ErrUnprocessableDocument, "response carried no document", nil)
	}

	result := FromDocument(doc)
	raw, err := protojson.Marshal(doc)
	if err != nil {
		logger.Warn("extract.documentai.raw.marshal_failed", "err", err)
	} else {
		result.Raw = raw
	}

	logger.Info("extract.documentai.ok",
		"fields", len(result.Fields),
		"line_items", len(result.LineItems),
		"pages", result.Pages,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// Close releases the underlying connection.
func (c *DocumentAIClient) Close() error {
	return c.proc.Close()
}

var _ Extractor = (*DocumentAIClient)(nil)
