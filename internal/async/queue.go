package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/mapper"
)

// Job is one file waiting for processing.
type Job struct {
	Path    string
	Options mapper.Options
	// IncludeSource adds the source_file column to the mapped rows.
	IncludeSource bool
	SubmittedAt   time.Time
	TraceID       string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
