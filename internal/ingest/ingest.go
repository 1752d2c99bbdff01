package ingest

import (
	"context"
	"io"
	"time"
)

// Document is an uploaded invoice accepted for extraction.
type Document struct {
	ID           string
	FileName     string
	Ext          string
	DeclaredMIME string // derived from the extension
	SniffedMIME  string // detected from content; may be empty
	MIMEType     string // what is sent to the extraction service
	Size         int64
	SHA256       string
	StagingKey   string // empty when no staging store is configured
	Pages        int    // 0 when unknown or not a PDF
	Content      []byte
	CreatedAt    time.Time
}

// PathResult is the per-file outcome of a directory scan.
type PathResult struct {
	Path string
	Err  string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
	Failed  uint32
}

// Ingestor is the behavior the pipeline depends on.
type Ingestor interface {
	// Ingest validates and stages a single upload.
	Ingest(ctx context.Context, fileName string, r io.Reader) (*Document, error)
	// IngestPath reads and ingests a file from disk.
	IngestPath(ctx context.Context, path string) (*Document, error)
	// Release drops the staged copy of doc.
	Release(ctx context.Context, doc *Document) error
}
