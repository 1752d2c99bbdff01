package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/storage"
)

// FSIngestor validates uploads and stages them in a storage.Store.
type FSIngestor struct {
	store   storage.Store
	maxSize int64 // 0 means unlimited
	logger  *slog.Logger
	now     func() time.Time
}

// NewFSIngestor builds an ingestor. store may be nil, in which case nothing is staged.
func NewFSIngestor(store storage.Store, maxSize int64, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		store:   store,
		maxSize: maxSize,
		logger:  logger,
		now:     time.Now,
	}
}

// Ingest checks the extension and size, then stages the bytes under a fresh document ID.
func (i *FSIngestor) Ingest(ctx context.Context, fileName string, r io.Reader) (*Document, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(fileName))
	if !AllowedExt(ext) {
		i.logger.Warn("ingest.rejected", "file", fileName, "ext", ext, "reason", "unsupported extension")
		return nil, common.NewStageError(constants.StageIngest, common.ErrUnsupportedFormat,
			fmt.Sprintf("%q is not one of %s", fileName, strings.Join(constants.AllowedExtList(), ", ")), nil)
	}

	content, err := i.readLimited(r)
	if err != nil {
		i.logger.Warn("ingest.rejected", "file", fileName, "err", err)
		return nil, err
	}
	if len(content) == 0 {
		return nil, common.NewStageError(constants.StageIngest, common.ErrUnprocessableDocument,
			fmt.Sprintf("%q is empty", fileName), nil)
	}

	sum := sha256.Sum256(content)
	doc := &Document{
		ID:           uuid.NewString(),
		FileName:     filepath.Base(fileName),
		Ext:          ext,
		DeclaredMIME: constants.MIMEForExt(ext),
		Size:         int64(len(content)),
		SHA256:       hex.EncodeToString(sum[:]),
		Content:      content,
		CreatedAt:    i.now().UTC(),
	}
	doc.SniffedMIME, doc.MIMEType = resolveMIME(content, doc.DeclaredMIME)
	if doc.SniffedMIME != "" && doc.SniffedMIME != doc.DeclaredMIME {
		i.logger.Warn("ingest.mime.mismatch",
			"file", doc.FileName,
			"declared", doc.DeclaredMIME,
			"sniffed", doc.SniffedMIME,
			"using", doc.MIMEType,
		)
	}
	if doc.MIMEType == "application/pdf" {
		doc.Pages = CountPDFPages(content)
	}

	if i.store != nil {
		key := storage.UploadKey(doc.ID, doc.FileName)
		if _, err := i.store.Put(ctx, key, doc.MIMEType, bytes.NewReader(content)); err != nil {
			return nil, common.NewStageError(constants.StageIngest, common.ErrInternal, "stage upload", err)
		}
		doc.StagingKey = key
	}

	i.logger.Info("ingest.ok",
		"document_id", doc.ID,
		"file", doc.FileName,
		"mime", doc.MIMEType,
		"size", doc.Size,
		"pages", doc.Pages,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// IngestPath opens path and ingests its contents under the file's base name.
func (i *FSIngestor) IngestPath(ctx context.Context, path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if !AllowedExt(filepath.Ext(abs)) {
		return nil, common.NewStageError(constants.StageIngest, common.ErrUnsupportedFormat,
			fmt.Sprintf("%q has an unsupported extension", path), nil)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, common.NewStageError(constants.StageIngest, common.ErrInvalidInput, "open "+path, err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			i.logger.Warn("close file error", "path", abs, "err", err)
		}
	}(f)
	return i.Ingest(ctx, abs, f)
}

// Release deletes the staged upload, if any.
func (i *FSIngestor) Release(ctx context.Context, doc *Document) error {
	if i.store == nil || doc == nil || doc.StagingKey == "" {
		return nil
	}
	if err := i.store.Delete(ctx, doc.StagingKey); err != nil {
		return fmt.Errorf("release %s: %w", doc.StagingKey, err)
	}
	doc.StagingKey = ""
	return nil
}

func (i *FSIngestor) readLimited(r io.Reader) ([]byte, error) {
	if i.maxSize <= 0 {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, common.NewStageError(constants.StageIngest, common.ErrInvalidInput, "read upload", err)
		}
		return b, nil
	}
	b, err := io.ReadAll(io.LimitReader(r, i.maxSize+1))
	if err != nil {
		return nil, common.NewStageError(constants.StageIngest, common.ErrInvalidInput, "read upload", err)
	}
	if int64(len(b)) > i.maxSize {
		return nil, common.NewStageError(constants.StageIngest, common.ErrPayloadTooLarge,
			fmt.Sprintf("file exceeds %d bytes", i.maxSize), nil)
	}
	return b, nil
}

// resolveMIME prefers a supported sniffed type over the extension-derived one.
func resolveMIME(content []byte, declared string) (sniffed, effective string) {
	mt := mimetype.Detect(content)
	sniffed, _, _ = strings.Cut(mt.String(), ";")
	sniffed = strings.TrimSpace(sniffed)
	if _, ok := constants.SupportedMIMETypes[sniffed]; ok {
		return sniffed, sniffed
	}
	return sniffed, declared
}

var _ Ingestor = (*FSIngestor)(nil)
