package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/storage/local"
)

// minimal PNG signature plus IHDR so content sniffing recognises it
var pngBytes = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xDE,
}

func TestIngest_AcceptedExtensions(t *testing.T) {
	ing := NewFSIngestor(nil, 0, nil)
	for _, name := range []string{"a.pdf", "b.PNG", "c.jpg", "d.JPEG", "e.tiff"} {
		t.Run(name, func(t *testing.T) {
			doc, err := ing.Ingest(context.Background(), name, bytes.NewReader([]byte("payload")))
			require.NoError(t, err)
			assert.NotEmpty(t, doc.ID)
			assert.Equal(t, constants.NormalizeExt(filepath.Ext(name)), doc.Ext)
			assert.Equal(t, []byte("payload"), doc.Content)
		})
	}
}

func TestIngest_RejectedExtensions(t *testing.T) {
	ing := NewFSIngestor(nil, 0, nil)
	for _, name := range []string{"a.docx", "b.txt", "noext", "c.heic", "d.tif"} {
		t.Run(name, func(t *testing.T) {
			_, err := ing.Ingest(context.Background(), name, strings.NewReader("x"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrUnsupportedFormat))
			assert.Equal(t, constants.StageIngest, common.StageOf(err))
		})
	}
}

func TestIngest_PayloadTooLarge(t *testing.T) {
	ing := NewFSIngestor(nil, 4, nil)

	_, err := ing.Ingest(context.Background(), "big.pdf", strings.NewReader("12345"))
	assert.True(t, errors.Is(err, common.ErrPayloadTooLarge))

	doc, err := ing.Ingest(context.Background(), "ok.pdf", strings.NewReader("1234"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), doc.Size)
}

func TestIngest_Empty(t *testing.T) {
	_, err := NewFSIngestor(nil, 0, nil).Ingest(context.Background(), "empty.pdf", strings.NewReader(""))
	assert.True(t, errors.Is(err, common.ErrUnprocessableDocument))
}

func TestIngest_UniqueIDsAndHash(t *testing.T) {
	ing := NewFSIngestor(nil, 0, nil)
	a, err := ing.Ingest(context.Background(), "a.png", strings.NewReader("same"))
	require.NoError(t, err)
	b, err := ing.Ingest(context.Background(), "a.png", strings.NewReader("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.SHA256, b.SHA256)
	assert.Len(t, a.SHA256, 64)
}

func TestIngest_SniffedMIMEWins(t *testing.T) {
	ing := NewFSIngestor(nil, 0, nil)
	doc, err := ing.Ingest(context.Background(), "mislabelled.jpg", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", doc.DeclaredMIME)
	assert.Equal(t, "image/png", doc.SniffedMIME)
	assert.Equal(t, "image/png", doc.MIMEType)

	// unsupported sniffed types never reject; the extension decides
	doc, err = ing.Ingest(context.Background(), "plain.pdf", strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.MIMEType)
}

func TestIngest_StagesAndReleases(t *testing.T) {
	dir := t.TempDir()
	ing := NewFSIngestor(local.New(dir), 0, nil)
	ctx := context.Background()

	doc, err := ing.Ingest(ctx, "scan.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	require.Equal(t, "uploads/"+doc.ID+"/scan.png", doc.StagingKey)

	staged := filepath.Join(dir, "uploads", doc.ID, "scan.png")
	got, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)

	require.NoError(t, ing.Release(ctx, doc))
	assert.NoFileExists(t, staged)
	assert.Empty(t, doc.StagingKey)
}

func TestIngestPath(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "INV-1.PDF")
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4 not really"), 0o600))

	doc, err := NewFSIngestor(nil, 0, nil).IngestPath(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "INV-1.PDF", doc.FileName)
	assert.Equal(t, "pdf", doc.Ext)
	assert.Equal(t, "application/pdf", doc.MIMEType)
	assert.Equal(t, 0, doc.Pages)

	_, err = NewFSIngestor(nil, 0, nil).IngestPath(context.Background(), filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestCountPDFPages_Garbage(t *testing.T) {
	assert.Equal(t, 0, CountPDFPages([]byte("%PDF-1.7\ngarbage")))
	assert.Equal(t, 0, CountPDFPages(nil))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestIngest_ReadError(t *testing.T) {
	_, err := NewFSIngestor(nil, 10, nil).Ingest(context.Background(), "x.pdf", failingReader{})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
