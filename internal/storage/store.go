package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Store stages uploads, raw service responses and exports under slash-separated keys.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ErrInvalidKey is returned for keys that are absolute or escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// CleanKey validates a key and returns it in canonical form.
func CleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}

// UploadKey is where an uploaded document's bytes are staged.
func UploadKey(documentID, fileName string) string {
	name, err := SanitizeFileName(fileName)
	if err != nil {
		name = "upload"
	}
	return path.Join("uploads", documentID, name)
}

// ResponseKey holds the raw extraction service response for a document.
func ResponseKey(documentID string) string {
	return path.Join("responses", documentID+".json")
}

// ResultKey holds the converted extraction result for a document.
func ResultKey(documentID string) string {
	return path.Join("results", documentID+".json")
}

// ExportKey holds a rendered export for a document or batch.
func ExportKey(id string, format constants.ExportFormat) string {
	return path.Join("exports", id+"."+format.Extension())
}
