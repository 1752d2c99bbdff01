package ingest

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string) bool {
	return constants.IsAllowedExt(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// CountPDFPages returns the page count, or 0 if the PDF cannot be parsed.
func CountPDFPages(content []byte) (pages int) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			pages = 0
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0
	}
	return r.NumPage()
}
