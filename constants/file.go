package constants

import "strings"

// AllowedExtensions holds the file extensions accepted for invoice ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"tiff": {},
}

// mimeByExt maps an allowed extension to the MIME type sent to the extraction service.
var mimeByExt = map[string]string{
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"tiff": "image/tiff",
}

// SupportedMIMETypes is the set of MIME types the extraction service accepts from us.
var SupportedMIMETypes = map[string]struct{}{
	"application/pdf": {},
	"image/png":       {},
	"image/jpeg":      {},
	"image/tiff":      {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// IsAllowedExt reports whether ext (with or without a leading dot) may be ingested.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MIMEForExt returns the MIME type for an extension, or application/octet-stream.
func MIMEForExt(ext string) string {
	if m, ok := mimeByExt[NormalizeExt(ext)]; ok {
		return m
	}
	return "application/octet-stream"
}

// AllowedExtList returns the allowed extensions in a stable order for messages and UI hints.
func AllowedExtList() []string {
	return []string{"pdf", "png", "jpg", "jpeg", "tiff"}
}

// ExportFormat is a supported export file format.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
	ExportJSON ExportFormat = "json"
)

// ParseExportFormat matches case-insensitively; "excel" is accepted as xlsx.
func ParseExportFormat(s string) (ExportFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return ExportCSV, true
	case "xlsx", "excel":
		return ExportXLSX, true
	case "json":
		return ExportJSON, true
	}
	return "", false
}

// Extension is the file extension for the format.
func (f ExportFormat) Extension() string {
	return string(f)
}

// ContentType is the MIME type served for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportCSV:
		return "text/csv"
	case ExportXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportJSON:
		return "application/json"
	}
	return "application/octet-stream"
}

// ExportFormats lists supported formats in display order.
func ExportFormats() []ExportFormat {
	return []ExportFormat{ExportCSV, ExportXLSX, ExportJSON}
}
