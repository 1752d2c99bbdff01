package extract

import (
	"context"
)

// Extractor sends a document to the extraction service and returns its structured fields.
type Extractor interface {
	Extract(ctx context.Context, content []byte, mimeType string) (*Result, error)
}

// Field is one extracted value tagged with its canonical name.
type Field struct {
	Name       string  `json:"name"`
	Value      string  `json:"value"`
	Hint       string  `json:"hint,omitempty"` // service-normalized text, if provided
	Confidence float32 `json:"confidence"`
}

// LineItem is one row of the invoice's item table.
type LineItem struct {
	Fields []Field `json:"fields"`
}

// Result is the structured outcome of one extraction. Field order follows the service response.
type Result struct {
	Fields    []Field    `json:"fields"`
	LineItems []LineItem `json:"line_items"`
	Pages     int        `json:"pages,omitempty"`
	// Raw is the service response as protojson, kept for staging. Never serialized with the result.
	Raw []byte `json:"-"`
}

// Field returns the invoice-level field with the given name.
func (r *Result) Field(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Field returns the line-item property with the given name.
func (li LineItem) Field(name string) (Field, bool) {
	for _, f := range li.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
