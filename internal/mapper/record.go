package mapper

import (
	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Cell is one column of an export record.
type Cell struct {
	Column     string                          `json:"column"`
	Raw        string                          `json:"raw"`
	Value      string                          `json:"value"`
	Kind       constants.FieldKind             `json:"kind"`
	Normalized bool                            `json:"normalized"`
	Confidence float32                         `json:"confidence"`
	Err        *common.FieldNormalizationError `json:"error,omitempty"`
}

// Record is one flat export row. Cell order is column order.
type Record struct {
	Cells []Cell `json:"cells"`
}

// Columns lists the record's column names in order.
func (r Record) Columns() []string {
	cols := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		cols[i] = c.Column
	}
	return cols
}

// Get returns the cell for column.
func (r Record) Get(column string) (Cell, bool) {
	for _, c := range r.Cells {
		if c.Column == column {
			return c, true
		}
	}
	return Cell{}, false
}

// Value returns the cell value for column, or "" when absent.
func (r Record) Value(column string) string {
	c, _ := r.Get(column)
	return c.Value
}

// Errors returns the normalization failures recorded on the record's cells.
func (r Record) Errors() []*common.FieldNormalizationError {
	var errs []*common.FieldNormalizationError
	for _, c := range r.Cells {
		if c.Err != nil {
			errs = append(errs, c.Err)
		}
	}
	return errs
}

// Normalized reports whether every cell was normalized.
func (r Record) Normalized() bool {
	for _, c := range r.Cells {
		if !c.Normalized {
			return false
		}
	}
	return true
}
