package mapper

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

// Mode selects which records a Result is flattened into.
type Mode string

const (
	// ModeAuto yields one record per line item when there are any, else one invoice record.
	ModeAuto Mode = "auto"
	// ModeInvoice always yields a single invoice-level record.
	ModeInvoice Mode = "invoice"
	// ModeLineItems yields one record per line item carrying only the invoice number as a key.
	ModeLineItems Mode = "line_items"
)

// ParseMode accepts "", auto, invoice, line_items (and line-items, items).
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, true
	case "invoice":
		return ModeInvoice, true
	case "line_items", "line-items", "items":
		return ModeLineItems, true
	}
	return "", false
}

// Options tune how records are built.
type Options struct {
	Mode              Mode
	IncludeConfidence bool   // add <column>_confidence after each field
	SourceFile        string // when set, a leading source_file column carries it
	DayFirst          bool   // read ambiguous numeric dates as DD/MM
}

// SourceColumn is the column that carries the originating file name.
const SourceColumn = "source_file"

// ConfidenceSuffix is appended to a column name for its confidence score.
const ConfidenceSuffix = "_confidence"

// Map flattens res into export records according to opts.Mode. It never drops a field:
// values that cannot be normalized keep their raw text and carry a FieldNormalizationError.
// The same input always yields the same records.
func Map(res *extract.Result, opts Options) ([]Record, error) {
	if res == nil {
		return nil, common.NewStageError(constants.StageMap, common.ErrInvalidInput, "no extraction result", nil)
	}
	n := normalizer{dayFirst: opts.DayFirst}

	invoice := make([]Cell, 0, len(res.Fields))
	invoiceCols := make(map[string]struct{}, len(res.Fields))
	for _, f := range res.Fields {
		kind, _ := constants.InvoiceFieldKind(f.Name)
		invoice = append(invoice, n.cell(f.Name, f, kind))
		invoiceCols[f.Name] = struct{}{}
	}

	items := make([][]Cell, 0, len(res.LineItems))
	for _, li := range res.LineItems {
		cells := make([]Cell, 0, len(li.Fields))
		taken := make(map[string]struct{}, len(li.Fields))
		for _, f := range li.Fields {
			taken[f.Name] = struct{}{}
		}
		for _, f := range li.Fields {
			kind, _ := constants.LineItemFieldKind(f.Name)
			column := f.Name
			if _, clash := invoiceCols[column]; clash {
				column = freeColumn(constants.LineItemPrefix+column, invoiceCols, taken)
				taken[column] = struct{}{}
			}
			cells = append(cells, n.cell(column, f, kind))
		}
		items = append(items, cells)
	}

	switch opts.Mode {
	case ModeInvoice:
		return []Record{{Cells: decorate(invoice, opts)}}, nil
	case ModeLineItems:
		var key []Cell
		for _, c := range invoice {
			if c.Column == constants.FieldInvoiceNumber {
				key = []Cell{c}
				break
			}
		}
		out := make([]Record, 0, len(items))
		for _, item := range items {
			out = append(out, Record{Cells: decorate(concat(key, item), opts)})
		}
		return out, nil
	default:
		if len(items) == 0 {
			return []Record{{Cells: decorate(invoice, opts)}}, nil
		}
		out := make([]Record, 0, len(items))
		for _, item := range items {
			out = append(out, Record{Cells: decorate(concat(invoice, item), opts)})
		}
		return out, nil
	}
}

// freeColumn returns base, or base_2, base_3, ... when base is already used.
func freeColumn(base string, used ...map[string]struct{}) string {
	column := base
	for i := 2; ; i++ {
		free := true
		for _, m := range used {
			if _, ok := m[column]; ok {
				free = false
				break
			}
		}
		if free {
			return column
		}
		column = base + "_" + strconv.Itoa(i)
	}
}

func concat(a, b []Cell) []Cell {
	out := make([]Cell, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// decorate adds the source column and confidence columns requested by opts.
func decorate(cells []Cell, opts Options) []Cell {
	out := make([]Cell, 0, len(cells)*2+1)
	if opts.SourceFile != "" {
		out = append(out, Cell{
			Column:     SourceColumn,
			Raw:        opts.SourceFile,
			Value:      opts.SourceFile,
			Kind:       constants.KindText,
			Normalized: true,
			Confidence: 1,
		})
	}
	for _, c := range cells {
		out = append(out, c)
		if opts.IncludeConfidence {
			score := strconv.FormatFloat(float64(c.Confidence), 'f', 2, 32)
			out = append(out, Cell{
				Column:     c.Column + ConfidenceSuffix,
				Raw:        score,
				Value:      score,
				Kind:       constants.KindQuantity,
				Normalized: true,
				Confidence: c.Confidence,
			})
		}
	}
	return out
}
