package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

// FromRows rebuilds records from a JSON array of flat objects, the shape the JSON
// export writes. Key order is kept and cells are re-normalized by column kind.
func FromRows(data []byte, dayFirst bool) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, rowsError(err)
	}
	n := normalizer{dayFirst: dayFirst}
	records := make([]Record, 0)
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, rowsError(err)
		}
		var cells []Cell
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, rowsError(err)
			}
			column, _ := tok.(string)
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, rowsError(err)
			}
			raw, err := scalar(v)
			if err != nil {
				return nil, rowsError(fmt.Errorf("column %q: %w", column, err))
			}
			cells = append(cells, n.cell(column, extract.Field{Value: raw, Confidence: 1}, columnKind(column)))
		}
		if _, err := dec.Token(); err != nil {
			return nil, rowsError(err)
		}
		records = append(records, Record{Cells: cells})
	}
	if _, err := dec.Token(); err != nil {
		return nil, rowsError(err)
	}
	return records, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func scalar(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	}
	return "", fmt.Errorf("nested values are not supported")
}

// columnKind infers a column's kind from the field registry.
func columnKind(column string) constants.FieldKind {
	switch {
	case column == SourceColumn:
		return constants.KindText
	case strings.HasSuffix(column, ConfidenceSuffix):
		return constants.KindQuantity
	case strings.HasPrefix(column, constants.LineItemPrefix):
		if k, ok := constants.LineItemFieldKind(strings.TrimPrefix(column, constants.LineItemPrefix)); ok {
			return k
		}
	}
	if k, ok := constants.InvoiceFieldKind(column); ok {
		return k
	}
	if k, ok := constants.LineItemFieldKind(column); ok {
		return k
	}
	return constants.KindText
}

func rowsError(err error) error {
	return common.NewStageError(constants.StageExport, common.ErrInvalidInput, "records must be a json array of flat objects", err)
}
