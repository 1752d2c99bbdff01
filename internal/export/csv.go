package export

import (
	"bytes"
	"encoding/csv"

	"github.com/joseph-ayodele/invoice-extractor/internal/mapper"
)

// WriteCSV writes a header of the column union followed by one line per record.
// An empty batch produces an empty file.
func WriteCSV(records []mapper.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	cols := Columns(records)
	if len(cols) > 0 {
		if err := w.Write(cols); err != nil {
			return nil, err
		}
	}
	line := make([]string, len(cols))
	for _, r := range records {
		for i, c := range row(r, cols) {
			line[i] = c.Value
		}
		if err := w.Write(line); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
