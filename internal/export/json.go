package export

import (
	"bytes"
	"encoding/json"

	"github.com/joseph-ayodele/invoice-extractor/internal/mapper"
)

// WriteJSON writes an array with one object per record, keys in the record's column order.
// Records are not unified against each other. An empty batch is "[]".
func WriteJSON(records []mapper.Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeObject(&buf, r); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeObject(buf *bytes.Buffer, r mapper.Record) error {
	buf.WriteByte('{')
	seen := make(map[string]struct{}, len(r.Cells))
	n := 0
	for _, c := range r.Cells {
		if _, dup := seen[c.Column]; dup {
			continue
		}
		seen[c.Column] = struct{}{}
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		k, err := json.Marshal(c.Column)
		if err != nil {
			return err
		}
		v, err := json.Marshal(c.Value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return nil
}
