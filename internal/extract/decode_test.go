package extract

import (
	"errors"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func TestDecodeDocumentJSON(t *testing.T) {
	doc, err := protojson.Marshal(sampleDocument())
	require.NoError(t, err)

	res, err := DecodeDocumentJSON(doc)
	require.NoError(t, err)
	assert.Len(t, res.Fields, 5)
	assert.Len(t, res.LineItems, 2)

	wrapped, err := protojson.Marshal(&documentaipb.ProcessResponse{Document: sampleDocument()})
	require.NoError(t, err)
	res, err = DecodeJSON(wrapped)
	require.NoError(t, err)
	assert.Len(t, res.Fields, 5)
}

func TestDecodeResultJSON(t *testing.T) {
	in := []byte(`{
		"fields": [
			{"name": "invoice_number", "value": "INV-001", "confidence": 0.9},
			{"name": "date", "value": "2024-03-01"},
			{"name": "total", "value": "125.50"}
		],
		"line_items": [{"fields": [{"name": "description", "value": "Widget"}]}]
	}`)
	res, err := DecodeJSON(in)
	require.NoError(t, err)
	assert.Len(t, res.Fields, 3)
	assert.Equal(t, float32(0.9), res.Fields[0].Confidence)
	require.Len(t, res.LineItems, 1)

	res, err = DecodeResultJSON([]byte(`{"fields": null, "line_items": null}`))
	require.NoError(t, err)
	assert.Empty(t, res.Fields)
}

func TestDecodeResultJSON_RepeatedFieldKeepsMostConfident(t *testing.T) {
	in := []byte(`{
		"fields": [
			{"name": "total", "value": "$10.00", "confidence": 0.2},
			{"name": "vendor_name", "value": "Acme", "confidence": 0.8},
			{"name": "total", "value": "$99.00", "confidence": 0.9}
		],
		"line_items": [{"fields": [
			{"name": "quantity", "value": "3", "confidence": 0.7},
			{"name": "quantity", "value": "8", "confidence": 0.1}
		]}]
	}`)
	res, err := DecodeResultJSON(in)
	require.NoError(t, err)
	require.Len(t, res.Fields, 2)
	assert.Equal(t, "total", res.Fields[0].Name)
	assert.Equal(t, "$99.00", res.Fields[0].Value)
	assert.Equal(t, "vendor_name", res.Fields[1].Name)
	require.Len(t, res.LineItems, 1)
	require.Len(t, res.LineItems[0].Fields, 1)
	assert.Equal(t, "3", res.LineItems[0].Fields[0].Value)
}

func TestDecodeResultJSON_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing fields":      `{"line_items": []}`,
		"unknown property":    `{"fields": [], "extra": 1}`,
		"empty name":          `{"fields": [{"name": "", "value": "x"}]}`,
		"confidence too high": `{"fields": [{"name": "a", "value": "x", "confidence": 1.5}]}`,
		"numeric value":       `{"fields": [{"name": "a", "value": 12}]}`,
		"not json":            `{`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeResultJSON([]byte(in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrUnprocessableDocument))
		})
	}
}

func TestDecodeJSON_Unrecognised(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"hello": "world"}`))
	assert.True(t, errors.Is(err, common.ErrUnprocessableDocument))
	_, err = DecodeJSON([]byte(`[1,2]`))
	assert.True(t, errors.Is(err, common.ErrUnprocessableDocument))
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := map[string]any{"type": "object", "required": []string{"a"}}
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{"a": 1}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{}`)))
}
