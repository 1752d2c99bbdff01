package extract

import (
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entity(typ, mention string, conf float32) *documentaipb.Document_Entity {
	return &documentaipb.Document_Entity{Type: typ, MentionText: mention, Confidence: conf}
}

func sampleDocument() *documentaipb.Document {
	date := entity("invoice_date", "March 1, 2024", 0.97)
	date.NormalizedValue = &documentaipb.Document_Entity_NormalizedValue{Text: "2024-03-01"}
	return &documentaipb.Document{
		Pages: []*documentaipb.Document_Page{{PageNumber: 1}},
		Entities: []*documentaipb.Document_Entity{
			entity("invoice_id", "INV-001", 0.99),
			date,
			entity("total_amount", "$125.50", 0.95),
			entity("supplier_name", "Acme Corp", 0.91),
			entity("remit_to_name", "Acme Billing", 0.5),
			{
				Type: "line_item",
				Properties: []*documentaipb.Document_Entity{
					entity("line_item/description", "Widget", 0.9),
					entity("line_item/quantity", "2", 0.9),
					entity("line_item/unit_price", "50.00", 0.9),
					entity("line_item/amount", "100.00", 0.9),
				},
			},
			{
				Type: "line_item",
				Properties: []*documentaipb.Document_Entity{
					entity("line_item/description", "Shipping", 0.8),
					entity("line_item/amount", "25.50", 0.8),
				},
			},
		},
	}
}

func TestFromDocument(t *testing.T) {
	res := FromDocument(sampleDocument())

	require.Len(t, res.Fields, 5)
	assert.Equal(t, []string{"invoice_number", "date", "total", "vendor_name", "remit_to_name"}, fieldNames(res.Fields))
	date, ok := res.Field("date")
	require.True(t, ok)
	assert.Equal(t, "March 1, 2024", date.Value)
	assert.Equal(t, "2024-03-01", date.Hint)
	assert.Equal(t, 1, res.Pages)

	require.Len(t, res.LineItems, 2)
	assert.Equal(t, []string{"description", "quantity", "unit_price", "total_price"}, fieldNames(res.LineItems[0].Fields))
	price, ok := res.LineItems[1].Field("total_price")
	require.True(t, ok)
	assert.Equal(t, "25.50", price.Value)
}

func TestFromDocument_DuplicateKeepsMostConfident(t *testing.T) {
	doc := &documentaipb.Document{Entities: []*documentaipb.Document_Entity{
		entity("total_amount", "100.00", 0.4),
		entity("invoice_id", "A-1", 0.9),
		entity("total_amount", "110.00", 0.8),
		entity("total_amount", "90.00", 0.7),
	}}
	res := FromDocument(doc)
	require.Len(t, res.Fields, 2)
	assert.Equal(t, "total", res.Fields[0].Name, "first-seen position is kept")
	assert.Equal(t, "110.00", res.Fields[0].Value)
}

func TestFromDocument_LineItemWithoutProperties(t *testing.T) {
	doc := &documentaipb.Document{Entities: []*documentaipb.Document_Entity{
		entity("line_item", "  Consulting hours  ", 0.6),
		entity("line_item", "", 0.6),
	}}
	res := FromDocument(doc)
	require.Len(t, res.LineItems, 1)
	assert.Equal(t, "Consulting hours", res.LineItems[0].Fields[0].Value)
	assert.Equal(t, "description", res.LineItems[0].Fields[0].Name)
}

func TestFromDocument_Empty(t *testing.T) {
	res := FromDocument(&documentaipb.Document{})
	assert.Empty(t, res.Fields)
	assert.Empty(t, res.LineItems)
}

func fieldNames(fs []Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}
