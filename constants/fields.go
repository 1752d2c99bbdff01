package constants

import (
	"strings"
)

// FieldKind drives how the row mapper normalizes a value.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindDate     FieldKind = "date"
	KindAmount   FieldKind = "amount"
	KindQuantity FieldKind = "quantity"
)

// Canonical invoice-level field names.
const (
	FieldInvoiceNumber   = "invoice_number"
	FieldDate            = "date"
	FieldDueDate         = "due_date"
	FieldDeliveryDate    = "delivery_date"
	FieldPurchaseOrder   = "purchase_order"
	FieldVendorName      = "vendor_name"
	FieldVendorAddress   = "vendor_address"
	FieldVendorTaxID     = "vendor_tax_id"
	FieldVendorEmail     = "vendor_email"
	FieldVendorPhone     = "vendor_phone"
	FieldCustomerName    = "customer_name"
	FieldCustomerAddress = "customer_address"
	FieldCustomerTaxID   = "customer_tax_id"
	FieldShipToName      = "ship_to_name"
	FieldShipToAddress   = "ship_to_address"
	FieldPaymentTerms    = "payment_terms"
	FieldCurrency        = "currency"
	FieldSubtotal        = "subtotal"
	FieldTax             = "tax"
	FieldFreight         = "freight"
	FieldAmountPaid      = "amount_paid"
	FieldAmountDue       = "amount_due"
	FieldTotal           = "total"
)

// Canonical line-item field names.
const (
	FieldDescription = "description"
	FieldQuantity    = "quantity"
	FieldUnitPrice   = "unit_price"
	FieldTotalPrice  = "total_price"
	FieldProductCode = "product_code"
	FieldUnit        = "unit"
	FieldItemTax     = "tax_amount"
)

// LineItemPrefix is prepended to a line-item column that collides with an invoice-level one.
const LineItemPrefix = "item_"

var invoiceFields = map[string]FieldKind{
	FieldInvoiceNumber:   KindText,
	FieldDate:            KindDate,
	FieldDueDate:         KindDate,
	FieldDeliveryDate:    KindDate,
	FieldPurchaseOrder:   KindText,
	FieldVendorName:      KindText,
	FieldVendorAddress:   KindText,
	FieldVendorTaxID:     KindText,
	FieldVendorEmail:     KindText,
	FieldVendorPhone:     KindText,
	FieldCustomerName:    KindText,
	FieldCustomerAddress: KindText,
	FieldCustomerTaxID:   KindText,
	FieldShipToName:      KindText,
	FieldShipToAddress:   KindText,
	FieldPaymentTerms:    KindText,
	FieldCurrency:        KindText,
	FieldSubtotal:        KindAmount,
	FieldTax:             KindAmount,
	FieldFreight:         KindAmount,
	FieldAmountPaid:      KindAmount,
	FieldAmountDue:       KindAmount,
	FieldTotal:           KindAmount,
}

var lineItemFields = map[string]FieldKind{
	FieldDescription: KindText,
	FieldQuantity:    KindQuantity,
	FieldUnitPrice:   KindAmount,
	FieldTotalPrice:  KindAmount,
	FieldProductCode: KindText,
	FieldUnit:        KindText,
	FieldItemTax:     KindAmount,
}

// Document AI invoice-parser entity types that do not match our canonical names.
var entitySynonyms = map[string]string{
	"invoice_id":                     FieldInvoiceNumber,
	"invoice_date":                   FieldDate,
	"total_amount":                   FieldTotal,
	"net_amount":                     FieldSubtotal,
	"total_tax_amount":               FieldTax,
	"freight_amount":                 FieldFreight,
	"supplier_name":                  FieldVendorName,
	"supplier_address":               FieldVendorAddress,
	"supplier_tax_id":                FieldVendorTaxID,
	"supplier_email":                 FieldVendorEmail,
	"supplier_phone":                 FieldVendorPhone,
	"receiver_name":                  FieldCustomerName,
	"receiver_address":               FieldCustomerAddress,
	"receiver_tax_id":                FieldCustomerTaxID,
	"ship_to_address":                FieldShipToAddress,
	"purchase_order":                 FieldPurchaseOrder,
	"currency":                       FieldCurrency,
	"due_date":                       FieldDueDate,
	"delivery_date":                  FieldDeliveryDate,
	"payment_terms":                  FieldPaymentTerms,
	"amount_paid_since_last_invoice": FieldAmountPaid,
	"amount_due":                     FieldAmountDue,
}

var lineItemSynonyms = map[string]string{
	"amount":       FieldTotalPrice,
	"product_code": FieldProductCode,
	"unit":         FieldUnit,
	"tax":          FieldItemTax,
	"tax_amount":   FieldItemTax,
}

// InvoiceFieldKind returns the kind of a known invoice-level field.
// Unknown names are overflow fields and report KindText with ok=false.
func InvoiceFieldKind(name string) (FieldKind, bool) {
	k, ok := invoiceFields[name]
	if !ok {
		return KindText, false
	}
	return k, true
}

// LineItemFieldKind is InvoiceFieldKind for line-item properties.
func LineItemFieldKind(name string) (FieldKind, bool) {
	k, ok := lineItemFields[name]
	if !ok {
		return KindText, false
	}
	return k, true
}

// CanonicalFieldName maps an extraction entity type to its canonical invoice-level name.
// Names we do not know are lowercased and passed through.
func CanonicalFieldName(entityType string) string {
	normalized := normalizeName(entityType)
	if name, ok := entitySynonyms[normalized]; ok {
		return name
	}
	return normalized
}

// CanonicalLineItemName strips the "line_item/" prefix and applies line-item synonyms.
func CanonicalLineItemName(propertyType string) string {
	normalized := normalizeName(propertyType)
	if i := strings.LastIndex(normalized, "/"); i >= 0 {
		normalized = normalized[i+1:]
	}
	if name, ok := lineItemSynonyms[normalized]; ok {
		return name
	}
	return normalized
}

// IsLineItemEntity reports whether the entity type holds a line item.
func IsLineItemEntity(entityType string) bool {
	return normalizeName(entityType) == "line_item"
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
