package mapper

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Summary aggregates a batch of records for display.
type Summary struct {
	Records             int    `json:"records"`
	Normalized          int    `json:"normalized"`
	Unnormalized        int    `json:"unnormalized"`
	TotalAmount         string `json:"total_amount"`
	AverageAmount       string `json:"average_amount"`
	AmountColumn        string `json:"amount_column,omitempty"`
	UniqueVendors       int    `json:"unique_vendors"`
	DateFrom            string `json:"date_from,omitempty"`
	DateTo              string `json:"date_to,omitempty"`
	NormalizationErrors int    `json:"normalization_errors"`
}

// summaryAmountColumns are summed in preference order; the first present in the batch wins.
var summaryAmountColumns = []string{
	constants.FieldTotalPrice,
	constants.LineItemPrefix + constants.FieldTotalPrice,
	constants.FieldTotal,
}

// Summarize computes totals over normalized amounts, the vendor count and the invoice date range.
func Summarize(records []Record) Summary {
	s := Summary{Records: len(records), TotalAmount: "0.00", AverageAmount: "0.00"}
	if len(records) == 0 {
		return s
	}

	for _, col := range summaryAmountColumns {
		for _, r := range records {
			if _, ok := r.Get(col); ok {
				s.AmountColumn = col
				break
			}
		}
		if s.AmountColumn != "" {
			break
		}
	}

	sum := apd.New(0, 0)
	counted := 0
	vendors := map[string]struct{}{}
	for _, r := range records {
		if r.Normalized() {
			s.Normalized++
		} else {
			s.Unnormalized++
		}
		s.NormalizationErrors += len(r.Errors())

		if c, ok := r.Get(s.AmountColumn); ok && c.Normalized && c.Value != "" {
			if d, err := ParseAmount(c.Value); err == nil {
				_, _ = decimalCtx.Add(sum, sum, d)
				counted++
			}
		}
		if v := r.Value(constants.FieldVendorName); v != "" {
			vendors[v] = struct{}{}
		}
		if c, ok := r.Get(constants.FieldDate); ok && c.Normalized && c.Value != "" {
			if s.DateFrom == "" || c.Value < s.DateFrom {
				s.DateFrom = c.Value
			}
			if c.Value > s.DateTo {
				s.DateTo = c.Value
			}
		}
	}
	s.UniqueVendors = len(vendors)

	total := new(apd.Decimal)
	_, _ = decimalCtx.Quantize(total, sum, -2)
	s.TotalAmount = total.Text('f')
	if counted > 0 {
		avg := new(apd.Decimal)
		_, _ = decimalCtx.Quo(avg, sum, apd.New(int64(counted), 0))
		_, _ = decimalCtx.Quantize(avg, avg, -2)
		s.AverageAmount = avg.Text('f')
	}
	return s
}
