package mapper

import (
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// amountColumns are tried in order for the minimum-amount filter.
var amountColumns = []string{constants.FieldTotalPrice, constants.FieldTotal}

// Filter narrows records before export. The zero Filter keeps every record.
type Filter struct {
	// Vendors keeps records whose vendor_name equals one of them, ignoring case.
	Vendors []string
	// MinAmount keeps records whose line total (or invoice total) is at least this.
	MinAmount *apd.Decimal
}

// NewFilter builds a Filter from user input. Blank vendors are ignored and a blank
// minAmount disables the amount check; minAmount is parsed like an extracted amount.
func NewFilter(vendors []string, minAmount string) (Filter, error) {
	var f Filter
	for _, v := range vendors {
		if v = strings.TrimSpace(v); v != "" {
			f.Vendors = append(f.Vendors, v)
		}
	}
	if strings.TrimSpace(minAmount) == "" {
		return f, nil
	}
	plain, err := NormalizeAmount(minAmount)
	if err != nil {
		return Filter{}, common.NewStageError(constants.StageExport, common.ErrInvalidInput,
			"min_amount "+minAmount+" is not a number", err)
	}
	if f.MinAmount, err = ParseAmount(plain); err != nil {
		return Filter{}, common.NewStageError(constants.StageExport, common.ErrInvalidInput,
			"min_amount "+minAmount+" is not a number", err)
	}
	return f, nil
}

// Active reports whether the filter can drop anything.
func (f Filter) Active() bool {
	return len(f.Vendors) > 0 || f.MinAmount != nil
}

// Keep reports whether r passes every condition. A record without a vendor, or without
// a normalized amount, fails the corresponding condition.
func (f Filter) Keep(r Record) bool {
	if len(f.Vendors) > 0 {
		vendor := strings.TrimSpace(r.Value(constants.FieldVendorName))
		matched := false
		for _, v := range f.Vendors {
			if strings.EqualFold(vendor, v) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if f.MinAmount != nil {
		amount, ok := recordAmount(r)
		if !ok || amount.Cmp(f.MinAmount) < 0 {
			return false
		}
	}
	return true
}

// Apply returns the records f keeps, in order.
func (f Filter) Apply(records []Record) []Record {
	if !f.Active() {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func recordAmount(r Record) (*apd.Decimal, bool) {
	for _, col := range amountColumns {
		c, ok := r.Get(col)
		if !ok || strings.TrimSpace(c.Value) == "" {
			continue
		}
		if !c.Normalized {
			return nil, false
		}
		d, err := ParseAmount(c.Value)
		if err != nil {
			return nil, false
		}
		return d, true
	}
	return nil, false
}

// Vendors lists the distinct vendor names in first-seen order.
func Vendors(records []Record) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, r := range records {
		v := strings.TrimSpace(r.Value(constants.FieldVendorName))
		key := strings.ToLower(v)
		if v == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
