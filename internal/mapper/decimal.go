package mapper

import (
	"errors"
	"strings"
	"unicode"

	"github.com/cockroachdb/apd/v3"
)

var (
	errNoDigits   = errors.New("no digits")
	errNotDecimal = errors.New("not a decimal number")
)

var decimalCtx = apd.BaseContext.WithPrecision(34)

// NormalizeAmount parses a currency string and returns a plain decimal with at least two places.
// Currency symbols and codes are dropped; parentheses or a minus sign mean negative.
func NormalizeAmount(s string) (string, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return "", err
	}
	if d.Exponent > -2 {
		if _, err := decimalCtx.Quantize(d, d, -2); err != nil {
			return "", errNotDecimal
		}
	}
	return d.Text('f'), nil
}

// NormalizeQuantity parses a plain or grouped number and returns it as a decimal string.
func NormalizeQuantity(s string) (string, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return "", err
	}
	return d.Text('f'), nil
}

// ParseAmount parses an already normalized amount for arithmetic.
func ParseAmount(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, errNotDecimal
	}
	return d, nil
}

func parseDecimal(s string) (*apd.Decimal, error) {
	s = strings.TrimSpace(s)
	first := strings.IndexFunc(s, isDigit)
	last := strings.LastIndexFunc(s, isDigit)
	if first < 0 {
		return nil, errNoDigits
	}
	prefix, core, suffix := s[:first], s[first:last+1], s[last+1:]

	negative := strings.ContainsAny(prefix, "-−") || strings.HasSuffix(strings.TrimSpace(suffix), "-") ||
		(strings.Contains(prefix, "(") && strings.Contains(suffix, ")"))
	// a leading separator belongs to the number: ".50", "-,5"
	if strings.HasSuffix(prefix, ".") || strings.HasSuffix(prefix, ",") {
		core = prefix[len(prefix)-1:] + core
		prefix = prefix[:len(prefix)-1]
	}
	if strings.IndexFunc(prefix, unicode.IsDigit) >= 0 || strings.IndexFunc(suffix, unicode.IsDigit) >= 0 {
		return nil, errNotDecimal
	}

	plain, err := canonicalDigits(core)
	if err != nil {
		return nil, err
	}
	d, _, err := apd.NewFromString(plain)
	if err != nil {
		return nil, errNotDecimal
	}
	if negative && !d.IsZero() {
		d.Negative = true
	}
	return d, nil
}

// canonicalDigits removes grouping and rewrites the decimal separator as '.'.
// The separator is whichever of '.' and ',' appears last; a lone ',' is a decimal
// comma unless exactly three digits follow a non-zero integer part.
func canonicalDigits(core string) (string, error) {
	var b strings.Builder
	for _, r := range core {
		switch {
		case isDigit(r), r == '.', r == ',':
			b.WriteRune(r)
		case r == ' ', r == '\'', r == '\u00a0', r == '\u202f', r == '_':
			// grouping
		default:
			return "", errNotDecimal
		}
	}
	digits := b.String()

	lastDot := strings.LastIndex(digits, ".")
	lastComma := strings.LastIndex(digits, ",")
	var sep byte
	switch {
	case lastDot >= 0 && lastComma >= 0:
		sep = ','
		if lastDot > lastComma {
			sep = '.'
		}
		if strings.Count(digits, string(sep)) > 1 {
			return "", errNotDecimal
		}
	case lastComma >= 0:
		if strings.Count(digits, ",") == 1 {
			whole := strings.TrimLeft(digits[:lastComma], "0")
			if len(digits)-lastComma-1 != 3 || whole == "" {
				sep = ','
			}
		}
	case lastDot >= 0:
		if strings.Count(digits, ".") == 1 {
			sep = '.'
		}
	}

	var out strings.Builder
	for i := 0; i < len(digits); i++ {
		ch := digits[i]
		switch {
		case ch == '.' || ch == ',':
			if ch == sep && i == strings.LastIndexByte(digits, sep) {
				out.WriteByte('.')
			}
		default:
			out.WriteByte(ch)
		}
	}
	res := out.String()
	if strings.HasPrefix(res, ".") {
		res = "0" + res
	}
	if strings.HasSuffix(res, ".") {
		res = strings.TrimSuffix(res, ".")
	}
	return res, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
