package mapper

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the canonical output date format.
const DateLayout = "2006-01-02"

var errNoDateLayout = errors.New("no matching date layout")

var isoLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"20060102",
	"2006-1-2",
	"2006/1/2",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-Jan-02",
}

var monthFirstLayouts = []string{
	"01/02/2006", "1/2/2006", "01/02/06", "1/2/06",
	"01-02-2006", "1-2-2006", "01-02-06",
}

var dayFirstLayouts = []string{
	"02/01/2006", "2/1/2006", "02/01/06", "2/1/06",
	"02-01-2006", "2-1-2006", "02-01-06",
}

// dotted numeric dates are day-first by convention
var dottedLayouts = []string{"02.01.2006", "2.1.2006", "02.01.06", "2.1.06"}

var namedLayouts = []string{
	"January 2, 2006", "January 2 2006", "Jan 2, 2006", "Jan 2 2006",
	"2 January 2006", "2 January, 2006", "2 Jan 2006", "2 Jan, 2006",
	"02-Jan-2006", "2-Jan-2006", "02-Jan-06", "2-Jan-06",
	"Monday, January 2, 2006", "Mon, Jan 2, 2006", "Monday, 2 January 2006", "Mon, 2 Jan 2006",
}

var (
	ordinalSuffix = regexp.MustCompile(`(\d)(st|nd|rd|th)\b`)
	abbrevPeriod  = regexp.MustCompile(`([A-Za-z]{3,})\.`)
	multiSpace    = regexp.MustCompile(`\s+`)
)

// NormalizeDate parses s with the supported layouts and returns it as YYYY-MM-DD.
// Ambiguous slash and dash dates are read month-first unless dayFirst is set; a date
// that only parses in the other order (25/12/2024) is read that way.
func NormalizeDate(s string, dayFirst bool) (string, error) {
	s = cleanDate(s)
	if s == "" {
		return "", errNoDateLayout
	}
	preferred, fallback := monthFirstLayouts, dayFirstLayouts
	if dayFirst {
		preferred, fallback = fallback, preferred
	}
	for _, group := range [][]string{isoLayouts, preferred, fallback, dottedLayouts, namedLayouts} {
		for _, layout := range group {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(DateLayout), nil
			}
		}
	}
	return "", errNoDateLayout
}

func cleanDate(s string) string {
	s = strings.TrimSpace(s)
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = abbrevPeriod.ReplaceAllString(s, "$1")
	s = multiSpace.ReplaceAllString(s, " ")
	s = strings.TrimSuffix(s, ".")
	// "Sept" is not a Go month abbreviation
	if len(s) > 4 && strings.EqualFold(s[:5], "sept ") {
		s = "Sep " + s[5:]
	}
	return s
}
