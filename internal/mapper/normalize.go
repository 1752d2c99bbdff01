package mapper

import (
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

type normalizer struct {
	dayFirst bool
}

// cell normalizes f by kind. The service hint is tried before the raw mention.
func (n normalizer) cell(column string, f extract.Field, kind constants.FieldKind) Cell {
	raw := strings.TrimSpace(f.Value)
	c := Cell{
		Column:     column,
		Raw:        raw,
		Value:      raw,
		Kind:       kind,
		Normalized: true,
		Confidence: f.Confidence,
	}
	if kind == constants.KindText {
		return c
	}

	candidates := make([]string, 0, 2)
	if h := strings.TrimSpace(f.Hint); h != "" {
		candidates = append(candidates, h)
	}
	if raw != "" {
		candidates = append(candidates, raw)
	}
	if len(candidates) == 0 {
		return c
	}

	var reason string
	for _, s := range candidates {
		v, err := n.normalize(s, kind)
		if err == nil {
			c.Value = v
			return c
		}
		if reason == "" {
			reason = err.Error()
		}
	}

	c.Normalized = false
	c.Err = &common.FieldNormalizationError{
		Field:  column,
		Kind:   kind,
		Value:  raw,
		Reason: reason,
	}
	return c
}

func (n normalizer) normalize(s string, kind constants.FieldKind) (string, error) {
	switch kind {
	case constants.KindDate:
		return NormalizeDate(s, n.dayFirst)
	case constants.KindAmount:
		return NormalizeAmount(s)
	case constants.KindQuantity:
		return NormalizeQuantity(s)
	}
	return s, nil
}
