package extract

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// FromDocument converts Document AI entities into a Result.
// Entity types are mapped to canonical names; repeated types keep the most confident mention.
func FromDocument(doc *documentaipb.Document) *Result {
	res := &Result{Pages: len(doc.GetPages())}
	var fields fieldSet
	for _, e := range doc.GetEntities() {
		if constants.IsLineItemEntity(e.GetType()) {
			if li, ok := lineItemFrom(e); ok {
				res.LineItems = append(res.LineItems, li)
			}
			continue
		}
		name := constants.CanonicalFieldName(e.GetType())
		if name == "" {
			continue
		}
		fields.add(fieldFrom(name, e))
	}
	res.Fields = fields.list
	return res
}

func lineItemFrom(e *documentaipb.Document_Entity) (LineItem, bool) {
	var fields fieldSet
	for _, p := range e.GetProperties() {
		name := constants.CanonicalLineItemName(p.GetType())
		if name == "" {
			continue
		}
		fields.add(fieldFrom(name, p))
	}
	if len(fields.list) == 0 {
		text := cleanMention(e.GetMentionText())
		if text == "" {
			return LineItem{}, false
		}
		fields.add(Field{Name: constants.FieldDescription, Value: text, Confidence: e.GetConfidence()})
	}
	return LineItem{Fields: fields.list}, true
}

func fieldFrom(name string, e *documentaipb.Document_Entity) Field {
	return Field{
		Name:       name,
		Value:      cleanMention(e.GetMentionText()),
		Hint:       strings.TrimSpace(e.GetNormalizedValue().GetText()),
		Confidence: e.GetConfidence(),
	}
}

func cleanMention(s string) string {
	return strings.TrimSpace(s)
}

// fieldSet keeps first-seen order and the highest-confidence value per name.
type fieldSet struct {
	list  []Field
	index map[string]int
}

func (s *fieldSet) add(f Field) {
	if s.index == nil {
		s.index = map[string]int{}
	}
	if i, ok := s.index[f.Name]; ok {
		if f.Confidence > s.list[i].Confidence {
			s.list[i] = f
		}
		return
	}
	s.index[f.Name] = len(s.list)
	s.list = append(s.list, f)
}

// dedupeFields applies the fieldSet rule to fields decoded from outside the service.
func dedupeFields(fields []Field) []Field {
	if len(fields) < 2 {
		return fields
	}
	var set fieldSet
	for _, f := range fields {
		set.add(f)
	}
	return set.list
}
