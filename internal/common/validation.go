package common

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// ValidationError is one failed check on a named setting or parameter.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s %s (got %q)", e.Field, e.Message, e.Value)
}

// Validator collects every failure so callers can report them together.
type Validator struct {
	errors []ValidationError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field runs rules against value and records each failure.
func (v *Validator) Field(name, value string, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if msg := rule(value); msg != "" {
			v.errors = append(v.errors, ValidationError{Field: name, Value: value, Message: msg})
		}
	}
	return v
}

// Check records msg against name when ok is false.
func (v *Validator) Check(name string, ok bool, msg string) *Validator {
	if !ok {
		v.errors = append(v.errors, ValidationError{Field: name, Message: msg})
	}
	return v
}

func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// FieldNames lists the failing fields in the order they were checked.
func (v *Validator) FieldNames() []string {
	names := make([]string, 0, len(v.errors))
	seen := map[string]struct{}{}
	for _, err := range v.errors {
		if _, ok := seen[err.Field]; ok {
			continue
		}
		seen[err.Field] = struct{}{}
		names = append(names, err.Field)
	}
	return names
}

// ErrorMessage joins every failure with "; ".
func (v *Validator) ErrorMessage() string {
	msgs := make([]string, len(v.errors))
	for i, err := range v.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// StageError returns nil when nothing failed, else an AppError of kind raised at stage.
func (v *Validator) StageError(stage constants.Stage, kind error) error {
	if !v.HasErrors() {
		return nil
	}
	return NewStageError(stage, kind, v.ErrorMessage(), nil)
}

// ValidationRule returns a failure message, or "" when value passes.
type ValidationRule func(value string) string

func Required(value string) string {
	if strings.TrimSpace(value) == "" {
		return "is required"
	}
	return ""
}

func UUID(value string) string {
	if _, err := uuid.Parse(value); err != nil {
		return "must be a valid UUID"
	}
	return ""
}

// OneOf accepts a case-insensitive match of one of allowed. Empty passes; pair with Required.
func OneOf(allowed ...string) ValidationRule {
	return func(value string) string {
		if value == "" {
			return ""
		}
		for _, a := range allowed {
			if strings.EqualFold(value, a) {
				return ""
			}
		}
		return "must be one of " + strings.Join(allowed, ", ")
	}
}
