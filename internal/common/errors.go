package common

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// AppError represents application-specific errors.
// Kind is one of the sentinels below; Cause is the underlying failure, if any.
type AppError struct {
	Code    string
	Message string
	Stage   constants.Stage
	Kind    error
	Cause   error
}

func (e *AppError) Error() string {
	prefix := e.Code
	if e.Stage != "" {
		prefix = string(e.Stage) + ": " + e.Code
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Pipeline error taxonomy
var (
	ErrUnsupportedFormat       = errors.New("unsupported format")
	ErrPayloadTooLarge         = errors.New("payload too large")
	ErrServiceUnavailable      = errors.New("service unavailable")
	ErrUnprocessableDocument   = errors.New("unprocessable document")
	ErrQuotaExceeded           = errors.New("quota exceeded")
	ErrFieldNormalization      = errors.New("field normalization failed")
	ErrUnsupportedExportFormat = errors.New("unsupported export format")
	ErrMissingConfiguration    = errors.New("missing configuration")
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
)

var codes = []struct {
	sentinel error
	code     string
}{
	{ErrUnsupportedFormat, "UNSUPPORTED_FORMAT"},
	{ErrPayloadTooLarge, "PAYLOAD_TOO_LARGE"},
	{ErrServiceUnavailable, "SERVICE_UNAVAILABLE"},
	{ErrUnprocessableDocument, "UNPROCESSABLE_DOCUMENT"},
	{ErrQuotaExceeded, "QUOTA_EXCEEDED"},
	{ErrFieldNormalization, "FIELD_NORMALIZATION_ERROR"},
	{ErrUnsupportedExportFormat, "UNSUPPORTED_EXPORT_FORMAT"},
	{ErrMissingConfiguration, "MISSING_CONFIGURATION"},
	{ErrNotFound, "NOT_FOUND"},
	{ErrInvalidInput, "INVALID_INPUT"},
	{ErrDatabase, "DATABASE_ERROR"},
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewStageError builds a fatal pipeline error for the given stage and taxonomy kind.
func NewStageError(stage constants.Stage, kind error, message string, cause error) *AppError {
	return &AppError{
		Code:    CodeOf(kind),
		Message: message,
		Stage:   stage,
		Kind:    kind,
		Cause:   cause,
	}
}

// CodeOf returns the stable code for a taxonomy sentinel, or INTERNAL.
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) && ae.Kind != nil {
		err = ae.Kind
	}
	for _, c := range codes {
		if errors.Is(err, c.sentinel) {
			return c.code
		}
	}
	return "INTERNAL"
}

// StageOf returns the failing stage carried by err, if any.
func StageOf(err error) constants.Stage {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Stage
	}
	return ""
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// FieldNormalizationError is recorded on a cell whose raw value could not be normalized.
// It never aborts processing.
type FieldNormalizationError struct {
	Field  string              `json:"field"`
	Kind   constants.FieldKind `json:"kind"`
	Value  string              `json:"value"`
	Reason string              `json:"reason"`
}

func (e *FieldNormalizationError) Error() string {
	return fmt.Sprintf("normalize %s %q as %s: %s", e.Field, e.Value, e.Kind, e.Reason)
}

func (e *FieldNormalizationError) Is(target error) bool {
	return target == ErrFieldNormalization
}
