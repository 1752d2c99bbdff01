package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

func TestStageError(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := NewStageError(constants.StageExtract, ErrServiceUnavailable, "document ai call failed", cause)

	assert.True(t, errors.Is(err, ErrServiceUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrQuotaExceeded))
	assert.Equal(t, "SERVICE_UNAVAILABLE", err.Code)
	assert.Equal(t, constants.StageExtract, StageOf(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, "extract: SERVICE_UNAVAILABLE: document ai call failed: dial tcp: timeout", err.Error())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "UNSUPPORTED_EXPORT_FORMAT", CodeOf(ErrUnsupportedExportFormat))
	assert.Equal(t, "INTERNAL", CodeOf(errors.New("boom")))
	assert.Equal(t, "PAYLOAD_TOO_LARGE", CodeOf(fmt.Errorf("x: %w", ErrPayloadTooLarge)))
}

func TestFieldNormalizationError(t *testing.T) {
	var err error = &FieldNormalizationError{Field: "date", Kind: constants.KindDate, Value: "soon", Reason: "no matching layout"}
	assert.True(t, errors.Is(err, ErrFieldNormalization))
	assert.Contains(t, err.Error(), `"soon"`)
	assert.Equal(t, "", string(StageOf(err)))
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("format", "xml", OneOf("csv", "xlsx", "json")).
		Field("id", "not-a-uuid", Required, UUID).
		Field("mode", "AUTO", OneOf("auto", "invoice")).
		Check("workers", false, "must be positive")

	assert.True(t, v.HasErrors())
	assert.Equal(t, []string{"format", "id", "workers"}, v.FieldNames())
	assert.Equal(t, `format must be one of csv, xlsx, json (got "xml"); id must be a valid UUID (got "not-a-uuid"); workers must be positive`, v.ErrorMessage())

	err := v.StageError(constants.StageExport, ErrInvalidInput)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, constants.StageExport, StageOf(err))

	assert.NoError(t, NewValidator().Field("id", "", OneOf("a")).StageError(constants.StageExport, ErrInvalidInput))
}
