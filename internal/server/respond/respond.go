package respond

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string          `json:"code"`
	Stage   constants.Stage `json:"stage,omitempty"`
	Message string          `json:"message"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

var statuses = []struct {
	sentinel error
	status   int
}{
	{common.ErrUnsupportedFormat, http.StatusUnsupportedMediaType},
	{common.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
	{common.ErrServiceUnavailable, http.StatusServiceUnavailable},
	{common.ErrUnprocessableDocument, http.StatusUnprocessableEntity},
	{common.ErrQuotaExceeded, http.StatusTooManyRequests},
	{common.ErrUnsupportedExportFormat, http.StatusBadRequest},
	{common.ErrInvalidInput, http.StatusBadRequest},
	{common.ErrNotFound, http.StatusNotFound},
	{common.ErrMissingConfiguration, http.StatusInternalServerError},
}

// StatusOf maps a pipeline error onto an HTTP status.
func StatusOf(err error) int {
	var ae *common.AppError
	if errors.As(err, &ae) && ae.Kind != nil {
		err = ae.Kind
	}
	for _, s := range statuses {
		if errors.Is(err, s.sentinel) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// BodyOf builds the error object for err. Internal failures hide their cause.
func BodyOf(err error) ErrorBody {
	body := ErrorBody{Code: common.CodeOf(err), Stage: common.StageOf(err), Message: err.Error()}
	if StatusOf(err) == http.StatusInternalServerError && body.Code == "INTERNAL" {
		body.Message = "Unexpected server error"
	}
	return body
}

// Error sends a standardized error response for err.
func Error(c *gin.Context, err error) {
	status := StatusOf(err)
	body := BodyOf(err)

	logger := common.LoggerFromContext(c.Request.Context(), slog.Default())
	attrs := []any{
		"status", status,
		"code", body.Code,
		"stage", body.Stage,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"err", err,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("http.error", attrs...)
	} else {
		logger.Warn("http.error", attrs...)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: body})
}

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Attachment sends b as a downloadable file.
func Attachment(c *gin.Context, fileName string, format constants.ExportFormat, b []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, format.ContentType(), b)
}
