package apierrors

import (
	"net/http"

	"voiceagent-server/internal/observability"

	"github.com/gin-gonic/gin"
)

var logger = observability.NewLogger()

// Machine-readable error codes.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidCriteria    = "INVALID_CRITERIA"
	CodeListNameRequired   = "LIST_NAME_REQUIRED"
	CodeListNameExists     = "LIST_NAME_EXISTS"
	CodeListNotFound       = "LIST_NOT_FOUND"
	CodeDuplicateContactID = "DUPLICATE_CONTACT_ID"
	CodeNoTargets          = "NO_TARGETS"
	CodePresetNotFound     = "PRESET_NOT_FOUND"
	CodeUnparseableFile    = "UNPARSEABLE_FILE"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeInvalidConnector   = "INVALID_CONNECTOR"
	CodeJobNotFound        = "JOB_NOT_FOUND"
	CodeImportsUnavailable = "IMPORTS_UNAVAILABLE"
	CodeCRMError           = "CRM_ERROR"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorResponse is the JSON structure returned to API clients
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// respond writes the error response and logs correlation info
func respond(c *gin.Context, statusCode int, code, message string, details any) {
	ctx := c.Request.Context()
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "status_code", Value: statusCode},
		observability.Field{Key: "error_code", Value: code},
		observability.Field{Key: "error_message", Value: message},
	)
	logger.Info(ctx, "API error response")

	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, code, message string) {
	respond(c, http.StatusNotFound, code, message, nil)
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, code, message string) {
	respond(c, http.StatusBadRequest, code, message, nil)
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, code, message string) {
	respond(c, http.StatusConflict, code, message, nil)
}

// PayloadTooLarge sends a 413 response
func PayloadTooLarge(c *gin.Context, message string) {
	respond(c, http.StatusRequestEntityTooLarge, CodeFileTooLarge, message, nil)
}

// Unprocessable sends a 422 response. details is echoed to the client, e.g. the
// rejected rows of an unreadable import file.
func Unprocessable(c *gin.Context, code, message string, details any) {
	respond(c, http.StatusUnprocessableEntity, code, message, details)
}

// TooManyRequests sends a 429 response
func TooManyRequests(c *gin.Context, message string, details any) {
	respond(c, http.StatusTooManyRequests, CodeRateLimited, message, details)
}

// BadGateway sends a 502 response and logs the upstream error
func BadGateway(c *gin.Context, code, message string, internalErr error) {
	logger.Error(c.Request.Context(), "upstream failure", internalErr)
	respond(c, http.StatusBadGateway, code, message, nil)
}

// ServiceUnavailable sends a 503 response and logs the internal error
func ServiceUnavailable(c *gin.Context, code, message string, internalErr error) {
	logger.Error(c.Request.Context(), "service unavailable", internalErr)
	respond(c, http.StatusServiceUnavailable, code, message, nil)
}

// InternalError sends a sanitized 500 response - never exposes internal details
func InternalError(c *gin.Context, internalErr error) {
	logger.Error(c.Request.Context(), "internal error", internalErr)
	respond(c, http.StatusInternalServerError, CodeInternal, "An internal error occurred. Please try again later.", nil)
}
