package apierrors

import (
	"errors"

	"voiceagent-server/internal/clients/crm"
	importProcessor "voiceagent-server/internal/imports/processor"
	"voiceagent-server/internal/store"
	"voiceagent-server/internal/targeting"
	targetListProcessor "voiceagent-server/internal/targetlist/processor"
	"voiceagent-server/internal/workers"

	"github.com/gin-gonic/gin"
)

// RespondWithError maps a domain or processor error to a sanitized JSON response.
// Processors have already logged the detailed error.
//
// Example usage:
//
//	if err != nil {
//	    apierrors.RespondWithError(c, err)
//	    return
//	}
func RespondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var validationErr *targeting.ValidationError
	var dupErr *targeting.DuplicateIDError
	var parseErr *targeting.ParseError

	switch {
	// Target list errors
	case errors.As(err, &validationErr):
		BadRequest(c, CodeInvalidCriteria, validationErr.Error())

	case errors.Is(err, targeting.ErrEmptyName):
		BadRequest(c, CodeListNameRequired, "List name is required")

	case errors.Is(err, targeting.ErrDuplicateName):
		Conflict(c, CodeListNameExists, "A saved list with this name already exists")

	case errors.Is(err, targeting.ErrListNotFound):
		NotFound(c, CodeListNotFound, "Saved list not found")

	case errors.As(err, &dupErr):
		Conflict(c, CodeDuplicateContactID, dupErr.Error())

	case errors.Is(err, targetListProcessor.ErrNoTargets):
		BadRequest(c, CodeNoTargets, "Select at least one contact to create a campaign")

	case errors.Is(err, targetListProcessor.ErrPresetNotFound):
		NotFound(c, CodePresetNotFound, "Preset not found")

	// Import errors
	case errors.Is(err, importProcessor.ErrFileTooLarge):
		PayloadTooLarge(c, "The uploaded file is too large")

	case errors.As(err, &parseErr):
		Unprocessable(c, CodeUnparseableFile, parseErr.Error(), []importProcessor.RowError{{Row: 0, Reason: parseErr.Error()}})

	case errors.Is(err, importProcessor.ErrJobNotFound):
		NotFound(c, CodeJobNotFound, "Import job not found")

	case errors.Is(err, importProcessor.ErrInvalidConnector), errors.Is(err, crm.ErrUnknownProvider):
		BadRequest(c, CodeInvalidConnector, "Unknown or incomplete CRM connector")

	case errors.Is(err, importProcessor.ErrCRMDisabled):
		ServiceUnavailable(c, CodeImportsUnavailable, "CRM imports are not configured", err)

	case errors.Is(err, importProcessor.ErrObjectsDisabled):
		ServiceUnavailable(c, CodeImportsUnavailable, "Object storage imports are not configured", err)

	case errors.Is(err, workers.ErrPoolShuttingDown), errors.Is(err, workers.ErrPoolNotStarted):
		ServiceUnavailable(c, CodeImportsUnavailable, "Imports are temporarily unavailable. Please try again later.", err)

	case errors.Is(err, crm.ErrTooManyPages):
		BadGateway(c, CodeCRMError, "The CRM returned more customers than a single import accepts", err)

	// Store errors
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, CodeNotFound, "Resource not found")

	default:
		InternalError(c, err)
	}
}
