// Package httputil centralizes the JSON error surface of the HTTP API.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/tickbase/fieldvault/internal/errors"
)

// ErrorResponse is the JSON body every failed request carries.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// errorMapping ties one error kind to its wire representation. echoMessage
// substitutes err.Error() for the canned message; only validation-style
// kinds do that, everything else keeps a fixed message so internals never
// leak.
type errorMapping struct {
	kind        error
	status      int
	slug        string
	message     string
	echoMessage bool
}

// errorMappings is ordered: decryption failures resolve before invalid input
// so an error wrapping both gets the more specific slug. ErrConfig maps to
// an opaque 500 because broken configuration reaching a handler means
// startup validation was bypassed.
var errorMappings = []errorMapping{
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "The requested resource was not found", false},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "A conflict occurred with existing data", false},
	{apperrors.ErrDecryption, http.StatusUnprocessableEntity, "decryption_failed", "The value could not be decrypted", false},
	{apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input", "", true},
	{apperrors.ErrStore, http.StatusServiceUnavailable, "store_unavailable", "The key store is temporarily unavailable", false},
	{apperrors.ErrConfig, http.StatusInternalServerError, "configuration_error", "The service is misconfigured", false},
}

// HandleErrorGin resolves err against the closed set of error kinds and
// writes the matching JSON response. Unknown errors become an opaque 500.
// Decryption failures carry their own slug so callers can tell a corrupt or
// foreign token from plain invalid input, without the response ever saying
// why authentication failed.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	status := http.StatusInternalServerError
	response := ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	}
	for _, m := range errorMappings {
		if !apperrors.Is(err, m.kind) {
			continue
		}
		status = m.status
		response = ErrorResponse{Error: m.slug, Message: m.message}
		if m.echoMessage {
			response.Message = err.Error()
		}
		break
	}

	if logger != nil {
		logger.Error("handler error",
			slog.Int("status_code", status),
			slog.String("error_code", response.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(status, response)
}

// HandleBadRequestGin answers malformed JSON or parameters with a 400.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("malformed request", slog.Any("error", err))
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
}

// HandleValidationErrorGin answers request-body validation failures with a
// 422 carrying the validation message.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("request validation failed", slog.Any("error", err))
	}
	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation_error", Message: err.Error()})
}
