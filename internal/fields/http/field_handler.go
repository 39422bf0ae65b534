// Package http provides HTTP handlers for field encryption, decryption, and
// fingerprint operations.
package http

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tickbase/fieldvault/internal/fields/http/dto"
	fieldsUseCase "github.com/tickbase/fieldvault/internal/fields/usecase"
	"github.com/tickbase/fieldvault/internal/httputil"
	customValidation "github.com/tickbase/fieldvault/internal/validation"
)

// FieldHandler handles HTTP requests for field-level encryption operations.
// It coordinates request validation and workspace scoping with the FieldUseCase.
type FieldHandler struct {
	fieldUseCase fieldsUseCase.FieldUseCase // Business logic for field encryption and fingerprints
	logger       *slog.Logger               // Structured logger for request handling and error reporting
}

// NewFieldHandler creates a new field handler with required dependencies.
func NewFieldHandler(
	fieldUseCase fieldsUseCase.FieldUseCase,
	logger *slog.Logger,
) *FieldHandler {
	return &FieldHandler{
		fieldUseCase: fieldUseCase,
		logger:       logger,
	}
}

// workspaceIDParam extracts and validates the workspace ID path parameter.
func (h *FieldHandler) workspaceIDParam(c *gin.Context) (uuid.UUID, bool) {
	workspaceID, err := uuid.Parse(c.Param("workspace_id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid workspace ID format: must be a valid UUID"),
			h.logger)
		return uuid.Nil, false
	}
	return workspaceID, true
}

// EncryptHandler encrypts a field value under the workspace's DEK.
// POST /v1/workspaces/:workspace_id/encrypt
// Returns 200 OK with the encoded token; empty input stays empty.
func (h *FieldHandler) EncryptHandler(c *gin.Context) {
	// Extract and validate workspace ID from URL parameter
	workspaceID, ok := h.workspaceIDParam(c)
	if !ok {
		return
	}

	var req dto.EncryptFieldRequest

	// Parse and bind JSON
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	// Validate request
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	// Call use case
	token, err := h.fieldUseCase.Encrypt(c.Request.Context(), workspaceID, req.Value)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.FieldResponse{
		WorkspaceID: workspaceID.String(),
		Value:       token,
	}
	c.JSON(http.StatusOK, response)
}

// DecryptHandler decrypts a field token back to plaintext.
// POST /v1/workspaces/:workspace_id/decrypt
// Returns 200 OK with the plaintext. SECURITY: Internal listener only.
func (h *FieldHandler) DecryptHandler(c *gin.Context) {
	// Extract and validate workspace ID from URL parameter
	workspaceID, ok := h.workspaceIDParam(c)
	if !ok {
		return
	}

	var req dto.DecryptFieldRequest

	// Parse and bind JSON
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	// Validate request
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	// Call use case
	plaintext, err := h.fieldUseCase.Decrypt(c.Request.Context(), workspaceID, req.Value)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.FieldResponse{
		WorkspaceID: workspaceID.String(),
		Value:       plaintext,
	}
	c.JSON(http.StatusOK, response)
}

// FingerprintHandler derives the blind-index digest for a value.
// POST /v1/fingerprint
// Returns 200 OK with the hex digest; blank input yields an empty digest.
func (h *FieldHandler) FingerprintHandler(c *gin.Context) {
	var req dto.FingerprintRequest

	// Parse and bind JSON
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	// Validate request
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	// Fingerprints are deterministic and workspace independent
	digest := h.fieldUseCase.Fingerprint(req.Value)

	response := dto.FingerprintResponse{
		Fingerprint: hex.EncodeToString(digest),
	}
	c.JSON(http.StatusOK, response)
}
