// internal/handlers/common.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/heimly/heimly-backend/internal/services"
	"github.com/heimly/heimly-backend/internal/store"
	"github.com/heimly/heimly-backend/internal/utils"
)

// currentUserID returns the authenticated user's id from the request
// context.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// pathUUID parses a uuid path parameter, responding 400 on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON binds the request body into req when one is present.
// Verdict endpoints accept an empty body, but a body that is sent and does
// not parse is still a 400.
func bindOptionalJSON(c *gin.Context, req any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return false
	}
	return true
}

// respondServiceError maps service and store errors onto the API error
// envelope.
func respondServiceError(c *gin.Context, resource string, err error) {
	var ve *services.ValidationErrors
	if errors.As(err, &ve) {
		utils.ErrorResponse(c, 400, "VALIDATION_ERROR", ve.Error(), ve.Messages)
		return
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(fieldErrs))
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.NotFoundResponse(c, resource)
	case errors.Is(err, store.ErrConflict):
		utils.ConflictResponse(c, "The operation conflicts with the current state; please retry")
	case errors.Is(err, services.ErrInvalidState):
		utils.ConflictResponse(c, err.Error())
	default:
		utils.InternalErrorResponse(c, "")
	}
}
