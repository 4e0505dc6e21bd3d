package handler

import (
	"errors"
	"net/http"

	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/internal/dto"
	"github.com/gin-gonic/gin"
)

// statusForError maps a business error to its HTTP status
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrSessionRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrAccessDenied),
		errors.Is(err, domain.ErrSelfModification):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrCaseNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCaseDisabled),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrUserCaseLimit),
		errors.Is(err, domain.ErrCaseTotalLimit),
		errors.Is(err, domain.ErrNoPrizesAvailable),
		errors.Is(err, domain.ErrLevelTooLow),
		errors.Is(err, domain.ErrInvalidLevel),
		errors.Is(err, domain.ErrInvalidImageURL),
		errors.Is(err, domain.ErrOAuthStateInvalid),
		errors.Is(err, domain.ErrOAuthCodeReplay),
		errors.Is(err, domain.ErrOAuthScope),
		errors.Is(err, domain.ErrOAuthExchange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the business error as the uniform error envelope.
// Internal failures are masked; the logging middleware records the cause.
func respondError(c *gin.Context, err error) {
	status := statusForError(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
		_ = c.Error(err)
	}

	c.JSON(status, dto.ErrorResponse{Message: message})
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
}
