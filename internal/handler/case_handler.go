package handler

import (
	"net/http"

	"github.com/dropforge/case-service/internal/dto"
	"github.com/dropforge/case-service/internal/service"
	"github.com/gin-gonic/gin"
)

// CaseHandler handles the player-facing case endpoints
type CaseHandler struct {
	caseService service.CaseService
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(caseService service.CaseService) *CaseHandler {
	return &CaseHandler{
		caseService: caseService,
	}
}

// ListCases returns every case with remaining-quantity projections
func (h *CaseHandler) ListCases(c *gin.Context) {
	cases, err := h.caseService.ListCases(c.Request.Context(), c.GetString(contextUserID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cases)
}

// GetProfile returns the caller's profile with their prize history
func (h *CaseHandler) GetProfile(c *gin.Context) {
	profile, err := h.caseService.GetProfile(c.Request.Context(), c.GetString(contextUserID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// OpenCase opens a case for the caller and returns the awarded prize
func (h *CaseHandler) OpenCase(c *gin.Context) {
	var req dto.OpenCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := h.caseService.Open(c.Request.Context(), c.GetString(contextUserID), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
