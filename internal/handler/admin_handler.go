package handler

import (
	"net/http"

	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/internal/dto"
	"github.com/dropforge/case-service/internal/service"
	"github.com/gin-gonic/gin"
)

// AdminHandler handles the leadership/dev management endpoints
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// ListUsers returns every user grouped by approval state
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.adminService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// GetUser returns one user with their recent prize history
func (h *AdminHandler) GetUser(c *gin.Context) {
	detail, err := h.adminService.GetUserDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// AdjustBalance applies a signed balance delta to the target user
func (h *AdminHandler) AdjustBalance(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		respondError(c, domain.ErrUnauthenticated)
		return
	}

	var req dto.BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.adminService.AdjustBalance(c.Request.Context(), actor.DiscordID, c.Param("id"), req.Delta); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{OK: true})
}

// SetLevel changes the target user's level
func (h *AdminHandler) SetLevel(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		respondError(c, domain.ErrUnauthenticated)
		return
	}

	var req dto.LevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.adminService.SetLevel(c.Request.Context(), actor, c.Param("id"), domain.Level(req.Level)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{OK: true})
}

// Decide approves or denies a pending user
func (h *AdminHandler) Decide(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		respondError(c, domain.ErrUnauthenticated)
		return
	}

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.adminService.Decide(c.Request.Context(), actor.DiscordID, c.Param("id"), *req.Approved); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{OK: true})
}

// SetBlocked blocks or unblocks the target user
func (h *AdminHandler) SetBlocked(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		respondError(c, domain.ErrUnauthenticated)
		return
	}

	var req dto.BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.adminService.SetBlocked(c.Request.Context(), actor.DiscordID, c.Param("id"), *req.Blocked); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{OK: true})
}

// ConfirmPrize marks a delivered prize as confirmed
func (h *AdminHandler) ConfirmPrize(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		respondError(c, domain.ErrUnauthenticated)
		return
	}

	var req dto.ConfirmPrizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.adminService.ConfirmPrize(c.Request.Context(), actor.DiscordID, c.Param("id"), req.CaseName, req.Prize); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{OK: true})
}

// ListCases returns the unprojected case definitions
func (h *AdminHandler) ListCases(c *gin.Context) {
	cases, err := h.adminService.ListCasesFull(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cases)
}

// UpsertCase creates or redefines a case with its prize pool
func (h *AdminHandler) UpsertCase(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		respondError(c, domain.ErrUnauthenticated)
		return
	}

	var req dto.UpsertCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.adminService.UpsertCase(c.Request.Context(), actor.DiscordID, &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{OK: true})
}

// DeleteCase removes a case and its prizes
func (h *AdminHandler) DeleteCase(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		respondError(c, domain.ErrUnauthenticated)
		return
	}

	var req dto.DeleteCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.adminService.DeleteCase(c.Request.Context(), actor.DiscordID, req.Name); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{OK: true})
}
