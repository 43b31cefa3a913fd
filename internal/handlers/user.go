package handlers

import (
	"net/http"

	"adslot-market/internal/models"
	"adslot-market/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler handles the signed-in user's account endpoints
type UserHandler struct {
	accountService *services.AccountService
	logger         *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(accountService *services.AccountService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// GetProfile returns the current user's profile and company
// GET /api/me
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	profile, err := h.accountService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateNickname updates the current user's nickname
// PUT /api/me/nickname
func (h *UserHandler) UpdateNickname(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.UpdateNicknameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.accountService.UpdateNickname(c.Request.Context(), userID, req.Nickname); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Nickname updated successfully"})
}

// SaveCompany creates or updates the current user's advertiser profile
// PUT /api/me/company
func (h *UserHandler) SaveCompany(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.CompanyProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	company, err := h.accountService.SaveCompanyProfile(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, company)
}
