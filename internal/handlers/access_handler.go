package handlers

import (
	"net/http"

	"adslot-market/internal/models"
	"adslot-market/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AccessHandler struct {
	accessService *services.AccessService
	logger        *zap.Logger
}

func NewAccessHandler(accessService *services.AccessService, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{
		accessService: accessService,
		logger:        logger,
	}
}

// SendAccessCode emails a one-time access code to the proposer
// POST /api/proposals/:id/access-code
func (h *AccessHandler) SendAccessCode(c *gin.Context) {
	proposalID, ok := pathUUID(c, "id", "proposal")
	if !ok {
		return
	}

	if err := h.accessService.SendAccessCode(c.Request.Context(), proposalID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "access code sent"})
}

// VerifyAccessCode exchanges an access code for a proposal credential
// POST /api/proposals/:id/access-code/verify
func (h *AccessHandler) VerifyAccessCode(c *gin.Context) {
	proposalID, ok := pathUUID(c, "id", "proposal")
	if !ok {
		return
	}

	var req models.VerifyAccessCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a 6 digit code is required"})
		return
	}

	resp, err := h.accessService.VerifyAccessCode(c.Request.Context(), proposalID, req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
