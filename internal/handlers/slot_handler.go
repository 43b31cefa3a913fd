package handlers

import (
	"net/http"

	"adslot-market/internal/models"
	"adslot-market/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SlotHandler struct {
	slotService *services.SlotService
	logger      *zap.Logger
}

func NewSlotHandler(slotService *services.SlotService, logger *zap.Logger) *SlotHandler {
	return &SlotHandler{
		slotService: slotService,
		logger:      logger,
	}
}

// CreateSlot publishes a slot on one of the caller's pages
// POST /api/slots
func (h *SlotHandler) CreateSlot(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot, err := h.slotService.CreateSlot(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, slot)
}

// GetSlot returns a slot
// GET /api/slots/:id
func (h *SlotHandler) GetSlot(c *gin.Context) {
	slotID, ok := pathUUID(c, "id", "slot")
	if !ok {
		return
	}

	slot, err := h.slotService.GetSlot(c.Request.Context(), slotID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, slot)
}

// UpdateSlot changes the terms of a slot
// PUT /api/slots/:id
func (h *SlotHandler) UpdateSlot(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	slotID, ok := pathUUID(c, "id", "slot")
	if !ok {
		return
	}

	var req models.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot, err := h.slotService.UpdateSlot(c.Request.Context(), userID, slotID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, slot)
}

// DeleteSlot removes an available slot
// DELETE /api/slots/:id
func (h *SlotHandler) DeleteSlot(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	slotID, ok := pathUUID(c, "id", "slot")
	if !ok {
		return
	}

	if err := h.slotService.DeleteSlot(c.Request.Context(), userID, slotID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetMySlots lists the caller's slots
// GET /api/slots
func (h *SlotHandler) GetMySlots(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	slots, err := h.slotService.ListSlotsByOwner(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slots": slots,
		"total": len(slots),
	})
}

// GetPageSlots lists the slots shown on a page
// GET /api/pages/:id/slots
func (h *SlotHandler) GetPageSlots(c *gin.Context) {
	pageID, ok := pathUUID(c, "id", "page")
	if !ok {
		return
	}

	slots, err := h.slotService.ListSlotsByPage(c.Request.Context(), pageID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slots": slots,
		"total": len(slots),
	})
}
