package handlers

import (
	"context"
	"net/http"

	"adslot-market/internal/auth"
	"adslot-market/internal/models"
	"adslot-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProposalHandler struct {
	proposalService *services.ProposalService
	logger          *zap.Logger
}

func NewProposalHandler(proposalService *services.ProposalService, logger *zap.Logger) *ProposalHandler {
	return &ProposalHandler{
		proposalService: proposalService,
		logger:          logger,
	}
}

// CreateProposal submits a proposal as a company user or as a guest
// POST /api/slots/:id/proposals
func (h *ProposalHandler) CreateProposal(c *gin.Context) {
	slotID, ok := pathUUID(c, "id", "slot")
	if !ok {
		return
	}

	var req models.CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Zero for guests
	userID, _ := auth.GetUserID(c)

	proposal, err := h.proposalService.CreateProposal(c.Request.Context(), slotID, userID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, proposal)
}

// GetSlotProposals lists every proposal of one of the caller's slots
// GET /api/slots/:id/proposals
func (h *ProposalHandler) GetSlotProposals(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	slotID, ok := pathUUID(c, "id", "slot")
	if !ok {
		return
	}

	proposals, err := h.proposalService.ListProposalsBySlot(c.Request.Context(), slotID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"proposals": proposals,
		"total":     len(proposals),
	})
}

// GetProposal returns a proposal to its owner, proposer or guest
// GET /api/proposals/:id
func (h *ProposalHandler) GetProposal(c *gin.Context) {
	proposalID, ok := pathUUID(c, "id", "proposal")
	if !ok {
		return
	}

	proposal, err := h.proposalService.GetProposal(c.Request.Context(), proposalID, actorFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// GetMyProposals lists proposals submitted by the caller's company
// GET /api/proposals
func (h *ProposalHandler) GetMyProposals(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	proposals, err := h.proposalService.ListProposalsByCompany(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"proposals": proposals,
		"total":     len(proposals),
	})
}

// GetGuestProposals lists the proposals sharing the guest credential's email
// GET /api/guest/proposals
func (h *ProposalHandler) GetGuestProposals(c *gin.Context) {
	limit, offset := pagination(c)
	proposals, err := h.proposalService.ListProposalsByGuestEmail(c.Request.Context(), actorFrom(c), limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"proposals": proposals,
		"total":     len(proposals),
	})
}

// AcceptProposal turns a pending proposal into the slot's campaign
// POST /api/proposals/:id/accept
func (h *ProposalHandler) AcceptProposal(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	proposalID, ok := pathUUID(c, "id", "proposal")
	if !ok {
		return
	}

	proposal, err := h.proposalService.AcceptProposal(c.Request.Context(), proposalID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// RejectProposal declines a pending proposal
// POST /api/proposals/:id/reject
func (h *ProposalHandler) RejectProposal(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	proposalID, ok := pathUUID(c, "id", "proposal")
	if !ok {
		return
	}

	// The body is optional
	var req models.RejectProposalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	proposal, err := h.proposalService.RejectProposal(c.Request.Context(), proposalID, userID, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// UpdateCreative edits the creative of a running campaign
// PATCH /api/proposals/:id/creative
func (h *ProposalHandler) UpdateCreative(c *gin.Context) {
	proposalID, ok := pathUUID(c, "id", "proposal")
	if !ok {
		return
	}

	var patch models.CreativePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, err := h.proposalService.UpdateCreative(c.Request.Context(), proposalID, actorFrom(c), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// GetAnalytics reports tracking counters of a proposal
// GET /api/proposals/:id/analytics
func (h *ProposalHandler) GetAnalytics(c *gin.Context) {
	proposalID, ok := pathUUID(c, "id", "proposal")
	if !ok {
		return
	}

	analytics, err := h.proposalService.GetProposalAnalytics(c.Request.Context(), proposalID, actorFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// TrackImpression counts a rendering of a creative. Always 204.
// POST /api/track/:id/impression
func (h *ProposalHandler) TrackImpression(c *gin.Context) {
	h.track(c, "impression", h.proposalService.TrackImpression)
}

// TrackClick counts a click on a creative. Always 204.
// POST /api/track/:id/click
func (h *ProposalHandler) TrackClick(c *gin.Context) {
	h.track(c, "click", h.proposalService.TrackClick)
}

func (h *ProposalHandler) track(
	c *gin.Context,
	event string,
	record func(context.Context, uuid.UUID) error,
) {
	proposalID, err := uuid.Parse(c.Param("id"))
	if err == nil {
		err = record(c.Request.Context(), proposalID)
	}
	if err != nil {
		h.logger.Debug("tracking event dropped",
			zap.String("event", event),
			zap.String("proposal_id", c.Param("id")),
			zap.Error(err),
		)
	}
	c.Status(http.StatusNoContent)
}
