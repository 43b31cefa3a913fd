package handlers

import (
	"adslot-market/internal/auth"

	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Slots     *SlotHandler
	Proposals *ProposalHandler
	Access    *AccessHandler
	Users     *UserHandler
}

// RegisterRoutes mounts the slot marketplace API on router
func RegisterRoutes(router gin.IRouter, h Handlers, jwt *auth.JWTManager) {
	requireUser := auth.AuthMiddleware(jwt)
	optionalUser := auth.OptionalAuthMiddleware(jwt)
	actor := auth.ActorMiddleware(jwt)

	api := router.Group("/api")

	// Public routes
	api.GET("/slots/:id", h.Slots.GetSlot)
	api.GET("/pages/:id/slots", h.Slots.GetPageSlots)
	api.POST("/slots/:id/proposals", optionalUser, h.Proposals.CreateProposal)
	api.POST("/proposals/:id/access-code", h.Access.SendAccessCode)
	api.POST("/proposals/:id/access-code/verify", h.Access.VerifyAccessCode)

	// Tracking beacons
	api.POST("/track/:id/impression", h.Proposals.TrackImpression)
	api.POST("/track/:id/click", h.Proposals.TrackClick)

	// Owner and company routes
	owner := api.Group("")
	owner.Use(requireUser)
	{
		owner.GET("/slots", h.Slots.GetMySlots)
		owner.POST("/slots", h.Slots.CreateSlot)
		owner.PUT("/slots/:id", h.Slots.UpdateSlot)
		owner.DELETE("/slots/:id", h.Slots.DeleteSlot)
		owner.GET("/slots/:id/proposals", h.Proposals.GetSlotProposals)
		owner.GET("/proposals", h.Proposals.GetMyProposals)
		owner.POST("/proposals/:id/accept", h.Proposals.AcceptProposal)
		owner.POST("/proposals/:id/reject", h.Proposals.RejectProposal)

		owner.GET("/me", h.Users.GetProfile)
		owner.PUT("/me/nickname", h.Users.UpdateNickname)
		owner.PUT("/me/company", h.Users.SaveCompany)
	}

	// Routes open to users and guest credential holders
	shared := api.Group("")
	shared.Use(actor)
	{
		shared.GET("/proposals/:id", h.Proposals.GetProposal)
		shared.GET("/proposals/:id/analytics", h.Proposals.GetAnalytics)
		shared.PATCH("/proposals/:id/creative", h.Proposals.UpdateCreative)
		shared.GET("/guest/proposals", h.Proposals.GetGuestProposals)
	}
}
