package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"adslot-market/internal/auth"
	"adslot-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondError writes the status and body for a service failure
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var se *services.ServiceError
	if !errors.As(err, &se) {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	switch se.Kind {
	case services.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": se.Message})
	case services.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": se.Message})
	case services.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": se.Message})
	case services.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": se.Message})
	case services.KindUpstream:
		logger.Warn("upstream failure", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": se.Message, "retryable": se.Retryable()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// pathUUID parses a uuid path parameter or answers 400
func pathUUID(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " id"})
		return uuid.Nil, false
	}
	return id, true
}

// requireUser returns the authenticated user or answers 401
func requireUser(c *gin.Context) (uint, bool) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return userID, true
}

// actorFrom builds the caller identity set by the auth middleware
func actorFrom(c *gin.Context) services.Actor {
	if userID, ok := auth.GetUserID(c); ok {
		return services.UserActor(userID)
	}
	if proposalID, ok := auth.GetProposalAccess(c); ok {
		return services.GuestActor(proposalID)
	}
	return services.Actor{}
}

// pagination reads limit and offset query parameters
func pagination(c *gin.Context) (int, int) {
	limit := 20
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	return limit, offset
}
