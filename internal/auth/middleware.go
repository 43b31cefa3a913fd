package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	userIDKey         = "user_id"
	proposalAccessKey = "proposal_access_id"
)

// AuthMiddleware validates user JWT tokens and protects routes
func AuthMiddleware(m *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}

		// Validate token
		claims, err := m.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		// Set user information in context
		c.Set(userIDKey, claims.UserID)

		c.Next()
	}
}

// OptionalAuthMiddleware identifies the user when a token is present and lets
// anonymous requests through. A malformed or invalid token is still rejected.
func OptionalAuthMiddleware(m *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		AuthMiddleware(m)(c)
	}
}

// ActorMiddleware accepts either a user token or a guest proposal access
// credential. Handlers decide what each actor may do.
func ActorMiddleware(m *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}

		if claims, err := m.ValidateToken(tokenString); err == nil {
			c.Set(userIDKey, claims.UserID)
			c.Next()
			return
		}

		proposalID, err := m.ParseProposalAccessToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(proposalAccessKey, proposalID)
		c.Next()
	}
}

// bearerToken extracts the token from "Bearer <token>" or aborts the request
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")

	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authorization header required",
		})
		c.Abort()
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid authorization header format. Expected: Bearer <token>",
		})
		c.Abort()
		return "", false
	}

	return parts[1], true
}

// GetUserID retrieves the user ID from the context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}

	id, ok := userID.(uint)
	return id, ok
}

// GetProposalAccess retrieves the proposal a guest credential grants access to
func GetProposalAccess(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(proposalAccessKey)
	if !exists {
		return uuid.Nil, false
	}

	id, ok := value.(uuid.UUID)
	return id, ok
}
