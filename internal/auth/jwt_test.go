package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(now time.Time) *JWTManager {
	m := NewJWTManager("test-secret", time.Hour)
	m.now = func() time.Time { return now }
	return m
}

func TestUserTokenRoundTrip(t *testing.T) {
	m := newTestManager(time.Now())

	token, err := m.GenerateToken(42)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
}

func TestProposalAccessTokenIsScopedToProposal(t *testing.T) {
	m := newTestManager(time.Now())
	proposalA := uuid.New()
	proposalB := uuid.New()

	token, expiresAt, err := m.GenerateProposalAccessToken(proposalA)
	require.NoError(t, err)
	assert.WithinDuration(t, m.now().Add(time.Hour), expiresAt, time.Second)

	assert.NoError(t, m.ValidateProposalAccessToken(token, proposalA))
	assert.True(t, errors.Is(m.ValidateProposalAccessToken(token, proposalB), ErrProposalMismatch))
}

func TestProposalAccessTokenExpires(t *testing.T) {
	issuedAt := time.Now()
	m := newTestManager(issuedAt)
	proposalID := uuid.New()

	token, _, err := m.GenerateProposalAccessToken(proposalID)
	require.NoError(t, err)

	m.now = func() time.Time { return issuedAt.Add(61 * time.Minute) }
	assert.Error(t, m.ValidateProposalAccessToken(token, proposalID))
}

func TestUserTokenIsNotAProposalCredential(t *testing.T) {
	m := newTestManager(time.Now())

	token, err := m.GenerateToken(7)
	require.NoError(t, err)

	_, err = m.ParseProposalAccessToken(token)
	assert.True(t, errors.Is(err, ErrWrongPurpose))
}

func TestProposalCredentialIsNotAUserToken(t *testing.T) {
	m := newTestManager(time.Now())

	token, _, err := m.GenerateProposalAccessToken(uuid.New())
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenSignedWithOtherSecretIsRejected(t *testing.T) {
	other := NewJWTManager("other-secret", time.Hour)
	token, err := other.GenerateToken(1)
	require.NoError(t, err)

	_, err = newTestManager(time.Now()).ValidateToken(token)
	assert.Error(t, err)
}

func TestActorMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewJWTManager("test-secret", time.Hour)
	proposalID := uuid.New()

	router := gin.New()
	router.GET("/whoami", ActorMiddleware(m), func(c *gin.Context) {
		if id, ok := GetUserID(c); ok {
			c.JSON(http.StatusOK, gin.H{"user_id": id})
			return
		}
		id, _ := GetProposalAccess(c)
		c.JSON(http.StatusOK, gin.H{"proposal_id": id.String()})
	})

	userToken, err := m.GenerateToken(9)
	require.NoError(t, err)
	guestToken, _, err := m.GenerateProposalAccessToken(proposalID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"user", "Bearer " + userToken, http.StatusOK, `"user_id":9`},
		{"guest", "Bearer " + guestToken, http.StatusOK, proposalID.String()},
		{"missing", "", http.StatusUnauthorized, "Authorization header required"},
		{"malformed", "Token abc", http.StatusUnauthorized, "Expected: Bearer"},
		{"garbage", "Bearer abc", http.StatusUnauthorized, "Invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestAuthMiddlewareRejectsGuestCredential(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewJWTManager("test-secret", time.Hour)

	router := gin.New()
	router.GET("/me", AuthMiddleware(m), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	guestToken, _, err := m.GenerateProposalAccessToken(uuid.New())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+guestToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewJWTManager("test-secret", time.Hour)

	router := gin.New()
	router.POST("/proposals", OptionalAuthMiddleware(m), func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})

	userToken, err := m.GenerateToken(4)
	require.NoError(t, err)

	anonymous := httptest.NewRecorder()
	router.ServeHTTP(anonymous, httptest.NewRequest(http.MethodPost, "/proposals", nil))
	assert.Equal(t, http.StatusOK, anonymous.Code)
	assert.Contains(t, anonymous.Body.String(), `"user_id":0`)

	req := httptest.NewRequest(http.MethodPost, "/proposals", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	signedIn := httptest.NewRecorder()
	router.ServeHTTP(signedIn, req)
	assert.Equal(t, http.StatusOK, signedIn.Code)
	assert.Contains(t, signedIn.Body.String(), `"user_id":4`)

	req = httptest.NewRequest(http.MethodPost, "/proposals", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rejected := httptest.NewRecorder()
	router.ServeHTTP(rejected, req)
	assert.Equal(t, http.StatusUnauthorized, rejected.Code)
}
