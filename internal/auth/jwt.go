package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// PurposeProposalAccess tags credentials that grant guest access to one proposal
const PurposeProposalAccess = "proposal_access"

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrWrongPurpose     = errors.New("token purpose mismatch")
	ErrProposalMismatch = errors.New("token does not grant access to this proposal")
)

// Claims represents the JWT claims of a signed-in user
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// ProposalAccessClaims represents the JWT claims of a guest proposal credential
type ProposalAccessClaims struct {
	ProposalID string `json:"proposal_id"`
	Purpose    string `json:"purpose"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates user and proposal access tokens
type JWTManager struct {
	secret   []byte
	userTTL  time.Duration
	guestTTL time.Duration
	now      func() time.Time
}

func NewJWTManager(secret string, guestTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:   []byte(secret),
		userTTL:  24 * time.Hour,
		guestTTL: guestTTL,
		now:      time.Now,
	}
}

// GenerateToken generates a new JWT token for a user
func (m *JWTManager) GenerateToken(userID uint) (string, error) {
	now := m.now()

	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.userTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return m.sign(claims)
}

// ValidateToken validates a user JWT token and returns the claims
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateProposalAccessToken issues a credential scoped to one proposal
func (m *JWTManager) GenerateProposalAccessToken(proposalID uuid.UUID) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.guestTTL)

	claims := &ProposalAccessClaims{
		ProposalID: proposalID.String(),
		Purpose:    PurposeProposalAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   proposalID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := m.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ParseProposalAccessToken validates signature, expiry and purpose and
// returns the proposal the credential grants access to
func (m *JWTManager) ParseProposalAccessToken(tokenString string) (uuid.UUID, error) {
	claims := &ProposalAccessClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return uuid.Nil, err
	}
	if claims.Purpose != PurposeProposalAccess {
		return uuid.Nil, ErrWrongPurpose
	}
	id, err := uuid.Parse(claims.ProposalID)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

// ValidateProposalAccessToken checks that the credential is valid for proposalID
func (m *JWTManager) ValidateProposalAccessToken(tokenString string, proposalID uuid.UUID) error {
	granted, err := m.ParseProposalAccessToken(tokenString)
	if err != nil {
		return err
	}
	if granted != proposalID {
		return ErrProposalMismatch
	}
	return nil
}

func (m *JWTManager) sign(claims jwt.Claims) (string, error) {
	if len(m.secret) == 0 {
		return "", fmt.Errorf("JWT secret not initialized")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (m *JWTManager) parse(tokenString string, claims jwt.Claims) error {
	if len(m.secret) == 0 {
		return fmt.Errorf("JWT secret not initialized")
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))

	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return ErrInvalidToken
	}

	return nil
}
