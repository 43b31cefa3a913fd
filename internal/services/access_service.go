package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"adslot-market/internal/models"
	"adslot-market/internal/notify"
	"adslot-market/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	accessCodeDigits = 6
	// wrong guesses allowed per issued code before it is discarded
	maxAccessCodeAttempts = 5
)

var accessCodeSpace = big.NewInt(1_000_000)

// TokenIssuer mints proposal access credentials
type TokenIssuer interface {
	GenerateProposalAccessToken(proposalID uuid.UUID) (string, time.Time, error)
}

// Throttle limits how often an action may run per key
type Throttle interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// AccessService lets guests prove control of the email on a proposal and
// exchange a short-lived code for a proposal access credential
type AccessService struct {
	repo       *repository.Repository
	tokens     TokenIssuer
	throttle   Throttle
	dispatcher notify.Dispatcher
	logger     *zap.Logger
	codeTTL    time.Duration
	cooldown   time.Duration
	now        func() time.Time
	newCode    func() (string, error)
}

// NewAccessService creates the guest access gateway. throttle may be nil to
// disable resend limiting.
func NewAccessService(
	repo *repository.Repository,
	tokens TokenIssuer,
	throttle Throttle,
	dispatcher notify.Dispatcher,
	logger *zap.Logger,
	codeTTL time.Duration,
	cooldown time.Duration,
) *AccessService {
	return &AccessService{
		repo:       repo,
		tokens:     tokens,
		throttle:   throttle,
		dispatcher: dispatcher,
		logger:     logger.Named("access"),
		codeTTL:    codeTTL,
		cooldown:   cooldown,
		now:        utcNow,
		newCode:    generateAccessCode,
	}
}

// SendAccessCode stores a fresh code on the proposal and emails it to the
// proposer. A new code replaces the previous one.
func (s *AccessService) SendAccessCode(ctx context.Context, proposalID uuid.UUID) error {
	proposal, err := s.repo.GetProposalByID(ctx, proposalID)
	if err != nil {
		return lookupError(err, "proposal")
	}

	if !s.allowResend(ctx, proposalID) {
		return validationError("an access code was sent recently, try again later")
	}

	recipient, err := proposerContact(ctx, s.repo, proposal)
	if err != nil {
		return err
	}
	if recipient.Email == "" {
		return validationError("proposal has no contact email")
	}

	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("failed to generate access code: %w", err)
	}

	expiresAt := s.now().Add(s.codeTTL)
	if _, err := s.repo.SetAccessCode(ctx, proposalID, code, expiresAt); err != nil {
		return fmt.Errorf("failed to store access code: %w", err)
	}

	s.logger.Info("access code issued", zap.String("proposal_id", proposalID.String()))

	s.dispatcher.Dispatch(ctx, notify.Message{
		Kind: notify.KindAccessCode,
		To:   recipient.Email,
		Data: map[string]string{
			"code":       code,
			"expires_in": humanDuration(s.codeTTL),
		},
	})

	return nil
}

// VerifyAccessCode exchanges a valid code for a proposal access credential.
// Unknown proposals, missing, expired and wrong codes are indistinguishable
// to the caller.
func (s *AccessService) VerifyAccessCode(ctx context.Context, proposalID uuid.UUID, code string) (*models.AccessTokenResponse, error) {
	invalid := validationError("invalid or expired access code")

	proposal, err := s.repo.GetProposalByID(ctx, proposalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}

	if proposal.AccessCode == nil || proposal.AccessCodeExpiresAt == nil {
		return nil, invalid
	}

	reserved, err := s.repo.ReserveAccessCodeAttempt(ctx, proposalID, maxAccessCodeAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to record access code attempt: %w", err)
	}
	if !reserved {
		s.discardAccessCode(ctx, proposalID)
		return nil, invalid
	}

	if s.now().After(*proposal.AccessCodeExpiresAt) {
		return nil, invalid
	}
	if subtle.ConstantTimeCompare([]byte(*proposal.AccessCode), []byte(code)) != 1 {
		if proposal.AccessCodeAttempts+1 >= maxAccessCodeAttempts {
			s.discardAccessCode(ctx, proposalID)
		}
		return nil, invalid
	}

	if err := s.repo.ResetAccessCodeAttempts(ctx, proposalID); err != nil {
		return nil, fmt.Errorf("failed to reset access code attempts: %w", err)
	}

	token, expiresAt, err := s.tokens.GenerateProposalAccessToken(proposalID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	s.logger.Info("access code verified", zap.String("proposal_id", proposalID.String()))

	return &models.AccessTokenResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// discardAccessCode drops a code whose attempt budget is spent. The guest
// has to request a new one.
func (s *AccessService) discardAccessCode(ctx context.Context, proposalID uuid.UUID) {
	if err := s.repo.ClearAccessCode(ctx, proposalID); err != nil {
		s.logger.Error("failed to discard access code",
			zap.String("proposal_id", proposalID.String()),
			zap.Error(err),
		)
		return
	}
	s.logger.Warn("access code discarded after too many attempts",
		zap.String("proposal_id", proposalID.String()),
	)
}

// allowResend applies the per-proposal cooldown. Throttle failures let the
// request through.
func (s *AccessService) allowResend(ctx context.Context, proposalID uuid.UUID) bool {
	if s.throttle == nil || s.cooldown <= 0 {
		return true
	}

	allowed, err := s.throttle.Allow(ctx, "access-code:"+proposalID.String(), s.cooldown)
	if err != nil {
		s.logger.Warn("access code throttle unavailable",
			zap.String("proposal_id", proposalID.String()),
			zap.Error(err),
		)
		return true
	}
	return allowed
}

// generateAccessCode returns a uniformly random zero-padded 6 digit code
func generateAccessCode() (string, error) {
	n, err := rand.Int(rand.Reader, accessCodeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", accessCodeDigits, n.Int64()), nil
}

func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 && d >= time.Hour {
		return pluralize(int(d/time.Hour), "hour")
	}
	if d%time.Minute == 0 && d >= time.Minute {
		return pluralize(int(d/time.Minute), "minute")
	}
	return d.String()
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
