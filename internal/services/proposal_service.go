package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"adslot-market/internal/metrics"
	"adslot-market/internal/models"
	"adslot-market/internal/notify"
	"adslot-market/internal/payments"
	"adslot-market/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxListLimit = 100

type ProposalService struct {
	repo           *repository.Repository
	merchants      MerchantAccounts
	issuer         payments.Issuer
	dispatcher     notify.Dispatcher
	metrics        *metrics.Metrics
	logger         *zap.Logger
	publicURL      string
	paymentTimeout time.Duration
	now            func() time.Time
}

func NewProposalService(
	repo *repository.Repository,
	merchants MerchantAccounts,
	issuer payments.Issuer,
	dispatcher notify.Dispatcher,
	m *metrics.Metrics,
	logger *zap.Logger,
	publicURL string,
	paymentTimeout time.Duration,
) *ProposalService {
	return &ProposalService{
		repo:           repo,
		merchants:      merchants,
		issuer:         issuer,
		dispatcher:     dispatcher,
		metrics:        m,
		logger:         logger.Named("proposals"),
		publicURL:      strings.TrimRight(publicURL, "/"),
		paymentTimeout: paymentTimeout,
		now:            utcNow,
	}
}

// CreateProposal submits a priced bid against an available slot. userID is
// zero for guests, who must then supply a name and email.
func (s *ProposalService) CreateProposal(
	ctx context.Context,
	slotID uuid.UUID,
	userID uint,
	req *models.CreateProposalRequest,
) (*models.Proposal, error) {
	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, lookupError(err, "slot")
	}
	if slot.Status != models.SlotStatusAvailable {
		return nil, forbiddenError("slot is not accepting proposals")
	}

	if req.ProposedPrice.IsNegative() {
		return nil, validationError("proposed price must not be negative")
	}
	if !models.IsStorablePrice(req.ProposedPrice) {
		return nil, validationError("proposed price must have at most 2 decimal places and not exceed %s",
			models.MaxPrice.StringFixed(2))
	}
	if !slot.AcceptsPrice(req.ProposedPrice) {
		return nil, validationError("proposed price must be between %s and %s",
			slot.PriceMin.StringFixed(2), slot.PriceMax.StringFixed(2))
	}

	if err := models.ValidateCreative(req.Content.Creative); err != nil {
		return nil, validationError("%s", err.Error())
	}

	now := s.now()
	proposal := &models.Proposal{
		ID:            uuid.New(),
		SlotID:        slotID,
		ProposedPrice: req.ProposedPrice,
		Content:       req.Content,
		Status:        models.ProposalStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	recipient, err := s.resolveProposer(ctx, proposal, userID, req)
	if err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// Locks the slot row, so an accept cannot commit between this check
		// and the insert
		accepting, err := tx.IncrementSlotProposals(ctx, slotID)
		if err != nil {
			return fmt.Errorf("failed to update slot counters: %w", err)
		}
		if !accepting {
			return forbiddenError("slot is not accepting proposals")
		}
		if err := tx.CreateProposal(ctx, proposal); err != nil {
			return fmt.Errorf("failed to create proposal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ProposalsCreated.Inc()
	s.logger.Info("proposal created",
		zap.String("proposal_id", proposal.ID.String()),
		zap.String("slot_id", slotID.String()),
		zap.Bool("guest", proposal.IsGuest()),
	)

	s.dispatcher.Dispatch(ctx, notify.Message{
		Kind: notify.KindProposalReceived,
		To:   recipient.Email,
		Data: map[string]string{
			"recipient_name": recipient.Name,
			"slot_name":      slot.Name,
			"price":          proposal.ProposedPrice.StringFixed(2),
		},
	})

	return proposal, nil
}

// resolveProposer fills the identity of a new proposal. Exactly one of the
// company and guest paths applies.
func (s *ProposalService) resolveProposer(
	ctx context.Context,
	proposal *models.Proposal,
	userID uint,
	req *models.CreateProposalRequest,
) (contact, error) {
	guestName := strings.TrimSpace(req.GuestName)
	guestEmail := strings.TrimSpace(req.GuestEmail)

	if userID != 0 {
		if guestName != "" || guestEmail != "" {
			return contact{}, validationError("guest details cannot be combined with a company account")
		}
		company, err := s.repo.GetCompanyByUserID(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return contact{}, forbiddenError("a company profile is required to submit proposals")
		}
		if err != nil {
			return contact{}, fmt.Errorf("failed to get company: %w", err)
		}
		proposal.CompanyID = &company.ID
		return contact{Email: company.Email, Name: company.Name}, nil
	}

	if guestName == "" || guestEmail == "" {
		return contact{}, validationError("guest name and email are required")
	}
	if err := validate.Var(guestEmail, "email"); err != nil {
		return contact{}, validationError("invalid guest email")
	}
	proposal.GuestName = stringPtr(guestName)
	proposal.GuestEmail = stringPtr(strings.ToLower(guestEmail))
	return contact{Email: *proposal.GuestEmail, Name: guestName}, nil
}

// GetProposal retrieves a proposal visible to the actor
func (s *ProposalService) GetProposal(ctx context.Context, proposalID uuid.UUID, actor Actor) (*models.Proposal, error) {
	proposal, _, err := s.authorizedProposal(ctx, proposalID, actor, true)
	return proposal, err
}

// ListProposalsBySlot retrieves every proposal of a slot for its owner
func (s *ProposalService) ListProposalsBySlot(ctx context.Context, slotID uuid.UUID, userID uint) ([]*models.Proposal, error) {
	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, lookupError(err, "slot")
	}
	if slot.UserID != userID {
		return nil, forbiddenError("slot belongs to another user")
	}

	proposals, err := s.repo.ListProposalsBySlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	return proposals, nil
}

// ListProposalsByCompany retrieves the proposals submitted by the user's company
func (s *ProposalService) ListProposalsByCompany(ctx context.Context, userID uint, limit, offset int) ([]*models.Proposal, error) {
	company, err := s.repo.GetCompanyByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, forbiddenError("a company profile is required")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	proposals, err := s.repo.ListProposalsByCompany(ctx, company.ID, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	return proposals, nil
}

// ListProposalsByGuestEmail retrieves every guest proposal sharing the email
// of the proposal the guest credential was issued for
func (s *ProposalService) ListProposalsByGuestEmail(ctx context.Context, actor Actor, limit, offset int) ([]*models.Proposal, error) {
	if actor.ProposalAccess == uuid.Nil {
		return nil, forbiddenError("guest access credential required")
	}

	proposal, err := s.repo.GetProposalByID(ctx, actor.ProposalAccess)
	if err != nil {
		return nil, lookupError(err, "proposal")
	}
	if !proposal.IsGuest() || proposal.GuestEmail == nil {
		return nil, forbiddenError("proposal was not submitted by a guest")
	}

	proposals, err := s.repo.ListProposalsByGuestEmail(ctx, *proposal.GuestEmail, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	return proposals, nil
}

// GetProposalAnalytics reports impressions, clicks and click-through rate
func (s *ProposalService) GetProposalAnalytics(ctx context.Context, proposalID uuid.UUID, actor Actor) (*models.ProposalAnalytics, error) {
	proposal, _, err := s.authorizedProposal(ctx, proposalID, actor, true)
	if err != nil {
		return nil, err
	}

	return &models.ProposalAnalytics{
		ProposalID:  proposal.ID,
		Impressions: proposal.Impressions,
		Clicks:      proposal.Clicks,
		CTR:         clickThroughRate(proposal.Impressions, proposal.Clicks),
	}, nil
}

// TrackImpression counts one rendering of a proposal's creative
func (s *ProposalService) TrackImpression(ctx context.Context, proposalID uuid.UUID) error {
	return s.track(ctx, proposalID, metrics.EventImpression, s.repo.IncrementImpressions)
}

// TrackClick counts one click on a proposal's creative
func (s *ProposalService) TrackClick(ctx context.Context, proposalID uuid.UUID) error {
	return s.track(ctx, proposalID, metrics.EventClick, s.repo.IncrementClicks)
}

func (s *ProposalService) track(
	ctx context.Context,
	proposalID uuid.UUID,
	event string,
	increment func(context.Context, uuid.UUID) (bool, error),
) error {
	found, err := increment(ctx, proposalID)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", event, err)
	}
	if !found {
		return notFoundError("proposal not found")
	}
	s.metrics.TrackingEvents.WithLabelValues(event).Inc()
	return nil
}

// authorizedProposal loads a proposal and its slot and checks the actor may
// see it: the slot owner, a guest credential for this proposal, and when
// includeProposer is set, the company user who submitted it
func (s *ProposalService) authorizedProposal(
	ctx context.Context,
	proposalID uuid.UUID,
	actor Actor,
	includeProposer bool,
) (*models.Proposal, *models.Slot, error) {
	proposal, err := s.repo.GetProposalByID(ctx, proposalID)
	if err != nil {
		return nil, nil, lookupError(err, "proposal")
	}
	slot, err := s.repo.GetSlotByID(ctx, proposal.SlotID)
	if err != nil {
		return nil, nil, lookupError(err, "slot")
	}

	if actor.grantsGuestAccess(proposalID) {
		return proposal, slot, nil
	}
	if actor.isUser() {
		if slot.UserID == actor.UserID {
			return proposal, slot, nil
		}
		if includeProposer && proposal.CompanyID != nil {
			company, err := s.repo.GetCompanyByUserID(ctx, actor.UserID)
			if err == nil && company.ID == *proposal.CompanyID {
				return proposal, slot, nil
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, fmt.Errorf("failed to get company: %w", err)
			}
		}
	}

	return nil, nil, forbiddenError("not allowed to access this proposal")
}

// clickThroughRate formats clicks/impressions as a percentage with two decimals
func clickThroughRate(impressions, clicks int64) string {
	if impressions == 0 {
		return "0.00"
	}
	return decimal.NewFromInt(clicks).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(impressions)).
		StringFixed(2)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
