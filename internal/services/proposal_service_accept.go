package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adslot-market/internal/metrics"
	"adslot-market/internal/models"
	"adslot-market/internal/notify"
	"adslot-market/internal/payments"
	"adslot-market/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AcceptProposal occupies the proposal's slot for the slot's duration, issues
// a payment link and rejects every other pending proposal on the slot.
// Concurrent accepts on one slot resolve to exactly one success; the others
// get a Conflict.
func (s *ProposalService) AcceptProposal(ctx context.Context, proposalID uuid.UUID, userID uint) (*models.Proposal, error) {
	proposal, err := s.repo.GetProposalByID(ctx, proposalID)
	if err != nil {
		return nil, lookupError(err, "proposal")
	}

	slot, err := s.repo.GetSlotByID(ctx, proposal.SlotID)
	if err != nil {
		return nil, lookupError(err, "slot")
	}
	if slot.UserID != userID {
		return nil, forbiddenError("slot belongs to another user")
	}

	merchantAccount, connected, err := s.merchants.MerchantAccount(ctx, slot.PageID)
	if err != nil {
		return nil, fmt.Errorf("failed to check merchant account: %w", err)
	}
	if !connected {
		return nil, forbiddenError("connect a payment account before accepting proposals")
	}

	if proposal.Status != models.ProposalStatusPending {
		return nil, s.acceptConflict("proposal is %s", proposal.Status)
	}
	if slot.Status != models.SlotStatusAvailable {
		return nil, s.acceptConflict("slot is not available")
	}
	if err := s.checkNoLiveCampaign(ctx, slot, proposalID); err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.AddDate(0, 0, slot.DurationDays)

	link, err := s.issuePaymentLink(ctx, proposal, slot, merchantAccount)
	if err != nil {
		return nil, err
	}

	var (
		paymentURL    *string
		paymentExpiry *time.Time
	)
	if link != nil {
		paymentURL = stringPtr(link.URL)
		paymentExpiry = timePtr(link.ExpiresAt)
	}

	var superseded int64
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		occupied, err := tx.OccupySlot(ctx, slot.ID, proposal.ID, now, expiresAt, proposal.ProposedPrice)
		if err != nil {
			return fmt.Errorf("failed to occupy slot: %w", err)
		}
		if !occupied {
			return conflictError("slot is no longer available")
		}

		activated, err := tx.ActivateProposal(ctx, proposal.ID, now, paymentURL, paymentExpiry)
		if err != nil {
			return fmt.Errorf("failed to activate proposal: %w", err)
		}
		if !activated {
			return conflictError("proposal is no longer pending")
		}

		superseded, err = tx.RejectPendingSiblings(ctx, slot.ID, proposal.ID, models.RejectionReasonSuperseded, now)
		if err != nil {
			return fmt.Errorf("failed to reject other proposals: %w", err)
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = conflictError("slot already has a running campaign")
	}
	if err != nil {
		if KindOf(err) == KindConflict {
			s.metrics.AcceptConflicts.Inc()
			s.cancelLosingLink(ctx, proposal.ID, slot.ID, link)
		}
		return nil, err
	}

	proposal.Status = models.ProposalStatusActive
	proposal.RespondedAt = timePtr(now)
	proposal.PaymentLink = paymentURL
	proposal.PaymentLinkExpiry = paymentExpiry

	s.metrics.ProposalsAccepted.Inc()
	s.metrics.ProposalsRejected.WithLabelValues(metrics.ReasonSuperseded).Add(float64(superseded))
	s.logger.Info("proposal accepted",
		zap.String("proposal_id", proposal.ID.String()),
		zap.String("slot_id", slot.ID.String()),
		zap.Int64("superseded", superseded),
		zap.Time("expires_at", expiresAt),
	)

	s.notifyAccepted(ctx, proposal, slot, expiresAt)

	return proposal, nil
}

// checkNoLiveCampaign guards against a slot whose pointer still references a
// running campaign while its status says available
func (s *ProposalService) checkNoLiveCampaign(ctx context.Context, slot *models.Slot, proposalID uuid.UUID) error {
	if slot.ActiveProposalID == nil || *slot.ActiveProposalID == proposalID {
		return nil
	}

	active, err := s.repo.GetProposalByID(ctx, *slot.ActiveProposalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get active proposal: %w", err)
	}
	if active.Status.IsLive() {
		return s.acceptConflict("slot already has a running campaign")
	}
	return nil
}

// issuePaymentLink obtains the checkout link before anything is written, so
// a failure leaves no partial state. Free campaigns get no link.
func (s *ProposalService) issuePaymentLink(
	ctx context.Context,
	proposal *models.Proposal,
	slot *models.Slot,
	merchantAccount string,
) (*payments.PaymentLink, error) {
	if !proposal.ProposedPrice.IsPositive() {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
	defer cancel()

	start := time.Now()
	link, err := s.issuer.CreatePaymentLink(ctx, payments.PaymentLinkRequest{
		ProposalID:        proposal.ID,
		Amount:            proposal.ProposedPrice,
		SlotName:          slot.Name,
		DurationDays:      slot.DurationDays,
		MerchantAccountID: merchantAccount,
	})
	s.metrics.PaymentLinkDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.PaymentLinkFailures.Inc()
		s.logger.Warn("payment link request failed",
			zap.String("proposal_id", proposal.ID.String()),
			zap.Error(err),
		)
		return nil, upstreamError("payment link could not be created, try again", err)
	}
	return link, nil
}

// cancelLosingLink expires the checkout issued for an accept that lost the
// race. A link shared with the winning accept of the same proposal is kept.
func (s *ProposalService) cancelLosingLink(ctx context.Context, proposalID, slotID uuid.UUID, link *payments.PaymentLink) {
	if link == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.paymentTimeout)
	defer cancel()

	current, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		s.logger.Warn("failed to reload slot after accept conflict",
			zap.String("slot_id", slotID.String()),
			zap.Error(err),
		)
		return
	}
	if current.ActiveProposalID != nil && *current.ActiveProposalID == proposalID {
		return
	}

	if err := s.issuer.CancelPaymentLink(ctx, link); err != nil {
		s.logger.Warn("failed to cancel payment link of losing accept",
			zap.String("proposal_id", proposalID.String()),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("payment link of losing accept cancelled", zap.String("proposal_id", proposalID.String()))
}

func (s *ProposalService) acceptConflict(format string, args ...interface{}) error {
	s.metrics.AcceptConflicts.Inc()
	return conflictError(format, args...)
}

func (s *ProposalService) notifyAccepted(ctx context.Context, proposal *models.Proposal, slot *models.Slot, expiresAt time.Time) {
	recipient, err := proposerContact(ctx, s.repo, proposal)
	if err != nil {
		s.logger.Warn("failed to resolve proposer", zap.String("proposal_id", proposal.ID.String()), zap.Error(err))
		return
	}

	s.dispatcher.Dispatch(ctx, notify.Message{
		Kind: notify.KindProposalAccepted,
		To:   recipient.Email,
		Data: map[string]string{
			"recipient_name": recipient.Name,
			"slot_name":      slot.Name,
			"price":          proposal.ProposedPrice.StringFixed(2),
			"expires_at":     formatTime(expiresAt),
			"payment_link":   derefString(proposal.PaymentLink),
			"edit_link":      s.editLink(proposal.ID),
		},
	})
}

// editLink is where the advertiser updates the creative of a running campaign
func (s *ProposalService) editLink(proposalID uuid.UUID) string {
	return fmt.Sprintf("%s/proposals/%s/edit", s.publicURL, proposalID)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
