package services

import (
	"context"
	"fmt"
	"strings"

	"adslot-market/internal/metrics"
	"adslot-market/internal/models"
	"adslot-market/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RejectProposal declines a pending proposal on one of the user's slots
func (s *ProposalService) RejectProposal(ctx context.Context, proposalID uuid.UUID, userID uint, reason string) (*models.Proposal, error) {
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

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = models.RejectionReasonDefault
	}

	now := s.now()
	rejected, err := s.repo.RejectProposal(ctx, proposalID, reason, now)
	if err != nil {
		return nil, fmt.Errorf("failed to reject proposal: %w", err)
	}
	if !rejected {
		return nil, conflictError("only pending proposals can be rejected")
	}

	proposal.Status = models.ProposalStatusRejected
	proposal.RejectionReason = stringPtr(reason)
	proposal.RespondedAt = timePtr(now)

	s.metrics.ProposalsRejected.WithLabelValues(metrics.ReasonOwner).Inc()
	s.logger.Info("proposal rejected",
		zap.String("proposal_id", proposalID.String()),
		zap.String("slot_id", slot.ID.String()),
	)

	recipient, err := proposerContact(ctx, s.repo, proposal)
	if err != nil {
		s.logger.Warn("failed to resolve proposer", zap.String("proposal_id", proposalID.String()), zap.Error(err))
		return proposal, nil
	}
	s.dispatcher.Dispatch(ctx, notify.Message{
		Kind: notify.KindProposalRejected,
		To:   recipient.Email,
		Data: map[string]string{
			"recipient_name": recipient.Name,
			"slot_name":      slot.Name,
			"reason":         reason,
		},
	})

	return proposal, nil
}
