package services

import (
	"context"
	"errors"
	"fmt"

	"adslot-market/internal/models"
	"adslot-market/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UpdateCreative edits the creative of a running campaign. The slot owner or a
// guest holding a credential for this proposal may edit. The proposal moves
// to in_progress and the slot to pending_approval.
func (s *ProposalService) UpdateCreative(
	ctx context.Context,
	proposalID uuid.UUID,
	actor Actor,
	patch models.CreativePatch,
) (*models.Proposal, error) {
	proposal, slot, err := s.authorizedProposal(ctx, proposalID, actor, false)
	if err != nil {
		return nil, err
	}

	if !proposal.Status.IsLive() {
		return nil, conflictError("only accepted campaigns can be edited")
	}
	if patch.IsEmpty() {
		return nil, validationError("nothing to update")
	}

	merged, err := patch.Apply(proposal.Content.Creative)
	if errors.Is(err, models.ErrUnknownLayout) {
		return nil, validationError("%s", err.Error())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply creative patch: %w", err)
	}
	if err := models.ValidateCreative(merged); err != nil {
		return nil, validationError("%s", err.Error())
	}

	content := models.CreativePayload{Creative: merged}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		updated, err := tx.UpdateLiveProposalContent(ctx, proposalID, content)
		if err != nil {
			return fmt.Errorf("failed to update creative: %w", err)
		}
		if !updated {
			return conflictError("campaign is no longer running")
		}

		marked, err := tx.MarkSlotPendingApproval(ctx, slot.ID, proposalID)
		if err != nil {
			return fmt.Errorf("failed to update slot: %w", err)
		}
		if !marked {
			return conflictError("slot is running another campaign")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	proposal.Content = content
	proposal.Status = models.ProposalStatusInProgress

	s.logger.Info("creative updated",
		zap.String("proposal_id", proposalID.String()),
		zap.String("slot_id", slot.ID.String()),
		zap.String("layout", string(merged.Layout())),
	)

	return proposal, nil
}
