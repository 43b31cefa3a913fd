package services

import (
	"context"
	"fmt"
	"time"

	"adslot-market/internal/models"
	"adslot-market/internal/notify"
	"adslot-market/internal/repository"

	"go.uber.org/zap"
)

// SweepExpiredSlots returns slots whose campaign window elapsed to available
// and expires their campaign proposal. Each slot is reclaimed in its own
// transaction; a failing slot is logged and skipped. Slots already reclaimed
// are not touched again. Returns the number of slots reclaimed.
func (s *SlotService) SweepExpiredSlots(ctx context.Context) (int, error) {
	now := s.now()

	slots, err := s.repo.FindExpiredSlots(ctx, now, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired slots: %w", err)
	}

	reclaimed := 0
	for _, slot := range slots {
		released, err := s.reclaimSlot(ctx, slot, now)
		if err != nil {
			s.logger.Error("failed to reclaim expired slot",
				zap.String("slot_id", slot.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if !released {
			continue
		}

		reclaimed++
		s.metrics.SlotsReclaimed.Inc()
		s.logger.Info("slot reclaimed",
			zap.String("slot_id", slot.ID.String()),
			zap.String("previous_status", string(slot.Status)),
		)
		s.notifyCampaignExpired(ctx, slot)
	}

	return reclaimed, nil
}

func (s *SlotService) reclaimSlot(ctx context.Context, slot *models.Slot, now time.Time) (bool, error) {
	var released bool
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		ok, err := tx.ReleaseExpiredSlot(ctx, slot.ID, slot.Status, now)
		if err != nil {
			return fmt.Errorf("failed to release slot: %w", err)
		}
		if !ok {
			// Changed since it was selected
			return nil
		}
		released = true

		if slot.ActiveProposalID == nil {
			return nil
		}
		if _, err := tx.ExpireLiveProposal(ctx, *slot.ActiveProposalID); err != nil {
			return fmt.Errorf("failed to expire proposal: %w", err)
		}
		return nil
	})
	return released, err
}

func (s *SlotService) notifyCampaignExpired(ctx context.Context, slot *models.Slot) {
	owner, err := s.repo.GetUserByID(ctx, slot.UserID)
	if err != nil {
		s.logger.Warn("failed to resolve slot owner",
			zap.String("slot_id", slot.ID.String()),
			zap.Error(err),
		)
		return
	}

	expiredAt := ""
	if slot.ExpiresAt != nil {
		expiredAt = formatTime(*slot.ExpiresAt)
	}

	s.dispatcher.Dispatch(ctx, notify.Message{
		Kind: notify.KindCampaignExpired,
		To:   owner.Email,
		Data: map[string]string{
			"slot_name":  slot.Name,
			"expires_at": expiredAt,
		},
	})
}
