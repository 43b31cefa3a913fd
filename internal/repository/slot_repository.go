package repository

import (
	"context"
	"time"

	"adslot-market/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateSlot creates a new slot
func (r *Repository) CreateSlot(ctx context.Context, slot *models.Slot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

// GetSlotByID retrieves a slot by ID
func (r *Repository) GetSlotByID(ctx context.Context, slotID uuid.UUID) (*models.Slot, error) {
	var slot models.Slot
	err := r.db.WithContext(ctx).Where("id = ?", slotID).First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// UpdateSlotTerms applies a partial update to a slot's editable columns
func (r *Repository) UpdateSlotTerms(ctx context.Context, slotID uuid.UUID, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ?", slotID).
		Updates(updates).Error
}

// ListSlotsByPage retrieves the slots of a page in display order
func (r *Repository) ListSlotsByPage(ctx context.Context, pageID uuid.UUID) ([]*models.Slot, error) {
	var slots []*models.Slot
	err := r.db.WithContext(ctx).
		Where("page_id = ?", pageID).
		Order("position ASC, created_at ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// ListSlotsByOwner retrieves all slots owned by a user
func (r *Repository) ListSlotsByOwner(ctx context.Context, userID uint) ([]*models.Slot, error) {
	var slots []*models.Slot
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC, created_at ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// DeleteAvailableSlot deletes a slot and its proposals, only while the slot
// is available. Returns false when the slot was not available.
func (r *Repository) DeleteAvailableSlot(ctx context.Context, slotID uuid.UUID) (bool, error) {
	var deleted bool
	err := r.Transaction(ctx, func(tx *Repository) error {
		ok, err := applied(tx.db.WithContext(ctx).
			Where("id = ? AND status = ?", slotID, models.SlotStatusAvailable).
			Delete(&models.Slot{}))
		if err != nil || !ok {
			return err
		}
		deleted = true
		return tx.db.WithContext(ctx).
			Where("slot_id = ?", slotID).
			Delete(&models.Proposal{}).Error
	})
	return deleted, err
}

// IncrementSlotProposals atomically bumps the proposal counter of a slot that
// is still available. Returns false when the slot left the available state.
func (r *Repository) IncrementSlotProposals(ctx context.Context, slotID uuid.UUID) (bool, error) {
	return applied(r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ? AND status = ?", slotID, models.SlotStatusAvailable).
		UpdateColumn("total_proposals", gorm.Expr("total_proposals + ?", 1)))
}

// OccupySlot transitions an available slot to occupied for the given
// proposal. It only matches while the slot is still available, so exactly one
// of several concurrent callers succeeds.
func (r *Repository) OccupySlot(
	ctx context.Context,
	slotID uuid.UUID,
	proposalID uuid.UUID,
	activeSince time.Time,
	expiresAt time.Time,
	revenue decimal.Decimal,
) (bool, error) {
	return applied(r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ? AND status = ?", slotID, models.SlotStatusAvailable).
		Updates(map[string]interface{}{
			"status":             models.SlotStatusOccupied,
			"active_proposal_id": proposalID,
			"active_since":       activeSince,
			"expires_at":         expiresAt,
			"total_revenue":      gorm.Expr("total_revenue + ?", revenue),
		}))
}

// MarkSlotPendingApproval flags a slot whose campaign creative was edited.
// It only matches when the slot has no active proposal or already points at
// proposalID.
func (r *Repository) MarkSlotPendingApproval(ctx context.Context, slotID, proposalID uuid.UUID) (bool, error) {
	return applied(r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ? AND (active_proposal_id IS NULL OR active_proposal_id = ?)", slotID, proposalID).
		Updates(map[string]interface{}{
			"status":             models.SlotStatusPendingApproval,
			"active_proposal_id": proposalID,
		}))
}

// FindExpiredSlots retrieves slots whose campaign window elapsed before now
func (r *Repository) FindExpiredSlots(ctx context.Context, now time.Time, limit int) ([]*models.Slot, error) {
	var slots []*models.Slot
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at < ?",
			[]models.SlotStatus{models.SlotStatusOccupied, models.SlotStatusPendingApproval}, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// ReleaseExpiredSlot resets a slot to available. It only matches while the
// slot is still in the observed status and still expired at now.
func (r *Repository) ReleaseExpiredSlot(
	ctx context.Context,
	slotID uuid.UUID,
	observed models.SlotStatus,
	now time.Time,
) (bool, error) {
	return applied(r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ? AND status = ? AND expires_at < ?", slotID, observed, now).
		Updates(map[string]interface{}{
			"status":             models.SlotStatusAvailable,
			"active_proposal_id": nil,
			"active_since":       nil,
			"expires_at":         nil,
		}))
}
