package repository

import (
	"context"
	"time"

	"adslot-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateProposal creates a new proposal
func (r *Repository) CreateProposal(ctx context.Context, proposal *models.Proposal) error {
	return r.db.WithContext(ctx).Create(proposal).Error
}

// GetProposalByID retrieves a proposal by ID
func (r *Repository) GetProposalByID(ctx context.Context, proposalID uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.WithContext(ctx).Where("id = ?", proposalID).First(&proposal).Error
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// ListProposalsBySlot retrieves all proposals submitted against a slot
func (r *Repository) ListProposalsBySlot(ctx context.Context, slotID uuid.UUID) ([]*models.Proposal, error) {
	var proposals []*models.Proposal
	err := r.db.WithContext(ctx).
		Where("slot_id = ?", slotID).
		Order("created_at DESC").
		Find(&proposals).Error
	if err != nil {
		return nil, err
	}
	return proposals, nil
}

// ListProposalsByCompany retrieves proposals submitted by a company
func (r *Repository) ListProposalsByCompany(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Proposal, error) {
	var proposals []*models.Proposal
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&proposals).Error
	if err != nil {
		return nil, err
	}
	return proposals, nil
}

// ListProposalsByGuestEmail retrieves proposals submitted under a guest email
func (r *Repository) ListProposalsByGuestEmail(ctx context.Context, email string, limit, offset int) ([]*models.Proposal, error) {
	var proposals []*models.Proposal
	err := r.db.WithContext(ctx).
		Where("company_id IS NULL AND guest_email = ?", email).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&proposals).Error
	if err != nil {
		return nil, err
	}
	return proposals, nil
}

// ActivateProposal transitions a pending proposal to active. The payment
// link is nil for free campaigns.
func (r *Repository) ActivateProposal(
	ctx context.Context,
	proposalID uuid.UUID,
	respondedAt time.Time,
	paymentLink *string,
	paymentLinkExpiry *time.Time,
) (bool, error) {
	return applied(r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ? AND status = ?", proposalID, models.ProposalStatusPending).
		Updates(map[string]interface{}{
			"status":              models.ProposalStatusActive,
			"responded_at":        respondedAt,
			"payment_link":        paymentLink,
			"payment_link_expiry": paymentLinkExpiry,
		}))
}

// RejectPendingSiblings rejects every other pending proposal of a slot and
// returns how many were rejected
func (r *Repository) RejectPendingSiblings(
	ctx context.Context,
	slotID uuid.UUID,
	acceptedID uuid.UUID,
	reason string,
	respondedAt time.Time,
) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("slot_id = ? AND id <> ? AND status = ?", slotID, acceptedID, models.ProposalStatusPending).
		Updates(map[string]interface{}{
			"status":           models.ProposalStatusRejected,
			"rejection_reason": reason,
			"responded_at":     respondedAt,
		})
	return result.RowsAffected, result.Error
}

// RejectProposal transitions a pending proposal to rejected
func (r *Repository) RejectProposal(ctx context.Context, proposalID uuid.UUID, reason string, respondedAt time.Time) (bool, error) {
	return applied(r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ? AND status = ?", proposalID, models.ProposalStatusPending).
		Updates(map[string]interface{}{
			"status":           models.ProposalStatusRejected,
			"rejection_reason": reason,
			"responded_at":     respondedAt,
		}))
}

// UpdateLiveProposalContent stores edited creative on an accepted proposal
// and moves it to in_progress
func (r *Repository) UpdateLiveProposalContent(ctx context.Context, proposalID uuid.UUID, content models.CreativePayload) (bool, error) {
	return applied(r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ? AND status IN ?", proposalID, models.LiveProposalStatuses).
		Updates(map[string]interface{}{
			"content": content,
			"status":  models.ProposalStatusInProgress,
		}))
}

// ExpireLiveProposal marks the proposal of an elapsed campaign as expired
func (r *Repository) ExpireLiveProposal(ctx context.Context, proposalID uuid.UUID) (bool, error) {
	return applied(r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ? AND status IN ?", proposalID, models.LiveProposalStatuses).
		Update("status", models.ProposalStatusExpired))
}

// IncrementImpressions atomically bumps the impression counter
func (r *Repository) IncrementImpressions(ctx context.Context, proposalID uuid.UUID) (bool, error) {
	return r.incrementProposalCounter(ctx, proposalID, "impressions")
}

// IncrementClicks atomically bumps the click counter
func (r *Repository) IncrementClicks(ctx context.Context, proposalID uuid.UUID) (bool, error) {
	return r.incrementProposalCounter(ctx, proposalID, "clicks")
}

func (r *Repository) incrementProposalCounter(ctx context.Context, proposalID uuid.UUID, column string) (bool, error) {
	return applied(r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ?", proposalID).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1)))
}

// SetAccessCode stores a guest access code on a proposal
func (r *Repository) SetAccessCode(ctx context.Context, proposalID uuid.UUID, code string, expiresAt time.Time) (bool, error) {
	return applied(r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ?", proposalID).
		Updates(map[string]interface{}{
			"access_code":            code,
			"access_code_expires_at": expiresAt,
			"access_code_attempts":   0,
		}))
}

// ReserveAccessCodeAttempt counts one verification attempt against the stored
// code. Returns false when no code is stored or its attempt budget is spent.
func (r *Repository) ReserveAccessCodeAttempt(ctx context.Context, proposalID uuid.UUID, maxAttempts int) (bool, error) {
	return applied(r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ? AND access_code IS NOT NULL AND access_code_attempts < ?", proposalID, maxAttempts).
		UpdateColumn("access_code_attempts", gorm.Expr("access_code_attempts + ?", 1)))
}

// ResetAccessCodeAttempts restores the full attempt budget after a successful verification
func (r *Repository) ResetAccessCodeAttempts(ctx context.Context, proposalID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ?", proposalID).
		UpdateColumn("access_code_attempts", 0).Error
}

// ClearAccessCode removes the stored code so it can no longer be verified
func (r *Repository) ClearAccessCode(ctx context.Context, proposalID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ?", proposalID).
		UpdateColumns(map[string]interface{}{
			"access_code":            nil,
			"access_code_expires_at": nil,
			"access_code_attempts":   0,
		}).Error
}
