package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"adslot-market/internal/metrics"
	"adslot-market/internal/models"
	"adslot-market/internal/notify"
	"adslot-market/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SlotService struct {
	repo       *repository.Repository
	merchants  MerchantAccounts
	dispatcher notify.Dispatcher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	batchSize  int
	now        func() time.Time
}

func NewSlotService(
	repo *repository.Repository,
	merchants MerchantAccounts,
	dispatcher notify.Dispatcher,
	m *metrics.Metrics,
	logger *zap.Logger,
	sweepBatchSize int,
) *SlotService {
	return &SlotService{
		repo:       repo,
		merchants:  merchants,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger.Named("slots"),
		batchSize:  sweepBatchSize,
		now:        utcNow,
	}
}

// CreateSlot publishes a new slot on one of the user's pages
func (s *SlotService) CreateSlot(ctx context.Context, userID uint, req *models.CreateSlotRequest) (*models.Slot, error) {
	pageID, err := uuid.Parse(req.PageID)
	if err != nil {
		return nil, validationError("invalid page id")
	}

	page, err := s.repo.GetPageByID(ctx, pageID)
	if err != nil {
		return nil, lookupError(err, "page")
	}
	if page.UserID != userID {
		return nil, forbiddenError("page belongs to another user")
	}

	_, connected, err := s.merchants.MerchantAccount(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to check merchant account: %w", err)
	}
	if !connected {
		return nil, forbiddenError("connect a payment account before creating slots")
	}

	slot := &models.Slot{
		ID:                uuid.New(),
		UserID:            userID,
		PageID:            pageID,
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		PriceMin:          req.PriceMin,
		PriceMax:          req.PriceMax,
		AcceptOtherPrices: req.AcceptOtherPrices,
		DurationDays:      req.DurationDays,
		Status:            models.SlotStatusAvailable,
		Position:          req.Position,
	}

	if err := validateSlotTerms(slot); err != nil {
		return nil, err
	}

	if err := s.repo.CreateSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("failed to create slot: %w", err)
	}

	s.logger.Info("slot created",
		zap.String("slot_id", slot.ID.String()),
		zap.String("page_id", pageID.String()),
	)

	return slot, nil
}

// GetSlot retrieves a slot by ID
func (s *SlotService) GetSlot(ctx context.Context, slotID uuid.UUID) (*models.Slot, error) {
	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, lookupError(err, "slot")
	}
	return slot, nil
}

// UpdateSlot changes the commercial terms of a slot. The running campaign,
// if any, keeps the window it was accepted with.
func (s *SlotService) UpdateSlot(ctx context.Context, userID uint, slotID uuid.UUID, req *models.UpdateSlotRequest) (*models.Slot, error) {
	slot, err := s.ownedSlot(ctx, userID, slotID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		slot.Name = strings.TrimSpace(*req.Name)
		updates["name"] = slot.Name
	}
	if req.Description != nil {
		slot.Description = *req.Description
		updates["description"] = slot.Description
	}
	if req.PriceMin != nil {
		slot.PriceMin = *req.PriceMin
		updates["price_min"] = slot.PriceMin
	}
	if req.PriceMax != nil {
		slot.PriceMax = *req.PriceMax
		updates["price_max"] = slot.PriceMax
	}
	if req.AcceptOtherPrices != nil {
		slot.AcceptOtherPrices = *req.AcceptOtherPrices
		updates["accept_other_prices"] = slot.AcceptOtherPrices
	}
	if req.DurationDays != nil {
		slot.DurationDays = *req.DurationDays
		updates["duration_days"] = slot.DurationDays
	}
	if req.Position != nil {
		slot.Position = *req.Position
		updates["position"] = slot.Position
	}

	if len(updates) == 0 {
		return nil, validationError("nothing to update")
	}
	if err := validateSlotTerms(slot); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateSlotTerms(ctx, slotID, updates); err != nil {
		return nil, fmt.Errorf("failed to update slot: %w", err)
	}

	return s.GetSlot(ctx, slotID)
}

// DeleteSlot removes an available slot together with its proposals
func (s *SlotService) DeleteSlot(ctx context.Context, userID uint, slotID uuid.UUID) error {
	slot, err := s.ownedSlot(ctx, userID, slotID)
	if err != nil {
		return err
	}
	if slot.Status != models.SlotStatusAvailable {
		return forbiddenError("slot with a running campaign cannot be deleted")
	}

	deleted, err := s.repo.DeleteAvailableSlot(ctx, slotID)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	if !deleted {
		// Accepted between the read and the delete
		return forbiddenError("slot with a running campaign cannot be deleted")
	}

	s.logger.Info("slot deleted", zap.String("slot_id", slotID.String()))
	return nil
}

// ListSlotsByPage retrieves the slots shown on a page
func (s *SlotService) ListSlotsByPage(ctx context.Context, pageID uuid.UUID) ([]*models.Slot, error) {
	slots, err := s.repo.ListSlotsByPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

// ListSlotsByOwner retrieves every slot of a user
func (s *SlotService) ListSlotsByOwner(ctx context.Context, userID uint) ([]*models.Slot, error) {
	slots, err := s.repo.ListSlotsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

func (s *SlotService) ownedSlot(ctx context.Context, userID uint, slotID uuid.UUID) (*models.Slot, error) {
	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, lookupError(err, "slot")
	}
	if slot.UserID != userID {
		return nil, forbiddenError("slot belongs to another user")
	}
	return slot, nil
}

func validateSlotTerms(slot *models.Slot) error {
	if slot.Name == "" {
		return validationError("name is required")
	}
	if len(slot.Name) > 255 {
		return validationError("name must be at most 255 characters")
	}
	if slot.PriceMin.IsNegative() || slot.PriceMax.IsNegative() {
		return validationError("prices must not be negative")
	}
	if !models.IsStorablePrice(slot.PriceMin) || !models.IsStorablePrice(slot.PriceMax) {
		return validationError("prices must have at most 2 decimal places and not exceed %s",
			models.MaxPrice.StringFixed(2))
	}
	if slot.PriceMax.LessThan(slot.PriceMin) {
		return validationError("price_max must be greater than or equal to price_min")
	}
	if slot.DurationDays < models.MinSlotDurationDays || slot.DurationDays > models.MaxSlotDurationDays {
		return validationError("duration_days must be between %d and %d",
			models.MinSlotDurationDays, models.MaxSlotDurationDays)
	}
	return nil
}
