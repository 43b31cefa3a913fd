package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SlotStatus string

const (
	SlotStatusAvailable       SlotStatus = "available"
	SlotStatusOccupied        SlotStatus = "occupied"
	SlotStatusPendingApproval SlotStatus = "pending_approval"
)

const (
	MinSlotDurationDays = 1
	MaxSlotDurationDays = 365
)

// Slot is an advertising placement published on a page
type Slot struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uint            `gorm:"not null;index" json:"user_id"`
	PageID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"page_id"`
	Name              string          `gorm:"size:255;not null" json:"name"`
	Description       string          `gorm:"type:text" json:"description"`
	PriceMin          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price_min"`
	PriceMax          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price_max"`
	AcceptOtherPrices bool            `gorm:"not null;default:false" json:"accept_other_prices"`
	DurationDays      int             `gorm:"not null;default:30" json:"duration_days"`
	Status            SlotStatus      `gorm:"size:32;not null;default:available;index" json:"status"`
	ActiveProposalID  *uuid.UUID      `gorm:"type:uuid" json:"active_proposal_id"`
	ActiveSince       *time.Time      `json:"active_since"`
	ExpiresAt         *time.Time      `gorm:"index" json:"expires_at"`
	TotalRevenue      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_revenue"`
	TotalProposals    int64           `gorm:"not null;default:0" json:"total_proposals"`
	AvgImpressions    float64         `gorm:"default:0" json:"avg_impressions"`
	AvgClicks         float64         `gorm:"default:0" json:"avg_clicks"`
	AvgCTR            float64         `gorm:"column:avg_ctr;default:0" json:"avg_ctr"`
	Position          int             `gorm:"not null;default:0" json:"position"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (Slot) TableName() string {
	return "slots"
}

// MaxPrice is the largest amount a decimal(12,2) price column holds
var MaxPrice = decimal.RequireFromString("9999999999.99")

// IsStorablePrice reports whether price fits a price column exactly: at most
// two decimal places and no larger than MaxPrice
func IsStorablePrice(price decimal.Decimal) bool {
	return price.Equal(price.Round(2)) && !price.Abs().GreaterThan(MaxPrice)
}

// AcceptsPrice reports whether price satisfies the slot's pricing policy.
// Bounds are inclusive; negative prices are never accepted.
func (s *Slot) AcceptsPrice(price decimal.Decimal) bool {
	if price.IsNegative() {
		return false
	}
	if s.AcceptOtherPrices {
		return true
	}
	return !price.LessThan(s.PriceMin) && !price.GreaterThan(s.PriceMax)
}

// CreateSlotRequest represents a request to publish a new slot
type CreateSlotRequest struct {
	PageID            string          `json:"page_id" binding:"required,uuid"`
	Name              string          `json:"name" binding:"required,max=255"`
	Description       string          `json:"description"`
	PriceMin          decimal.Decimal `json:"price_min"`
	PriceMax          decimal.Decimal `json:"price_max"`
	AcceptOtherPrices bool            `json:"accept_other_prices"`
	DurationDays      int             `json:"duration_days" binding:"required"`
	Position          int             `json:"position"`
}

// UpdateSlotRequest carries a partial update of a slot's commercial terms
type UpdateSlotRequest struct {
	Name              *string          `json:"name"`
	Description       *string          `json:"description"`
	PriceMin          *decimal.Decimal `json:"price_min"`
	PriceMax          *decimal.Decimal `json:"price_max"`
	AcceptOtherPrices *bool            `json:"accept_other_prices"`
	DurationDays      *int             `json:"duration_days"`
	Position          *int             `json:"position"`
}
