package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProposalStatus string

const (
	ProposalStatusPending    ProposalStatus = "pending"
	ProposalStatusActive     ProposalStatus = "active"
	ProposalStatusInProgress ProposalStatus = "in_progress"
	ProposalStatusRejected   ProposalStatus = "rejected"
	ProposalStatusExpired    ProposalStatus = "expired"
)

// LiveProposalStatuses are the statuses of a proposal that currently holds its slot
var LiveProposalStatuses = []ProposalStatus{ProposalStatusActive, ProposalStatusInProgress}

// IsLive reports whether the proposal currently holds its slot
func (s ProposalStatus) IsLive() bool {
	return s == ProposalStatusActive || s == ProposalStatusInProgress
}

const (
	RejectionReasonDefault    = "Rejected by user"
	RejectionReasonSuperseded = "Another proposal was accepted"
)

// Proposal is an advertiser's priced bid against a slot
type Proposal struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SlotID              uuid.UUID       `gorm:"type:uuid;not null;index" json:"slot_id"`
	CompanyID           *uuid.UUID      `gorm:"type:uuid;index" json:"company_id,omitempty"`
	GuestName           *string         `gorm:"size:255" json:"guest_name,omitempty"`
	GuestEmail          *string         `gorm:"size:255;index" json:"guest_email,omitempty"`
	ProposedPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"proposed_price"`
	Content             CreativePayload `gorm:"type:jsonb;not null" json:"content"`
	Status              ProposalStatus  `gorm:"size:32;not null;default:pending;index" json:"status"`
	Impressions         int64           `gorm:"not null;default:0" json:"impressions"`
	Clicks              int64           `gorm:"not null;default:0" json:"clicks"`
	RespondedAt         *time.Time      `json:"responded_at,omitempty"`
	RejectionReason     *string         `gorm:"type:text" json:"rejection_reason,omitempty"`
	PaymentLink         *string         `gorm:"size:1024" json:"payment_link,omitempty"`
	PaymentLinkExpiry   *time.Time      `json:"payment_link_expiry,omitempty"`
	AccessCode          *string         `gorm:"size:6" json:"-"`
	AccessCodeExpiresAt *time.Time      `json:"-"`
	AccessCodeAttempts  int             `gorm:"not null;default:0" json:"-"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (Proposal) TableName() string {
	return "proposals"
}

// IsGuest reports whether the proposal was submitted by an anonymous advertiser
func (p *Proposal) IsGuest() bool {
	return p.CompanyID == nil
}

// CreateProposalRequest represents a proposal submission
type CreateProposalRequest struct {
	ProposedPrice decimal.Decimal `json:"proposed_price"`
	Content       CreativePayload `json:"content"`
	GuestName     string          `json:"guest_name"`
	GuestEmail    string          `json:"guest_email"`
}

// RejectProposalRequest carries the optional rejection reason
type RejectProposalRequest struct {
	Reason string `json:"reason"`
}

// ProposalAnalytics summarises tracking counters of a proposal
type ProposalAnalytics struct {
	ProposalID  uuid.UUID `json:"proposal_id"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	CTR         string    `json:"ctr"`
}

// VerifyAccessCodeRequest carries a guest's access code
type VerifyAccessCodeRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

// AccessTokenResponse is returned after a successful access-code verification
type AccessTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
