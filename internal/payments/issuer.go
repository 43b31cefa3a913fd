package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultFeePercent is the platform's application fee, charged on top of the
// advertiser's price
const DefaultFeePercent = 5.0

var ErrInvalidAmount = errors.New("payment amount must be positive")

// PaymentLinkRequest describes a one-time checkout for an accepted proposal
type PaymentLinkRequest struct {
	ProposalID        uuid.UUID
	Amount            decimal.Decimal
	SlotName          string
	DurationDays      int
	MerchantAccountID string
}

// PaymentLink is a checkout URL issued by the payment processor
type PaymentLink struct {
	ID                string // processor reference, used to cancel the link
	URL               string
	ExpiresAt         time.Time
	MerchantAccountID string
}

// Issuer creates payment links. Implementations must be idempotent per
// proposal: repeated calls for the same proposal yield the same checkout.
type Issuer interface {
	CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error)
	// CancelPaymentLink makes an issued link unpayable
	CancelPaymentLink(ctx context.Context, link *PaymentLink) error
}

// Charge is a price split into minor currency units
type Charge struct {
	PriceMinor int64 // owner's price
	FeeMinor   int64 // platform application fee
	TotalMinor int64 // what the advertiser pays
}

// ComputeCharge converts a price in major units into minor units and adds the
// application fee, rounded half away from zero to the nearest minor unit.
func ComputeCharge(amount decimal.Decimal, feePercent float64) (Charge, error) {
	if !amount.IsPositive() {
		return Charge{}, ErrInvalidAmount
	}

	hundred := decimal.NewFromInt(100)
	priceMinor := amount.Mul(hundred).Round(0)
	feeMinor := priceMinor.Mul(decimal.NewFromFloat(feePercent)).Div(hundred).Round(0)

	return Charge{
		PriceMinor: priceMinor.IntPart(),
		FeeMinor:   feeMinor.IntPart(),
		TotalMinor: priceMinor.Add(feeMinor).IntPart(),
	}, nil
}

// IdempotencyKey derives the processor idempotency key for a proposal
func IdempotencyKey(proposalID uuid.UUID) string {
	return "proposal-accept-" + proposalID.String()
}
