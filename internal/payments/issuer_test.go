package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCharge(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   Charge
	}{
		{"whole amount", "100", Charge{PriceMinor: 10000, FeeMinor: 500, TotalMinor: 10500}},
		{"cents", "19.99", Charge{PriceMinor: 1999, FeeMinor: 100, TotalMinor: 2099}},
		{"fee rounds half up", "0.10", Charge{PriceMinor: 10, FeeMinor: 1, TotalMinor: 11}},
		{"small fee rounds down", "0.05", Charge{PriceMinor: 5, FeeMinor: 0, TotalMinor: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeCharge(decimal.RequireFromString(tt.amount), DefaultFeePercent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeChargeRejectsNonPositive(t *testing.T) {
	_, err := ComputeCharge(decimal.Zero, DefaultFeePercent)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ComputeCharge(decimal.NewFromInt(-3), DefaultFeePercent)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestIdempotencyKeyIsStablePerProposal(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, IdempotencyKey(id), IdempotencyKey(id))
	assert.NotEqual(t, IdempotencyKey(id), IdempotencyKey(uuid.New()))
}

func TestStripeIssuerRequiresMerchantAccount(t *testing.T) {
	issuer := NewStripeIssuer("sk_test_x", "USD", DefaultFeePercent, "https://example.com/ok", "https://example.com/cancel")

	_, err := issuer.CreatePaymentLink(context.Background(), PaymentLinkRequest{
		ProposalID: uuid.New(),
		Amount:     decimal.NewFromInt(10),
		SlotName:   "Header",
	})
	assert.ErrorIs(t, err, ErrNoMerchantAcct)
}
