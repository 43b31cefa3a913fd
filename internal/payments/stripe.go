package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

var (
	ErrNotConfigured  = errors.New("payment processor is not configured")
	ErrNoMerchantAcct = errors.New("merchant account id is required")
)

// StripeIssuer issues Stripe Checkout sessions on the page owner's connected
// account, skimming the platform fee as an application fee.
type StripeIssuer struct {
	sessions   *session.Client
	currency   string
	feePercent float64
	successURL string
	cancelURL  string
}

func NewStripeIssuer(secretKey, currency string, feePercent float64, successURL, cancelURL string) *StripeIssuer {
	return &StripeIssuer{
		sessions: &session.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: secretKey,
		},
		currency:   strings.ToLower(currency),
		feePercent: feePercent,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// CreatePaymentLink creates a checkout session for an accepted proposal.
// The request is keyed by proposal id, so a retry returns the same session.
func (s *StripeIssuer) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error) {
	if req.MerchantAccountID == "" {
		return nil, ErrNoMerchantAcct
	}

	charge, err := ComputeCharge(req.Amount, s.feePercent)
	if err != nil {
		return nil, err
	}

	proposalID := req.ProposalID.String()

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.currency),
					UnitAmount: stripe.Int64(charge.TotalMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.SlotName),
						Description: stripe.String(fmt.Sprintf("Sponsored placement for %d days", req.DurationDays)),
					},
				},
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(charge.FeeMinor),
			Metadata:             map[string]string{"proposal_id": proposalID},
		},
	}
	params.Context = ctx
	params.SetStripeAccount(req.MerchantAccountID)
	params.SetIdempotencyKey(IdempotencyKey(req.ProposalID))
	params.AddMetadata("proposal_id", proposalID)

	sess, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &PaymentLink{
		ID:                sess.ID,
		URL:               sess.URL,
		ExpiresAt:         time.Unix(sess.ExpiresAt, 0).UTC(),
		MerchantAccountID: req.MerchantAccountID,
	}, nil
}

// CancelPaymentLink expires an open checkout session so it can no longer be paid
func (s *StripeIssuer) CancelPaymentLink(ctx context.Context, link *PaymentLink) error {
	if link == nil || link.ID == "" {
		return nil
	}

	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	if link.MerchantAccountID != "" {
		params.SetStripeAccount(link.MerchantAccountID)
	}

	if _, err := s.sessions.Expire(link.ID, params); err != nil {
		return fmt.Errorf("failed to expire checkout session %s: %w", link.ID, err)
	}
	return nil
}

// UnconfiguredIssuer fails every request; used when no processor key is set
type UnconfiguredIssuer struct{}

func (UnconfiguredIssuer) CreatePaymentLink(context.Context, PaymentLinkRequest) (*PaymentLink, error) {
	return nil, ErrNotConfigured
}

func (UnconfiguredIssuer) CancelPaymentLink(context.Context, *PaymentLink) error {
	return ErrNotConfigured
}
