package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"adslot-market/internal/models"
	"adslot-market/internal/notify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessCodeRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	o := env.seedOwner(t, true)
	slot := env.seedSlot(t, o, 10, 50)
	proposal := env.seedGuestProposal(t, slot.ID, 25)
	ctx := context.Background()

	require.NoError(t, env.access.SendAccessCode(ctx, proposal.ID))

	notices := env.dispatcher.ofKind(notify.KindAccessCode)
	require.Len(t, notices, 1)
	assert.Equal(t, *proposal.GuestEmail, notices[0].To)
	assert.Equal(t, "15 minutes", notices[0].Data["expires_in"])

	code := notices[0].Data["code"]
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)

	stored := env.reloadProposal(t, proposal.ID)
	require.NotNil(t, stored.AccessCodeExpiresAt)
	assert.True(t, stored.AccessCodeExpiresAt.Equal(baseTime.Add(15*time.Minute)))

	resp, err := env.access.VerifyAccessCode(ctx, proposal.ID, code)
	require.NoError(t, err)
	assert.Equal(t, "token-"+proposal.ID.String(), resp.Token)

	// Codes stay valid until they expire
	_, err = env.access.VerifyAccessCode(ctx, proposal.ID, code)
	assert.NoError(t, err)
}

func TestVerifyAccessCodeFailuresLookAlike(t *testing.T) {
	env := newTestEnv(t)
	o := env.seedOwner(t, true)
	slot := env.seedSlot(t, o, 10, 50)
	proposal := env.seedGuestProposal(t, slot.ID, 25)
	fresh := env.seedGuestProposal(t, slot.ID, 30)
	ctx := context.Background()

	env.access.newCode = func() (string, error) { return "042137", nil }
	require.NoError(t, env.access.SendAccessCode(ctx, proposal.ID))

	_, wrong := env.access.VerifyAccessCode(ctx, proposal.ID, "042138")
	_, unknown := env.access.VerifyAccessCode(ctx, uuid.New(), "042137")
	_, missing := env.access.VerifyAccessCode(ctx, fresh.ID, "042137")

	env.clock.Advance(16 * time.Minute)
	_, expired := env.access.VerifyAccessCode(ctx, proposal.ID, "042137")

	for _, err := range []error{wrong, unknown, missing, expired} {
		requireKind(t, err, KindValidation)
		assert.Equal(t, wrong.Error(), err.Error())
	}
}

func TestVerifyAccessCodeAtExpiryBoundary(t *testing.T) {
	env := newTestEnv(t)
	o := env.seedOwner(t, true)
	slot := env.seedSlot(t, o, 10, 50)
	proposal := env.seedGuestProposal(t, slot.ID, 25)
	ctx := context.Background()

	env.access.newCode = func() (string, error) { return "123456", nil }
	require.NoError(t, env.access.SendAccessCode(ctx, proposal.ID))

	env.clock.Advance(15 * time.Minute)
	_, err := env.access.VerifyAccessCode(ctx, proposal.ID, "123456")
	assert.NoError(t, err)
}

func TestSendAccessCodeThrottle(t *testing.T) {
	env := newTestEnv(t)
	o := env.seedOwner(t, true)
	slot := env.seedSlot(t, o, 10, 50)
	proposal := env.seedGuestProposal(t, slot.ID, 25)
	ctx := context.Background()

	require.NoError(t, env.access.SendAccessCode(ctx, proposal.ID))

	err := env.access.SendAccessCode(ctx, proposal.ID)
	requireKind(t, err, KindValidation)
	assert.Len(t, env.dispatcher.ofKind(notify.KindAccessCode), 1)

	// Throttle outages do not lock guests out
	env.throttle.err = errors.New("redis: connection refused")
	require.NoError(t, env.access.SendAccessCode(ctx, proposal.ID))
	assert.Len(t, env.dispatcher.ofKind(notify.KindAccessCode), 2)
}

func TestSendAccessCodeReplacesPrevious(t *testing.T) {
	env := newTestEnv(t)
	env.access.throttle = nil
	o := env.seedOwner(t, true)
	slot := env.seedSlot(t, o, 10, 50)
	proposal := env.seedGuestProposal(t, slot.ID, 25)
	ctx := context.Background()

	codes := []string{"111111", "222222"}
	env.access.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	require.NoError(t, env.access.SendAccessCode(ctx, proposal.ID))
	require.NoError(t, env.access.SendAccessCode(ctx, proposal.ID))

	_, err := env.access.VerifyAccessCode(ctx, proposal.ID, "111111")
	requireKind(t, err, KindValidation)

	_, err = env.access.VerifyAccessCode(ctx, proposal.ID, "222222")
	assert.NoError(t, err)
}

func TestSendAccessCodeToCompany(t *testing.T) {
	env := newTestEnv(t)
	o := env.seedOwner(t, true)
	slot := env.seedSlot(t, o, 10, 50)
	companyUser, company := env.seedCompanyUser(t)
	ctx := context.Background()

	proposal, err := env.proposals.CreateProposal(ctx, slot.ID, companyUser.ID, &models.CreateProposalRequest{
		ProposedPrice: decimal.NewFromInt(25),
		Content:       testCreative(),
	})
	require.NoError(t, err)

	require.NoError(t, env.access.SendAccessCode(ctx, proposal.ID))

	notices := env.dispatcher.ofKind(notify.KindAccessCode)
	require.Len(t, notices, 1)
	assert.Equal(t, company.Email, notices[0].To)

	requireKind(t, env.access.SendAccessCode(ctx, uuid.New()), KindNotFound)
}

func TestGenerateAccessCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := generateAccessCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "15 minutes", humanDuration(15*time.Minute))
	assert.Equal(t, "1 minute", humanDuration(time.Minute))
	assert.Equal(t, "2 hours", humanDuration(2*time.Hour))
	assert.Equal(t, "45s", humanDuration(45*time.Second))
}

func TestVerifyAccessCodeAttemptBudget(t *testing.T) {
	env := newTestEnv(t)
	env.access.throttle = nil
	o := env.seedOwner(t, true)
	slot := env.seedSlot(t, o, 10, 50)
	proposal := env.seedGuestProposal(t, slot.ID, 25)
	ctx := context.Background()

	env.access.newCode = func() (string, error) { return "123456", nil }
	require.NoError(t, env.access.SendAccessCode(ctx, proposal.ID))

	for i := 0; i < maxAccessCodeAttempts; i++ {
		_, err := env.access.VerifyAccessCode(ctx, proposal.ID, "000000")
		requireKind(t, err, KindValidation)
	}

	// The budget is spent: the right code no longer works and is gone
	_, err := env.access.VerifyAccessCode(ctx, proposal.ID, "123456")
	requireKind(t, err, KindValidation)
	assert.Nil(t, env.reloadProposal(t, proposal.ID).AccessCode)

	// A fresh code comes with a fresh budget
	require.NoError(t, env.access.SendAccessCode(ctx, proposal.ID))
	_, err = env.access.VerifyAccessCode(ctx, proposal.ID, "123456")
	assert.NoError(t, err)
}

func TestVerifyAccessCodeSuccessRestoresBudget(t *testing.T) {
	env := newTestEnv(t)
	o := env.seedOwner(t, true)
	slot := env.seedSlot(t, o, 10, 50)
	proposal := env.seedGuestProposal(t, slot.ID, 25)
	ctx := context.Background()

	env.access.newCode = func() (string, error) { return "654321", nil }
	require.NoError(t, env.access.SendAccessCode(ctx, proposal.ID))

	for i := 0; i < maxAccessCodeAttempts-1; i++ {
		_, err := env.access.VerifyAccessCode(ctx, proposal.ID, "111111")
		requireKind(t, err, KindValidation)
	}
	_, err := env.access.VerifyAccessCode(ctx, proposal.ID, "654321")
	require.NoError(t, err)
	assert.Zero(t, env.reloadProposal(t, proposal.ID).AccessCodeAttempts)

	_, err = env.access.VerifyAccessCode(ctx, proposal.ID, "111111")
	requireKind(t, err, KindValidation)
	_, err = env.access.VerifyAccessCode(ctx, proposal.ID, "654321")
	assert.NoError(t, err)
}
