package services

import (
	"context"
	"testing"

	"adslot-market/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetProfileAssignsNickname(t *testing.T) {
	env := newTestEnv(t)
	accounts := NewAccountService(env.repo, zap.NewNop())
	ctx := context.Background()

	user := &models.User{Email: "fresh@example.com"}
	require.NoError(t, env.db.Create(user).Error)

	profile, err := accounts.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, profile.User.Nickname)
	assert.Nil(t, profile.Company)

	again, err := accounts.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, profile.User.Nickname, again.User.Nickname)
}

func TestGetProfileIncludesCompany(t *testing.T) {
	env := newTestEnv(t)
	accounts := NewAccountService(env.repo, zap.NewNop())

	user, company := env.seedCompanyUser(t)

	profile, err := accounts.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "brand", profile.User.Nickname)
	require.NotNil(t, profile.Company)
	assert.Equal(t, company.ID, profile.Company.ID)
}

func TestGetProfileUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	accounts := NewAccountService(env.repo, zap.NewNop())

	_, err := accounts.GetProfile(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateNickname(t *testing.T) {
	env := newTestEnv(t)
	accounts := NewAccountService(env.repo, zap.NewNop())
	ctx := context.Background()
	o := env.seedOwner(t, false)

	require.NoError(t, accounts.UpdateNickname(ctx, o.user.ID, "  Corner Shop  "))
	user, err := env.repo.GetUserByID(ctx, o.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Corner Shop", user.Nickname)

	assert.ErrorIs(t, accounts.UpdateNickname(ctx, o.user.ID, "ab"), ErrValidation)
	assert.ErrorIs(t, accounts.UpdateNickname(ctx, o.user.ID, string(make([]byte, 51))), ErrValidation)
	assert.ErrorIs(t, accounts.UpdateNickname(ctx, 999, "Somebody"), ErrNotFound)
}

func TestSaveCompanyProfile(t *testing.T) {
	env := newTestEnv(t)
	accounts := NewAccountService(env.repo, zap.NewNop())
	ctx := context.Background()
	o := env.seedOwner(t, false)

	created, err := accounts.SaveCompanyProfile(ctx, o.user.ID, &models.CompanyProfileRequest{
		Name:  " Acme Outdoor ",
		Email: "ADS@Acme.Example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Outdoor", created.Name)
	assert.Equal(t, "ads@acme.example.com", created.Email)

	updated, err := accounts.SaveCompanyProfile(ctx, o.user.ID, &models.CompanyProfileRequest{
		Name:  "Acme Indoor",
		Email: "hello@acme.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	stored, err := env.repo.GetCompanyByUserID(ctx, o.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Indoor", stored.Name)
	assert.Equal(t, "hello@acme.example.com", stored.Email)
}

func TestSaveCompanyProfileValidation(t *testing.T) {
	env := newTestEnv(t)
	accounts := NewAccountService(env.repo, zap.NewNop())
	ctx := context.Background()
	o := env.seedOwner(t, false)

	tests := []struct {
		name string
		req  models.CompanyProfileRequest
	}{
		{"missing name", models.CompanyProfileRequest{Name: "  ", Email: "a@b.example.com"}},
		{"missing email", models.CompanyProfileRequest{Name: "Acme"}},
		{"malformed email", models.CompanyProfileRequest{Name: "Acme", Email: "not-an-email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := accounts.SaveCompanyProfile(ctx, o.user.ID, &req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := accounts.SaveCompanyProfile(ctx, 999, &models.CompanyProfileRequest{Name: "Acme", Email: "a@b.example.com"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSavedCompanyCanPropose(t *testing.T) {
	env := newTestEnv(t)
	accounts := NewAccountService(env.repo, zap.NewNop())
	ctx := context.Background()

	o := env.seedOwner(t, true)
	slot := env.seedSlot(t, o, 10, 50)

	advertiser := &models.User{Email: "buyer@example.com", Nickname: "buyer"}
	require.NoError(t, env.db.Create(advertiser).Error)

	req := &models.CreateProposalRequest{ProposedPrice: slot.PriceMin, Content: testCreative()}
	_, err := env.proposals.CreateProposal(ctx, slot.ID, advertiser.ID, req)
	assert.ErrorIs(t, err, ErrForbidden)

	company, err := accounts.SaveCompanyProfile(ctx, advertiser.ID, &models.CompanyProfileRequest{
		Name:  "Buyer Co",
		Email: "buyer@example.com",
	})
	require.NoError(t, err)

	proposal, err := env.proposals.CreateProposal(ctx, slot.ID, advertiser.ID, req)
	require.NoError(t, err)
	require.NotNil(t, proposal.CompanyID)
	assert.Equal(t, company.ID, *proposal.CompanyID)
}
