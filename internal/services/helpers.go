package services

import (
	"context"
	"fmt"
	"time"

	"adslot-market/internal/models"
	"adslot-market/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// MerchantAccounts resolves the connected payment account of a page
type MerchantAccounts interface {
	MerchantAccount(ctx context.Context, pageID uuid.UUID) (string, bool, error)
}

// Actor identifies who performs an operation: a signed-in user or a guest
// holding a proposal access credential
type Actor struct {
	UserID         uint
	ProposalAccess uuid.UUID
}

func UserActor(userID uint) Actor {
	return Actor{UserID: userID}
}

func GuestActor(proposalID uuid.UUID) Actor {
	return Actor{ProposalAccess: proposalID}
}

func (a Actor) isUser() bool {
	return a.UserID != 0
}

// grantsGuestAccess reports whether a guest credential covers proposalID
func (a Actor) grantsGuestAccess(proposalID uuid.UUID) bool {
	return a.ProposalAccess != uuid.Nil && a.ProposalAccess == proposalID
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func stringPtr(s string) *string {
	return &s
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// contact is the email recipient for notifications about a proposal
type contact struct {
	Email string
	Name  string
}

// proposerContact resolves who submitted a proposal
func proposerContact(ctx context.Context, repo *repository.Repository, proposal *models.Proposal) (contact, error) {
	if proposal.CompanyID != nil {
		company, err := repo.GetCompanyByID(ctx, *proposal.CompanyID)
		if err != nil {
			return contact{}, fmt.Errorf("failed to get company: %w", err)
		}
		return contact{Email: company.Email, Name: company.Name}, nil
	}

	var c contact
	if proposal.GuestEmail != nil {
		c.Email = *proposal.GuestEmail
	}
	if proposal.GuestName != nil {
		c.Name = *proposal.GuestName
	}
	return c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006 15:04 MST")
}
