package repository

import (
	"context"
	"errors"

	"adslot-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetPageByID retrieves a page by ID
func (r *Repository) GetPageByID(ctx context.Context, pageID uuid.UUID) (*models.Page, error) {
	var page models.Page
	err := r.db.WithContext(ctx).Where("id = ?", pageID).First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// MerchantAccount returns the connected merchant account of a page, if any
func (r *Repository) MerchantAccount(ctx context.Context, pageID uuid.UUID) (string, bool, error) {
	page, err := r.GetPageByID(ctx, pageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !page.HasMerchantAccount() {
		return "", false, nil
	}
	return *page.StripeAccountID, true, nil
}

// GetCompanyByID retrieves a company by ID
func (r *Repository) GetCompanyByID(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	var company models.Company
	err := r.db.WithContext(ctx).Where("id = ?", companyID).First(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// GetCompanyByUserID retrieves the advertiser profile of a user
func (r *Repository) GetCompanyByUserID(ctx context.Context, userID uint) (*models.Company, error) {
	var company models.Company
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
