package repository

import (
	"context"

	"adslot-market/internal/models"
)

// UpdateUserNickname sets the display name of a user
func (r *Repository) UpdateUserNickname(ctx context.Context, userID uint, nickname string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("nickname", nickname)
	return applied(result)
}

// AssignNicknameIfEmpty sets a generated nickname only when none is stored yet
func (r *Repository) AssignNicknameIfEmpty(ctx context.Context, userID uint, nickname string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND (nickname = '' OR nickname IS NULL)", userID).
		Update("nickname", nickname)
	return applied(result)
}

// CreateCompany inserts a new advertiser profile
func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

// UpdateCompanyContact changes the name and email of an advertiser profile
func (r *Repository) UpdateCompanyContact(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).
		Model(company).
		Updates(map[string]interface{}{
			"name":       company.Name,
			"email":      company.Email,
			"updated_at": company.UpdatedAt,
		}).Error
}
