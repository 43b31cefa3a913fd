package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"adslot-market/internal/models"
	"adslot-market/internal/repository"
	"adslot-market/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	minNicknameLength = 3
	maxNicknameLength = 50
)

// AccountService manages the signed-in user's profile and advertiser identity
type AccountService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewAccountService(repo *repository.Repository, logger *zap.Logger) *AccountService {
	return &AccountService{
		repo:   repo,
		logger: logger.Named("accounts"),
		now:    utcNow,
	}
}

// GetProfile returns the user and their company profile. Users without a
// nickname get a generated one on first read.
func (s *AccountService) GetProfile(ctx context.Context, userID uint) (*models.AccountProfile, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "user")
	}

	if user.Nickname == "" {
		nickname, err := utils.GenerateNickname()
		if err != nil {
			return nil, err
		}
		ok, err := s.repo.AssignNicknameIfEmpty(ctx, userID, nickname)
		if err != nil {
			return nil, fmt.Errorf("failed to assign nickname: %w", err)
		}
		if ok {
			user.Nickname = nickname
		} else if user, err = s.repo.GetUserByID(ctx, userID); err != nil {
			return nil, lookupError(err, "user")
		}
	}

	profile := &models.AccountProfile{User: user}

	company, err := s.repo.GetCompanyByUserID(ctx, userID)
	switch {
	case err == nil:
		profile.Company = company
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return profile, nil
}

// UpdateNickname changes the user's display name
func (s *AccountService) UpdateNickname(ctx context.Context, userID uint, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if n := utf8.RuneCountInString(nickname); n < minNicknameLength || n > maxNicknameLength {
		return validationError("nickname must be between %d and %d characters", minNicknameLength, maxNicknameLength)
	}

	ok, err := s.repo.UpdateUserNickname(ctx, userID, nickname)
	if err != nil {
		return fmt.Errorf("failed to update nickname: %w", err)
	}
	if !ok {
		return notFoundError("user not found")
	}
	return nil
}

// SaveCompanyProfile creates the user's advertiser profile or updates its
// contact details. Company proposals are notified at this email.
func (s *AccountService) SaveCompanyProfile(ctx context.Context, userID uint, req *models.CompanyProfileRequest) (*models.Company, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return nil, validationError("a company name and a valid email are required")
	}

	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, lookupError(err, "user")
	}

	now := s.now()
	company, err := s.repo.GetCompanyByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		company = &models.Company{
			ID:        uuid.New(),
			UserID:    userID,
			Name:      req.Name,
			Email:     req.Email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.CreateCompany(ctx, company); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, conflictError("company profile was created concurrently")
			}
			return nil, fmt.Errorf("failed to create company: %w", err)
		}
		s.logger.Info("company profile created",
			zap.Uint("user_id", userID),
			zap.String("company_id", company.ID.String()),
		)
		return company, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	company.Name = req.Name
	company.Email = req.Email
	company.UpdatedAt = now
	if err := s.repo.UpdateCompanyContact(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}
	return company, nil
}
