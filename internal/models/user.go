package models

import (
	"time"
)

// User represents an account owner (page owner or advertiser)
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Nickname  string    `gorm:"size:100" json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// AccountProfile is the signed-in user with their advertiser profile, if any
type AccountProfile struct {
	User    *User    `json:"user"`
	Company *Company `json:"company,omitempty"`
}

// UpdateNicknameRequest changes the display name of the signed-in user
type UpdateNicknameRequest struct {
	Nickname string `json:"nickname" binding:"required"`
}

// CompanyProfileRequest creates or updates the advertiser profile
type CompanyProfileRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email,max=255"`
}
