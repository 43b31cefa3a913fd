package models

import (
	"time"

	"github.com/google/uuid"
)

// Page is the public bio page that hosts slots
type Page struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	Slug            string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	StripeAccountID *string   `gorm:"size:255" json:"-"` // connected merchant account
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Page) TableName() string {
	return "pages"
}

// HasMerchantAccount reports whether payments can be received on the page
func (p *Page) HasMerchantAccount() bool {
	return p.StripeAccountID != nil && *p.StripeAccountID != ""
}

// Company is the advertiser profile of an authenticated user
type Company struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}
