package entities

import (
	"time"

	"github.com/shopspring/decimal"

	"tender-server/internal/domain/company"
)

// Company is the persisted company row.
type Company struct {
	ID            string          `gorm:"type:text;primaryKey"`
	OwnerSubject  string          `gorm:"type:text;uniqueIndex;not null"`
	Name          string          `gorm:"type:text;not null"`
	Description   string          `gorm:"type:text;not null"`
	Industry      string          `gorm:"type:text;not null"`
	Website       string          `gorm:"type:text;not null"`
	Email         string          `gorm:"type:text;not null"`
	Phone         string          `gorm:"type:text;not null"`
	Address       string          `gorm:"type:text;not null"`
	LogoURL       string          `gorm:"column:logo_url;type:text;not null"`
	RatingAverage decimal.Decimal `gorm:"type:numeric(3,2);not null"`
	RatingCount   int             `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Company) TableName() string {
	return "companies"
}

func NewCompany(c *company.Company) *Company {
	return &Company{
		ID:            c.ID,
		OwnerSubject:  c.OwnerSubject,
		Name:          c.Name,
		Description:   c.Description,
		Industry:      c.Industry,
		Website:       c.Website,
		Email:         c.Email,
		Phone:         c.Phone,
		Address:       c.Address,
		LogoURL:       c.LogoURL,
		RatingAverage: c.RatingAverage,
		RatingCount:   c.RatingCount,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (e *Company) EtoD() *company.Company {
	return &company.Company{
		ID:            e.ID,
		OwnerSubject:  e.OwnerSubject,
		Name:          e.Name,
		Description:   e.Description,
		Industry:      e.Industry,
		Website:       e.Website,
		Email:         e.Email,
		Phone:         e.Phone,
		Address:       e.Address,
		LogoURL:       e.LogoURL,
		RatingAverage: e.RatingAverage,
		RatingCount:   e.RatingCount,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
