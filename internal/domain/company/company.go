package company

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tender-server/internal/domain/query"
)

// Company is a marketplace participant. Each authenticated owner manages exactly one.
type Company struct {
	ID            string          `json:"id"`
	OwnerSubject  string          `json:"-"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Industry      string          `json:"industry"`
	Website       string          `json:"website"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	LogoURL       string          `json:"logo_url"`
	RatingAverage decimal.Decimal `json:"rating_average"`
	RatingCount   int             `json:"rating_count"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Profile is the display metadata other modules join onto their rows.
type Profile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logo_url"`
	Email   string `json:"-"`
}

// Profile returns the display metadata of the company.
func (c *Company) Profile() Profile {
	return Profile{ID: c.ID, Name: c.Name, LogoURL: c.LogoURL, Email: c.Email}
}

// Filter narrows company listings.
type Filter struct {
	Search   *string
	Industry *string
}

// Patch holds optional updates; nil fields are left untouched.
type Patch struct {
	Name        *string
	Description *string
	Industry    *string
	Website     *string
	Email       *string
	Phone       *string
	Address     *string
	LogoURL     *string
}

// Apply copies the set fields of p onto c.
func (p Patch) Apply(c *Company) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Industry != nil {
		c.Industry = *p.Industry
	}
	if p.Website != nil {
		c.Website = *p.Website
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.LogoURL != nil {
		c.LogoURL = *p.LogoURL
	}
}

// Repository persists companies.
type Repository interface {
	Create(ctx context.Context, company *Company) error
	GetByID(ctx context.Context, id string) (*Company, error)
	GetByOwner(ctx context.Context, ownerSubject string) (*Company, error)
	ListByIDs(ctx context.Context, ids []string) ([]*Company, error)
	List(ctx context.Context, filter Filter, pagination query.Pagination) ([]*Company, int64, error)
	Update(ctx context.Context, company *Company) error
}

// ProfileCache keeps recently resolved profiles in memory.
type ProfileCache interface {
	Get(id string) (Profile, bool)
	Add(profile Profile)
	Remove(id string)
}
