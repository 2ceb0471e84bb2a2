package requests

import (
	"time"

	"github.com/shopspring/decimal"

	"tender-server/internal/domain/tender"
)

// CreateTenderRequest publishes a tender for the caller's company.
type CreateTenderRequest struct {
	Title          string          `json:"title" validate:"required,max=200"`
	Description    string          `json:"description"`
	Category       string          `json:"category" validate:"max=120"`
	Location       string          `json:"location" validate:"max=255"`
	Budget         decimal.Decimal `json:"budget" swaggertype:"string" example:"15000.00"`
	Currency       string          `json:"currency" validate:"required,len=3"`
	Deadline       time.Time       `json:"deadline" validate:"required"`
	AttachmentURLs []string        `json:"attachment_urls" validate:"omitempty,max=10,dive,url"`
}

// ToDomain converts the request into a tender.
func (r CreateTenderRequest) ToDomain() *tender.Tender {
	return &tender.Tender{
		Title:          r.Title,
		Description:    r.Description,
		Category:       r.Category,
		Location:       r.Location,
		Budget:         r.Budget,
		Currency:       r.Currency,
		Deadline:       r.Deadline,
		AttachmentURLs: r.AttachmentURLs,
	}
}

// UpdateTenderRequest patches an open tender.
type UpdateTenderRequest struct {
	Title          *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description    *string          `json:"description"`
	Category       *string          `json:"category" validate:"omitempty,max=120"`
	Location       *string          `json:"location" validate:"omitempty,max=255"`
	Budget         *decimal.Decimal `json:"budget" swaggertype:"string"`
	Currency       *string          `json:"currency" validate:"omitempty,len=3"`
	Deadline       *time.Time       `json:"deadline"`
	AttachmentURLs *[]string        `json:"attachment_urls" validate:"omitempty,max=10,dive,url"`
}

// ToPatch converts the request into a tender patch.
func (r UpdateTenderRequest) ToPatch() tender.Patch {
	return tender.Patch{
		Title:          r.Title,
		Description:    r.Description,
		Category:       r.Category,
		Location:       r.Location,
		Budget:         r.Budget,
		Currency:       r.Currency,
		Deadline:       r.Deadline,
		AttachmentURLs: r.AttachmentURLs,
	}
}

// SubmitTenderRequest places a bid on a tender.
type SubmitTenderRequest struct {
	Proposal      string          `json:"proposal" validate:"required"`
	Price         decimal.Decimal `json:"price" swaggertype:"string" example:"12500.00"`
	AttachmentURL string          `json:"attachment_url" validate:"omitempty,url"`
}

// ToDomain converts the request into a bid.
func (r SubmitTenderRequest) ToDomain() *tender.Request {
	return &tender.Request{
		Proposal:      r.Proposal,
		Price:         r.Price,
		AttachmentURL: r.AttachmentURL,
	}
}
