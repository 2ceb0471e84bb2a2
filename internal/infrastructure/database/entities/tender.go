package entities

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"tender-server/internal/domain/tender"
)

// Tender is the persisted tender row.
type Tender struct {
	ID               string                      `gorm:"type:text;primaryKey"`
	CompanyID        string                      `gorm:"type:text;index;not null"`
	Title            string                      `gorm:"type:text;not null"`
	Description      string                      `gorm:"type:text;not null"`
	Category         string                      `gorm:"type:text;not null"`
	Location         string                      `gorm:"type:text;not null"`
	Budget           decimal.Decimal             `gorm:"type:numeric(14,2);not null"`
	Currency         string                      `gorm:"type:char(3);not null"`
	Deadline         time.Time                   `gorm:"not null"`
	Status           string                      `gorm:"type:text;not null"`
	AttachmentURLs   datatypes.JSONSlice[string] `gorm:"column:attachment_urls;type:jsonb;not null"`
	AwardedRequestID *string                     `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Tender) TableName() string {
	return "tenders"
}

func NewTender(t *tender.Tender) *Tender {
	urls := t.AttachmentURLs
	if urls == nil {
		urls = []string{}
	}
	return &Tender{
		ID:               t.ID,
		CompanyID:        t.CompanyID,
		Title:            t.Title,
		Description:      t.Description,
		Category:         t.Category,
		Location:         t.Location,
		Budget:           t.Budget,
		Currency:         t.Currency,
		Deadline:         t.Deadline,
		Status:           string(t.Status),
		AttachmentURLs:   datatypes.JSONSlice[string](urls),
		AwardedRequestID: t.AwardedRequestID,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func (e *Tender) EtoD() *tender.Tender {
	urls := []string(e.AttachmentURLs)
	if urls == nil {
		urls = []string{}
	}
	return &tender.Tender{
		ID:               e.ID,
		CompanyID:        e.CompanyID,
		Title:            e.Title,
		Description:      e.Description,
		Category:         e.Category,
		Location:         e.Location,
		Budget:           e.Budget,
		Currency:         e.Currency,
		Deadline:         e.Deadline,
		Status:           tender.Status(e.Status),
		AttachmentURLs:   urls,
		AwardedRequestID: e.AwardedRequestID,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// TenderRequest is the persisted bid row.
type TenderRequest struct {
	ID            string          `gorm:"type:text;primaryKey"`
	TenderID      string          `gorm:"type:text;not null"`
	CompanyID     string          `gorm:"type:text;not null"`
	Proposal      string          `gorm:"type:text;not null"`
	Price         decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	AttachmentURL string          `gorm:"column:attachment_url;type:text;not null"`
	Status        string          `gorm:"type:text;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (TenderRequest) TableName() string {
	return "tender_requests"
}

func NewTenderRequest(r *tender.Request) *TenderRequest {
	return &TenderRequest{
		ID:            r.ID,
		TenderID:      r.TenderID,
		CompanyID:     r.CompanyID,
		Proposal:      r.Proposal,
		Price:         r.Price,
		AttachmentURL: r.AttachmentURL,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (e *TenderRequest) EtoD() *tender.Request {
	return &tender.Request{
		ID:            e.ID,
		TenderID:      e.TenderID,
		CompanyID:     e.CompanyID,
		Proposal:      e.Proposal,
		Price:         e.Price,
		AttachmentURL: e.AttachmentURL,
		Status:        tender.RequestStatus(e.Status),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
