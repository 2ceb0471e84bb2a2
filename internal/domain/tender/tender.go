package tender

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tender-server/internal/domain/query"
)

// Status is the lifecycle state of a tender.
type Status string

const (
	StatusOpen      Status = "open"
	StatusAwarded   Status = "awarded"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

// IsValid reports whether s is a known tender status.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusAwarded, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// Tender is a call for bids published by a company.
type Tender struct {
	ID               string          `json:"id"`
	CompanyID        string          `json:"company_id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	Location         string          `json:"location"`
	Budget           decimal.Decimal `json:"budget"`
	Currency         string          `json:"currency"`
	Deadline         time.Time       `json:"deadline"`
	Status           Status          `json:"status"`
	AttachmentURLs   []string        `json:"attachment_urls"`
	AwardedRequestID *string         `json:"awarded_request_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// AcceptsBids reports whether new tender requests may be submitted at now.
func (t *Tender) AcceptsBids(now time.Time) bool {
	return t.Status == StatusOpen && now.Before(t.Deadline)
}

// Filter narrows tender listings.
type Filter struct {
	Status    *Status
	Category  *string
	CompanyID *string
	Search    *string
}

// Patch holds optional tender updates.
type Patch struct {
	Title          *string
	Description    *string
	Category       *string
	Location       *string
	Budget         *decimal.Decimal
	Currency       *string
	Deadline       *time.Time
	AttachmentURLs *[]string
}

// Apply copies the set fields of p onto t.
func (p Patch) Apply(t *Tender) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Location != nil {
		t.Location = *p.Location
	}
	if p.Budget != nil {
		t.Budget = *p.Budget
	}
	if p.Currency != nil {
		t.Currency = *p.Currency
	}
	if p.Deadline != nil {
		t.Deadline = *p.Deadline
	}
	if p.AttachmentURLs != nil {
		t.AttachmentURLs = *p.AttachmentURLs
	}
}

// Repository persists tenders and their requests. AcceptRequest must be atomic.
type Repository interface {
	Create(ctx context.Context, tender *Tender) error
	GetByID(ctx context.Context, id string) (*Tender, error)
	List(ctx context.Context, filter Filter, pagination query.Pagination) ([]*Tender, int64, error)
	Update(ctx context.Context, tender *Tender) error
	CloseExpired(ctx context.Context, now time.Time) (int64, error)

	CreateRequest(ctx context.Context, request *Request) error
	GetRequest(ctx context.Context, id string) (*Request, error)
	ListRequestsByTender(ctx context.Context, tenderID string) ([]*Request, error)
	ListRequestsByCompany(ctx context.Context, companyID string, pagination query.Pagination) ([]*Request, int64, error)
	UpdateRequestStatus(ctx context.Context, id string, from, to RequestStatus) error

	// AcceptRequest marks requestID accepted, rejects every other pending request of the
	// same tender and marks the tender awarded, all or nothing.
	AcceptRequest(ctx context.Context, tenderID, requestID string, now time.Time) (*Acceptance, error)
}

// Acceptance is the outcome of an atomic accept.
type Acceptance struct {
	Tender   *Tender    `json:"tender"`
	Accepted *Request   `json:"accepted"`
	Rejected []*Request `json:"rejected"`
}

// Locker serializes an operation across service replicas.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
