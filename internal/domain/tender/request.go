package tender

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus is the lifecycle state of a bid.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestWithdrawn RequestStatus = "withdrawn"
)

// Request is a company's bid on a tender.
type Request struct {
	ID            string          `json:"id"`
	TenderID      string          `json:"tender_id"`
	CompanyID     string          `json:"company_id"`
	Proposal      string          `json:"proposal"`
	Price         decimal.Decimal `json:"price"`
	AttachmentURL string          `json:"attachment_url,omitempty"`
	Status        RequestStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
