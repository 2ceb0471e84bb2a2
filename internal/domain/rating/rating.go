package rating

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tender-server/internal/domain/query"
)

const (
	MinScore = 1
	MaxScore = 5
)

// Rating is one company's review of another.
type Rating struct {
	ID             string    `json:"id"`
	RaterCompanyID string    `json:"rater_company_id"`
	RatedCompanyID string    `json:"rated_company_id"`
	TenderID       string    `json:"tender_id,omitempty"`
	Score          int       `json:"score"`
	Comment        string    `json:"comment"`
	CreatedAt      time.Time `json:"created_at"`
}

// Aggregate is the recomputed reputation of the rated company.
type Aggregate struct {
	CompanyID string          `json:"company_id"`
	Average   decimal.Decimal `json:"average"`
	Count     int             `json:"count"`
}

// Repository persists ratings. Submit must insert the rating and recompute the rated
// company's aggregate atomically.
type Repository interface {
	Submit(ctx context.Context, rating *Rating) (*Aggregate, error)
	ListForCompany(ctx context.Context, companyID string, pagination query.Pagination) ([]*Rating, int64, error)
}

// Average computes the rounded mean of scores; zero when empty.
func Average(scores []int) decimal.Decimal {
	if len(scores) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, s := range scores {
		sum = sum.Add(decimal.NewFromInt(int64(s)))
	}
	return sum.Div(decimal.NewFromInt(int64(len(scores)))).Round(2)
}
