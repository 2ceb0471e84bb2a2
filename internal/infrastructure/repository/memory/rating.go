package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tender-server/internal/domain/company"
	"tender-server/internal/domain/query"
	"tender-server/internal/domain/rating"
)

// RatingRepository keeps ratings in memory and writes the aggregate back onto the
// companies held by a CompanyRepository.
type RatingRepository struct {
	mu        sync.Mutex
	ratings   []rating.Rating
	companies *CompanyRepository
}

var _ rating.Repository = (*RatingRepository)(nil)

func NewRatingRepository(companies *CompanyRepository) *RatingRepository {
	return &RatingRepository{companies: companies}
}

func (r *RatingRepository) Submit(ctx context.Context, rt *rating.Rating) (*rating.Aggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	scores := make([]int, 0, len(r.ratings)+1)
	for _, existing := range r.ratings {
		if existing.RaterCompanyID == rt.RaterCompanyID && existing.RatedCompanyID == rt.RatedCompanyID && existing.TenderID == rt.TenderID {
			return nil, conflict(ctx, "rating already submitted")
		}
		if existing.RatedCompanyID == rt.RatedCompanyID {
			scores = append(scores, existing.Score)
		}
	}
	scores = append(scores, rt.Score)

	aggregate := &rating.Aggregate{CompanyID: rt.RatedCompanyID, Average: rating.Average(scores), Count: len(scores)}
	if r.companies != nil {
		ok := r.companies.setRating(rt.RatedCompanyID, func(c *company.Company) {
			c.RatingAverage = aggregate.Average
			c.RatingCount = aggregate.Count
		})
		if !ok {
			return nil, notFound(ctx, "rated company")
		}
	}

	if rt.CreatedAt.IsZero() {
		rt.CreatedAt = time.Now().UTC()
	}
	r.ratings = append(r.ratings, *rt)
	return aggregate, nil
}

func (r *RatingRepository) ListForCompany(_ context.Context, companyID string, pagination query.Pagination) ([]*rating.Rating, int64, error) {
	pagination = pagination.Normalize()
	r.mu.Lock()
	matched := make([]*rating.Rating, 0)
	for _, rt := range r.ratings {
		if rt.RatedCompanyID == companyID {
			rt := rt
			matched = append(matched, &rt)
		}
	}
	r.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return window(matched, pagination.Limit, pagination.Offset), int64(len(matched)), nil
}
