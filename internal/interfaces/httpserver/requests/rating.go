package requests

import "tender-server/internal/domain/rating"

// SubmitRatingRequest rates another company, optionally in the context of a tender.
type SubmitRatingRequest struct {
	RatedCompanyID string `json:"rated_company_id" validate:"required"`
	TenderID       string `json:"tender_id"`
	Score          int    `json:"score" validate:"required,min=1,max=5"`
	Comment        string `json:"comment" validate:"max=2000"`
}

// ToDomain converts the request into a rating.
func (r SubmitRatingRequest) ToDomain() *rating.Rating {
	return &rating.Rating{
		RatedCompanyID: r.RatedCompanyID,
		TenderID:       r.TenderID,
		Score:          r.Score,
		Comment:        r.Comment,
	}
}
