package entities

import (
	"time"

	"tender-server/internal/domain/rating"
)

// Rating is the persisted rating row.
type Rating struct {
	ID             string `gorm:"type:text;primaryKey"`
	RaterCompanyID string `gorm:"type:text;not null"`
	RatedCompanyID string `gorm:"type:text;not null"`
	TenderID       string `gorm:"type:text;not null"`
	Score          int    `gorm:"type:smallint;not null"`
	Comment        string `gorm:"type:text;not null"`
	CreatedAt      time.Time
}

func (Rating) TableName() string {
	return "ratings"
}

func NewRating(r *rating.Rating) *Rating {
	return &Rating{
		ID:             r.ID,
		RaterCompanyID: r.RaterCompanyID,
		RatedCompanyID: r.RatedCompanyID,
		TenderID:       r.TenderID,
		Score:          r.Score,
		Comment:        r.Comment,
		CreatedAt:      r.CreatedAt,
	}
}

func (e *Rating) EtoD() *rating.Rating {
	return &rating.Rating{
		ID:             e.ID,
		RaterCompanyID: e.RaterCompanyID,
		RatedCompanyID: e.RatedCompanyID,
		TenderID:       e.TenderID,
		Score:          e.Score,
		Comment:        e.Comment,
		CreatedAt:      e.CreatedAt,
	}
}
