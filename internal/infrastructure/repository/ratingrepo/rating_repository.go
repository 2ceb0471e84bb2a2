package ratingrepo

import (
	"context"

	"github.com/shopspring/decimal"

	"tender-server/internal/domain/query"
	"tender-server/internal/domain/rating"
	"tender-server/internal/infrastructure/database"
	"tender-server/internal/infrastructure/database/entities"
)

// RatingGormRepository persists ratings and keeps the company aggregate in step.
type RatingGormRepository struct {
	db *database.DB
}

var _ rating.Repository = (*RatingGormRepository)(nil)

func NewRatingGormRepository(db *database.DB) rating.Repository {
	return &RatingGormRepository{db: db}
}

type aggregateRow struct {
	Average decimal.Decimal
	Count   int
}

// Submit inserts the rating and recomputes the rated company's average and count in the
// same transaction.
func (r *RatingGormRepository) Submit(ctx context.Context, rt *rating.Rating) (*rating.Aggregate, error) {
	var aggregate *rating.Aggregate
	err := r.db.Transaction(ctx, func(ctx context.Context) error {
		tx := r.db.GetTx(ctx)

		model := entities.NewRating(rt)
		if err := tx.Create(model).Error; err != nil {
			return database.AsRepositoryError(ctx, err, "failed to store rating", "4e9a1c7f-3b2d-4f60-8e15-a7c0d3b9f2e6")
		}
		rt.CreatedAt = model.CreatedAt

		var row aggregateRow
		if err := tx.Model(&entities.Rating{}).
			Select("COALESCE(AVG(score), 0) AS average, COUNT(*) AS count").
			Where("rated_company_id = ?", rt.RatedCompanyID).
			Scan(&row).Error; err != nil {
			return database.AsRepositoryError(ctx, err, "failed to aggregate ratings", "b2f5d8a0-6c1e-4937-a4b8-0e3f7c9d1a52")
		}
		average := row.Average.Round(2)

		if err := tx.Model(&entities.Company{}).
			Where("id = ?", rt.RatedCompanyID).
			Updates(map[string]any{"rating_average": average, "rating_count": row.Count}).Error; err != nil {
			return database.AsRepositoryError(ctx, err, "failed to update company rating", "d7c3e0b9-1a4f-4e28-9b6d-5f2a8c0e7d14")
		}

		aggregate = &rating.Aggregate{CompanyID: rt.RatedCompanyID, Average: average, Count: row.Count}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return aggregate, nil
}

func (r *RatingGormRepository) ListForCompany(ctx context.Context, companyID string, pagination query.Pagination) ([]*rating.Rating, int64, error) {
	pagination = pagination.Normalize()
	sql := r.db.GetTx(ctx).Model(&entities.Rating{}).Where("rated_company_id = ?", companyID)

	var total int64
	if err := sql.Count(&total).Error; err != nil {
		return nil, 0, database.AsRepositoryError(ctx, err, "failed to count ratings", "0a8d6f3e-9c5b-4172-be04-3d1a7e9c5f28")
	}
	var models []entities.Rating
	if err := sql.Order("created_at DESC").Order("id DESC").Limit(pagination.Limit).Offset(pagination.Offset).Find(&models).Error; err != nil {
		return nil, 0, database.AsRepositoryError(ctx, err, "failed to list ratings", "6f1b4a9d-2e7c-4d05-93a8-b5c0e2f7d164")
	}
	result := make([]*rating.Rating, 0, len(models))
	for i := range models {
		result = append(result, models[i].EtoD())
	}
	return result, total, nil
}
