package companyrepo

import (
	"context"
	"strings"

	"tender-server/internal/domain/company"
	"tender-server/internal/domain/query"
	"tender-server/internal/infrastructure/database"
	"tender-server/internal/infrastructure/database/entities"
)

// CompanyGormRepository persists companies with gorm.
type CompanyGormRepository struct {
	db *database.DB
}

var _ company.Repository = (*CompanyGormRepository)(nil)

func NewCompanyGormRepository(db *database.DB) company.Repository {
	return &CompanyGormRepository{db: db}
}

func (r *CompanyGormRepository) Create(ctx context.Context, c *company.Company) error {
	model := entities.NewCompany(c)
	if err := r.db.GetTx(ctx).Create(model).Error; err != nil {
		return database.AsRepositoryError(ctx, err, "failed to create company", "3f1c9a52-2d0e-4b7e-9a61-0c8e5d7f1a24")
	}
	c.CreatedAt = model.CreatedAt
	c.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *CompanyGormRepository) GetByID(ctx context.Context, id string) (*company.Company, error) {
	var model entities.Company
	if err := r.db.GetTx(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, database.AsRepositoryError(ctx, err, "company not found", "8b0e4c17-6a3f-4d2b-b59e-71f2c0a8d3e6")
	}
	return model.EtoD(), nil
}

func (r *CompanyGormRepository) GetByOwner(ctx context.Context, ownerSubject string) (*company.Company, error) {
	var model entities.Company
	if err := r.db.GetTx(ctx).Where("owner_subject = ?", ownerSubject).First(&model).Error; err != nil {
		return nil, database.AsRepositoryError(ctx, err, "company not found for owner", "c4d2a9e0-1b7f-4c35-8e06-9a3b5f7d2e18")
	}
	return model.EtoD(), nil
}

func (r *CompanyGormRepository) ListByIDs(ctx context.Context, ids []string) ([]*company.Company, error) {
	if len(ids) == 0 {
		return []*company.Company{}, nil
	}
	var models []entities.Company
	if err := r.db.GetTx(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to load companies", "5e7a1f3c-9d24-4b80-a6c1-2f0d8e4b7a95")
	}
	result := make([]*company.Company, 0, len(models))
	for i := range models {
		result = append(result, models[i].EtoD())
	}
	return result, nil
}

func (r *CompanyGormRepository) List(ctx context.Context, filter company.Filter, pagination query.Pagination) ([]*company.Company, int64, error) {
	pagination = pagination.Normalize()
	sql := r.db.GetTx(ctx).Model(&entities.Company{})
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		sql = sql.Where("name ILIKE ?", "%"+escapeLike(strings.TrimSpace(*filter.Search))+"%")
	}
	if filter.Industry != nil && *filter.Industry != "" {
		sql = sql.Where("industry = ?", *filter.Industry)
	}

	var total int64
	if err := sql.Count(&total).Error; err != nil {
		return nil, 0, database.AsRepositoryError(ctx, err, "failed to count companies", "d91b6e24-0f3a-4c7d-85e2-6b4a1c9f0e37")
	}

	var models []entities.Company
	if err := sql.Order("name ASC").Order("id ASC").Limit(pagination.Limit).Offset(pagination.Offset).Find(&models).Error; err != nil {
		return nil, 0, database.AsRepositoryError(ctx, err, "failed to list companies", "2a6f0c8d-4e1b-4795-b3d0-8c5e7f9a1b62")
	}
	result := make([]*company.Company, 0, len(models))
	for i := range models {
		result = append(result, models[i].EtoD())
	}
	return result, total, nil
}

func (r *CompanyGormRepository) Update(ctx context.Context, c *company.Company) error {
	model := entities.NewCompany(c)
	if err := r.db.GetTx(ctx).Save(model).Error; err != nil {
		return database.AsRepositoryError(ctx, err, "failed to update company", "7c3e9b15-2a8d-4f60-9e47-0d1b6a3c8f29")
	}
	c.UpdatedAt = model.UpdatedAt
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
