package tenderrepo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm/clause"

	"tender-server/internal/domain/query"
	"tender-server/internal/domain/tender"
	"tender-server/internal/infrastructure/database"
	"tender-server/internal/infrastructure/database/entities"
	"tender-server/internal/utils/platformerrors"
)

// TenderGormRepository persists tenders and bids with gorm.
type TenderGormRepository struct {
	db *database.DB
}

var _ tender.Repository = (*TenderGormRepository)(nil)

func NewTenderGormRepository(db *database.DB) tender.Repository {
	return &TenderGormRepository{db: db}
}

func (r *TenderGormRepository) Create(ctx context.Context, t *tender.Tender) error {
	model := entities.NewTender(t)
	if err := r.db.GetTx(ctx).Create(model).Error; err != nil {
		return database.AsRepositoryError(ctx, err, "failed to create tender", "a1e7c3d9-5b2f-4e08-9c64-3d8f0b2a7e51")
	}
	t.CreatedAt = model.CreatedAt
	t.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *TenderGormRepository) GetByID(ctx context.Context, id string) (*tender.Tender, error) {
	var model entities.Tender
	if err := r.db.GetTx(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, database.AsRepositoryError(ctx, err, "tender not found", "6d2b8f41-0c7e-4a93-b15d-9e4a2c6f8b03")
	}
	return model.EtoD(), nil
}

func (r *TenderGormRepository) List(ctx context.Context, filter tender.Filter, pagination query.Pagination) ([]*tender.Tender, int64, error) {
	pagination = pagination.Normalize()
	sql := r.db.GetTx(ctx).Model(&entities.Tender{})
	if filter.Status != nil {
		sql = sql.Where("status = ?", string(*filter.Status))
	}
	if filter.Category != nil && *filter.Category != "" {
		sql = sql.Where("category = ?", *filter.Category)
	}
	if filter.CompanyID != nil && *filter.CompanyID != "" {
		sql = sql.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		pattern := "%" + escapeLike(strings.TrimSpace(*filter.Search)) + "%"
		sql = sql.Where("(title ILIKE ? OR description ILIKE ?)", pattern, pattern)
	}

	var total int64
	if err := sql.Count(&total).Error; err != nil {
		return nil, 0, database.AsRepositoryError(ctx, err, "failed to count tenders", "e3f60a9b-7d14-4c2e-8a5f-1b9c0d7e4a26")
	}
	var models []entities.Tender
	if err := sql.Order("created_at DESC").Order("id DESC").Limit(pagination.Limit).Offset(pagination.Offset).Find(&models).Error; err != nil {
		return nil, 0, database.AsRepositoryError(ctx, err, "failed to list tenders", "0b94d7e2-3a6c-4f15-bd8e-5c2a1f9e6d70")
	}
	result := make([]*tender.Tender, 0, len(models))
	for i := range models {
		result = append(result, models[i].EtoD())
	}
	return result, total, nil
}

func (r *TenderGormRepository) Update(ctx context.Context, t *tender.Tender) error {
	model := entities.NewTender(t)
	if err := r.db.GetTx(ctx).Save(model).Error; err != nil {
		return database.AsRepositoryError(ctx, err, "failed to update tender", "4c8a2e6f-9b13-4d70-a2e5-7f0b3c9d1e84")
	}
	t.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *TenderGormRepository) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.GetTx(ctx).Model(&entities.Tender{}).
		Where("status = ? AND deadline <= ?", string(tender.StatusOpen), now).
		Updates(map[string]any{"status": string(tender.StatusClosed), "updated_at": now})
	if result.Error != nil {
		return 0, database.AsRepositoryError(ctx, result.Error, "failed to close expired tenders", "9f1d5b3a-6e28-4c47-80b9-2d7e4a6c1f35")
	}
	return result.RowsAffected, nil
}

func (r *TenderGormRepository) CreateRequest(ctx context.Context, req *tender.Request) error {
	model := entities.NewTenderRequest(req)
	if err := r.db.GetTx(ctx).Create(model).Error; err != nil {
		return database.AsRepositoryError(ctx, err, "failed to create tender request", "b7e02c4d-8f91-4a36-9d5b-0e6c3a8f2b17")
	}
	req.CreatedAt = model.CreatedAt
	req.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *TenderGormRepository) GetRequest(ctx context.Context, id string) (*tender.Request, error) {
	var model entities.TenderRequest
	if err := r.db.GetTx(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, database.AsRepositoryError(ctx, err, "tender request not found", "2e5a9c1f-4d7b-4e83-b06a-8c3f1d9e5b42")
	}
	return model.EtoD(), nil
}

func (r *TenderGormRepository) ListRequestsByTender(ctx context.Context, tenderID string) ([]*tender.Request, error) {
	var models []entities.TenderRequest
	if err := r.db.GetTx(ctx).Where("tender_id = ?", tenderID).Order("created_at ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to list tender requests", "f08b3d6e-1c5a-4927-8e4d-6a2b9f0c7d13")
	}
	return requestsToDomain(models), nil
}

func (r *TenderGormRepository) ListRequestsByCompany(ctx context.Context, companyID string, pagination query.Pagination) ([]*tender.Request, int64, error) {
	pagination = pagination.Normalize()
	sql := r.db.GetTx(ctx).Model(&entities.TenderRequest{}).Where("company_id = ?", companyID)

	var total int64
	if err := sql.Count(&total).Error; err != nil {
		return nil, 0, database.AsRepositoryError(ctx, err, "failed to count tender requests", "5a3e7f0c-2b9d-4e61-a84f-0d6b1c8e3a97")
	}
	var models []entities.TenderRequest
	if err := sql.Order("created_at DESC").Order("id DESC").Limit(pagination.Limit).Offset(pagination.Offset).Find(&models).Error; err != nil {
		return nil, 0, database.AsRepositoryError(ctx, err, "failed to list tender requests", "c6d19a4e-7f2b-4053-9e8a-3b5d0f1c6e28")
	}
	return requestsToDomain(models), total, nil
}

func (r *TenderGormRepository) UpdateRequestStatus(ctx context.Context, id string, from, to tender.RequestStatus) error {
	result := r.db.GetTx(ctx).Model(&entities.TenderRequest{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return database.AsRepositoryError(ctx, result.Error, "failed to update tender request", "8e2f4b6a-0d3c-4a19-b7e5-1f9c2d6a0b84")
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict, "tender request is no longer "+string(from), nil, "1d7c3e9f-5a2b-4f08-96e4-0b8a3c5d7f61")
	}
	return nil
}

// AcceptRequest locks the tender row, flips the chosen bid to accepted, every other pending
// bid to rejected and the tender to awarded, in one transaction.
func (r *TenderGormRepository) AcceptRequest(ctx context.Context, tenderID, requestID string, now time.Time) (*tender.Acceptance, error) {
	var acceptance *tender.Acceptance
	err := r.db.Transaction(ctx, func(ctx context.Context) error {
		tx := r.db.GetTx(ctx)

		var t entities.Tender
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", tenderID).First(&t).Error; err != nil {
			return database.AsRepositoryError(ctx, err, "tender not found", "3b6e9d2f-8c14-4a57-a0e3-6f2d1b9c4e78")
		}
		if t.Status != string(tender.StatusOpen) {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict, "tender is "+t.Status, nil, "7a0c4f8e-2d6b-4e91-b53a-9c1e7f3d0a26")
		}

		var requests []entities.TenderRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("tender_id = ?", tenderID).Order("created_at ASC").Order("id ASC").Find(&requests).Error; err != nil {
			return database.AsRepositoryError(ctx, err, "failed to load tender requests", "e9b25c7d-4f30-4816-8d2a-5b7e0c3f9a14")
		}

		result := &tender.Acceptance{}
		for i := range requests {
			req := &requests[i]
			switch {
			case req.ID == requestID:
				if req.Status != string(tender.RequestPending) {
					return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict, "tender request is "+req.Status, nil, "0f6d8a3c-1e5b-4c72-9b4f-2a8e6d0c3b59")
				}
				req.Status = string(tender.RequestAccepted)
				req.UpdatedAt = now
				result.Accepted = req.EtoD()
			case req.Status == string(tender.RequestPending):
				req.Status = string(tender.RequestRejected)
				req.UpdatedAt = now
				result.Rejected = append(result.Rejected, req.EtoD())
			}
		}
		if result.Accepted == nil {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "tender request does not belong to tender", nil, "6c2a9e5f-3b7d-4108-a4e6-8d1f0b2c7e93")
		}

		if err := tx.Model(&entities.TenderRequest{}).
			Where("id = ?", requestID).
			Updates(map[string]any{"status": string(tender.RequestAccepted), "updated_at": now}).Error; err != nil {
			return database.AsRepositoryError(ctx, err, "failed to accept tender request", "b4f70d2e-9a3c-4e58-86b1-3c0e5a7d9f42")
		}
		if err := tx.Model(&entities.TenderRequest{}).
			Where("tender_id = ? AND id <> ? AND status = ?", tenderID, requestID, string(tender.RequestPending)).
			Updates(map[string]any{"status": string(tender.RequestRejected), "updated_at": now}).Error; err != nil {
			return database.AsRepositoryError(ctx, err, "failed to reject competing requests", "2d8e1a6c-5f49-4b03-9c7e-0a4b6d2f8e15")
		}

		t.Status = string(tender.StatusAwarded)
		t.AwardedRequestID = &requestID
		t.UpdatedAt = now
		if err := tx.Model(&entities.Tender{}).
			Where("id = ?", tenderID).
			Updates(map[string]any{"status": t.Status, "awarded_request_id": requestID, "updated_at": now}).Error; err != nil {
			return database.AsRepositoryError(ctx, err, "failed to award tender", "9e3c5b7a-1d62-4f80-b2a9-7e5d0c1f3b68")
		}

		result.Tender = t.EtoD()
		acceptance = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acceptance, nil
}

func requestsToDomain(models []entities.TenderRequest) []*tender.Request {
	result := make([]*tender.Request, 0, len(models))
	for i := range models {
		result = append(result, models[i].EtoD())
	}
	return result
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
