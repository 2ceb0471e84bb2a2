package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tender-server/internal/domain/company"
	"tender-server/internal/domain/query"
)

type CompanyRepository struct {
	mu        sync.RWMutex
	companies map[string]company.Company
}

var _ company.Repository = (*CompanyRepository)(nil)

func NewCompanyRepository() *CompanyRepository {
	return &CompanyRepository{companies: make(map[string]company.Company)}
}

func (r *CompanyRepository) Create(ctx context.Context, c *company.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.companies[c.ID]; ok {
		return conflict(ctx, "company already exists")
	}
	for _, existing := range r.companies {
		if existing.OwnerSubject == c.OwnerSubject {
			return conflict(ctx, "owner already has a company")
		}
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	r.companies[c.ID] = *c
	return nil
}

func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*company.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.companies[id]
	if !ok {
		return nil, notFound(ctx, "company")
	}
	return &c, nil
}

func (r *CompanyRepository) GetByOwner(ctx context.Context, ownerSubject string) (*company.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.companies {
		if c.OwnerSubject == ownerSubject {
			c := c
			return &c, nil
		}
	}
	return nil, notFound(ctx, "company")
}

func (r *CompanyRepository) ListByIDs(_ context.Context, ids []string) ([]*company.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*company.Company, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.companies[id]; ok {
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *CompanyRepository) List(_ context.Context, filter company.Filter, pagination query.Pagination) ([]*company.Company, int64, error) {
	pagination = pagination.Normalize()
	r.mu.RLock()
	matched := make([]*company.Company, 0, len(r.companies))
	for _, c := range r.companies {
		if filter.Search != nil && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(strings.TrimSpace(*filter.Search))) {
			continue
		}
		if filter.Industry != nil && *filter.Industry != "" && c.Industry != *filter.Industry {
			continue
		}
		c := c
		matched = append(matched, &c)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})
	return window(matched, pagination.Limit, pagination.Offset), int64(len(matched)), nil
}

func (r *CompanyRepository) Update(ctx context.Context, c *company.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.companies[c.ID]; !ok {
		return notFound(ctx, "company")
	}
	c.UpdatedAt = time.Now().UTC()
	r.companies[c.ID] = *c
	return nil
}

// setRating is used by RatingRepository to keep the aggregate columns in step.
func (r *CompanyRepository) setRating(id string, update func(c *company.Company)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[id]
	if !ok {
		return false
	}
	update(&c)
	r.companies[id] = c
	return true
}
