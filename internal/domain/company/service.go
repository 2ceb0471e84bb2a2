package company

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tender-server/internal/domain/query"
	"tender-server/internal/utils/idgen"
	"tender-server/internal/utils/platformerrors"
)

// Service handles company profile use cases.
type Service struct {
	repo      Repository
	cache     ProfileCache
	validator *Validator
	log       zerolog.Logger
}

// NewService creates a company service. cache may be nil.
func NewService(repo Repository, cache ProfileCache, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		validator: NewValidator(nil),
		log:       log.With().Str("component", "company-service").Logger(),
	}
}

// CreateCompany registers the company owned by ownerSubject. An owner may hold only one company.
func (s *Service) CreateCompany(ctx context.Context, ownerSubject string, c *Company) (*Company, error) {
	if strings.TrimSpace(ownerSubject) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized, "no current user", nil, "")
	}

	now := time.Now().UTC()
	c.ID = idgen.New(idgen.PrefixCompany)
	c.OwnerSubject = ownerSubject
	c.Name = strings.TrimSpace(c.Name)
	c.RatingAverage = decimal.Zero
	c.RatingCount = 0
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.validator.ValidateCompany(c); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "company validation failed", err, "")
	}

	if err := s.repo.Create(ctx, c); err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "a company already exists for this account", err, "")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create company")
	}

	s.log.Info().Str("company_id", c.ID).Msg("company created")
	return c, nil
}

// GetCompany loads a company by id.
func (s *Service) GetCompany(ctx context.Context, id string) (*Company, error) {
	if err := s.validator.ValidateCompanyID(id); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid company ID", err, "")
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "company not found")
	}
	return c, nil
}

// GetByOwner resolves the company of the authenticated user.
// Returns FORBIDDEN when the user has not created a company yet.
func (s *Service) GetByOwner(ctx context.Context, ownerSubject string) (*Company, error) {
	if strings.TrimSpace(ownerSubject) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized, "no current user", nil, "")
	}
	c, err := s.repo.GetByOwner(ctx, ownerSubject)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "current user has no company profile", err, "")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to resolve current company")
	}
	return c, nil
}

// ListCompanies returns a page of companies matching filter.
func (s *Service) ListCompanies(ctx context.Context, filter Filter, pagination query.Pagination) ([]*Company, int64, error) {
	companies, total, err := s.repo.List(ctx, filter, pagination.Normalize())
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list companies")
	}
	return companies, total, nil
}

// UpdateCompany applies patch to the company when ownerSubject owns it.
func (s *Service) UpdateCompany(ctx context.Context, ownerSubject, id string, patch Patch) (*Company, error) {
	c, err := s.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OwnerSubject != ownerSubject {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the owner can update this company", nil, "")
	}

	patch.Apply(c)
	c.Name = strings.TrimSpace(c.Name)
	c.UpdatedAt = time.Now().UTC()
	if err := s.validator.ValidateCompany(c); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "company validation failed", err, "")
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update company")
	}
	s.Invalidate(c.ID)
	return c, nil
}

// Invalidate drops a cached profile, e.g. after the rating aggregate changed.
func (s *Service) Invalidate(id string) {
	if s.cache != nil {
		s.cache.Remove(id)
	}
}

// ResolveProfiles returns display metadata for ids, consulting the cache first.
// Unknown ids are absent from the result map.
func (s *Service) ResolveProfiles(ctx context.Context, ids []string) (map[string]Profile, error) {
	profiles := make(map[string]Profile, len(ids))
	missing := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		if s.cache != nil {
			if p, ok := s.cache.Get(id); ok {
				profiles[id] = p
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return profiles, nil
	}

	companies, err := s.repo.ListByIDs(ctx, missing)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to resolve company profiles")
	}
	for _, c := range companies {
		p := c.Profile()
		profiles[c.ID] = p
		if s.cache != nil {
			s.cache.Add(p)
		}
	}
	return profiles, nil
}

// ResolveProfile returns display metadata for one company.
func (s *Service) ResolveProfile(ctx context.Context, id string) (Profile, error) {
	profiles, err := s.ResolveProfiles(ctx, []string{id})
	if err != nil {
		return Profile{}, err
	}
	p, ok := profiles[id]
	if !ok {
		return Profile{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "company profile not found", nil, "")
	}
	return p, nil
}
