package companyhandler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"tender-server/internal/domain/company"
	"tender-server/internal/domain/query"
	"tender-server/internal/interfaces/httpserver/middlewares"
	"tender-server/internal/interfaces/httpserver/requests"
	"tender-server/internal/interfaces/httpserver/responses"
	"tender-server/internal/utils/platformerrors"
)

// CompanyService is the company use case surface the handler depends on.
type CompanyService interface {
	CreateCompany(ctx context.Context, ownerSubject string, c *company.Company) (*company.Company, error)
	GetCompany(ctx context.Context, id string) (*company.Company, error)
	GetByOwner(ctx context.Context, ownerSubject string) (*company.Company, error)
	ListCompanies(ctx context.Context, filter company.Filter, pagination query.Pagination) ([]*company.Company, int64, error)
	UpdateCompany(ctx context.Context, ownerSubject, id string, patch company.Patch) (*company.Company, error)
}

// CompanyHandler serves company profile endpoints.
type CompanyHandler struct {
	service  CompanyService
	validate *validator.Validate
}

// NewCompanyHandler creates a company handler.
func NewCompanyHandler(service CompanyService) *CompanyHandler {
	return &CompanyHandler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Create godoc
// @Summary Create company profile
// @Description Registers the company of the authenticated user. Each user owns at most one company.
// @Tags Companies
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body requests.CreateCompanyRequest true "Company profile"
// @Success 201 {object} company.Company
// @Failure 400 {object} responses.ErrorResponse
// @Failure 401 {object} responses.ErrorResponse
// @Failure 409 {object} responses.ErrorResponse
// @Router /v1/companies [post]
func (h *CompanyHandler) Create(reqCtx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "6a2d0f4e-1c7b-4b39-9e85-3f0a6d2c1b47")
		return
	}

	var req requests.CreateCompanyRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleValidationError(reqCtx, err, "8f1c3e27-5a6d-4d0b-b2e9-7c4a1f6e3d58")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		responses.HandleValidationError(reqCtx, err, "2b7e9a14-0d3c-4f6a-8e51-9a2c7d4b6f03")
		return
	}

	created, err := h.service.CreateCompany(reqCtx.Request.Context(), principal.Subject, req.ToDomain())
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to create company")
		return
	}
	responses.Created(reqCtx, created)
}

// List godoc
// @Summary List companies
// @Description Searches companies by name and industry, ordered by name.
// @Tags Companies
// @Security BearerAuth
// @Produce json
// @Param search query string false "Name contains"
// @Param industry query string false "Industry"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} responses.ListResponse[company.Company]
// @Failure 400 {object} responses.ErrorResponse
// @Router /v1/companies [get]
func (h *CompanyHandler) List(reqCtx *gin.Context) {
	pagination, err := requests.GetPaginationFromQuery(reqCtx)
	if err != nil {
		responses.HandleError(reqCtx, err, "invalid pagination")
		return
	}
	filter := company.Filter{
		Search:   requests.OptionalQuery(reqCtx, "search"),
		Industry: requests.OptionalQuery(reqCtx, "industry"),
	}

	companies, total, err := h.service.ListCompanies(reqCtx.Request.Context(), filter, pagination)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to list companies")
		return
	}
	responses.OK(reqCtx, responses.ListResponse[*company.Company]{
		Data:   companies,
		Total:  total,
		Limit:  pagination.Limit,
		Offset: pagination.Offset,
	})
}

// GetMine godoc
// @Summary Get my company
// @Description Returns the company owned by the authenticated user.
// @Tags Companies
// @Security BearerAuth
// @Produce json
// @Success 200 {object} company.Company
// @Failure 403 {object} responses.ErrorResponse "No company profile yet"
// @Router /v1/companies/me [get]
func (h *CompanyHandler) GetMine(reqCtx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "c41e8b2a-7f3d-4a65-90bc-5e2d8f1a4c79")
		return
	}
	cmp, err := h.service.GetByOwner(reqCtx.Request.Context(), principal.Subject)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to load company")
		return
	}
	responses.OK(reqCtx, cmp)
}

// Get godoc
// @Summary Get company
// @Tags Companies
// @Security BearerAuth
// @Produce json
// @Param id path string true "Company ID (cmp_...)"
// @Success 200 {object} company.Company
// @Failure 404 {object} responses.ErrorResponse
// @Router /v1/companies/{id} [get]
func (h *CompanyHandler) Get(reqCtx *gin.Context) {
	cmp, err := h.service.GetCompany(reqCtx.Request.Context(), reqCtx.Param("id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to load company")
		return
	}
	responses.OK(reqCtx, cmp)
}

// Update godoc
// @Summary Update company
// @Description Updates the profile. Only the owner may update it.
// @Tags Companies
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Company ID (cmp_...)"
// @Param request body requests.UpdateCompanyRequest true "Fields to change"
// @Success 200 {object} company.Company
// @Failure 400 {object} responses.ErrorResponse
// @Failure 403 {object} responses.ErrorResponse
// @Router /v1/companies/{id} [patch]
func (h *CompanyHandler) Update(reqCtx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "13d7a5c2-9e4b-4f08-a6d1-2c8b5e7f0a94")
		return
	}

	var req requests.UpdateCompanyRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleValidationError(reqCtx, err, "5e9b2d60-3a1f-4c7e-b8d4-0f6a3c9e2b15")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		responses.HandleValidationError(reqCtx, err, "a07c4e1b-6d2f-4893-9b5a-e1d3f7c0b268")
		return
	}

	updated, err := h.service.UpdateCompany(reqCtx.Request.Context(), principal.Subject, reqCtx.Param("id"), req.ToPatch())
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to update company")
		return
	}
	responses.OK(reqCtx, updated)
}
