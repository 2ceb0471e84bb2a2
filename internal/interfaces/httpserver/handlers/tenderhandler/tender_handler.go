package tenderhandler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"tender-server/internal/domain/query"
	"tender-server/internal/domain/tender"
	"tender-server/internal/infrastructure/metrics"
	"tender-server/internal/interfaces/httpserver/middlewares"
	"tender-server/internal/interfaces/httpserver/requests"
	"tender-server/internal/interfaces/httpserver/responses"
	"tender-server/internal/utils/platformerrors"
)

// TenderService is the tender use case surface the handler depends on.
type TenderService interface {
	CreateTender(ctx context.Context, companyID string, t *tender.Tender) (*tender.Tender, error)
	GetTender(ctx context.Context, id string) (*tender.Tender, error)
	ListTenders(ctx context.Context, filter tender.Filter, pagination query.Pagination) ([]*tender.Tender, int64, error)
	UpdateTender(ctx context.Context, companyID, id string, patch tender.Patch) (*tender.Tender, error)
	CancelTender(ctx context.Context, companyID, id string) (*tender.Tender, error)

	SubmitRequest(ctx context.Context, companyID, tenderID string, r *tender.Request) (*tender.Request, error)
	ListRequestsForTender(ctx context.Context, companyID, tenderID string) ([]*tender.Request, error)
	ListMyRequests(ctx context.Context, companyID string, pagination query.Pagination) ([]*tender.Request, int64, error)
	WithdrawRequest(ctx context.Context, companyID, requestID string) (*tender.Request, error)
	AcceptRequest(ctx context.Context, companyID, requestID string) (*tender.Acceptance, error)
}

// TenderHandler serves tender and tender request endpoints. Every route runs behind
// RequireCompany.
type TenderHandler struct {
	service  TenderService
	validate *validator.Validate
}

// NewTenderHandler creates a tender handler.
func NewTenderHandler(service TenderService) *TenderHandler {
	return &TenderHandler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RequestListResponse lists the bids on one tender.
type RequestListResponse struct {
	Data []*tender.Request `json:"data"`
}

// Create godoc
// @Summary Publish tender
// @Tags Tenders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body requests.CreateTenderRequest true "Tender"
// @Success 201 {object} tender.Tender
// @Failure 400 {object} responses.ErrorResponse
// @Failure 403 {object} responses.ErrorResponse
// @Router /v1/tenders [post]
func (h *TenderHandler) Create(reqCtx *gin.Context) {
	companyID, ok := callerCompanyID(reqCtx)
	if !ok {
		return
	}
	var req requests.CreateTenderRequest
	if !h.bind(reqCtx, &req) {
		return
	}

	created, err := h.service.CreateTender(reqCtx.Request.Context(), companyID, req.ToDomain())
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to create tender")
		return
	}
	responses.Created(reqCtx, created)
}

// List godoc
// @Summary List tenders
// @Description Lists tenders, newest first.
// @Tags Tenders
// @Security BearerAuth
// @Produce json
// @Param status query string false "open, awarded, closed or cancelled"
// @Param category query string false "Category"
// @Param company_id query string false "Publishing company"
// @Param search query string false "Title or description contains"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} responses.ListResponse[tender.Tender]
// @Failure 400 {object} responses.ErrorResponse
// @Router /v1/tenders [get]
func (h *TenderHandler) List(reqCtx *gin.Context) {
	pagination, err := requests.GetPaginationFromQuery(reqCtx)
	if err != nil {
		responses.HandleError(reqCtx, err, "invalid pagination")
		return
	}
	filter := tender.Filter{
		Category:  requests.OptionalQuery(reqCtx, "category"),
		CompanyID: requests.OptionalQuery(reqCtx, "company_id"),
		Search:    requests.OptionalQuery(reqCtx, "search"),
	}
	if status := requests.OptionalQuery(reqCtx, "status"); status != nil {
		s := tender.Status(*status)
		filter.Status = &s
	}

	tenders, total, err := h.service.ListTenders(reqCtx.Request.Context(), filter, pagination)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to list tenders")
		return
	}
	responses.OK(reqCtx, responses.ListResponse[*tender.Tender]{
		Data:   tenders,
		Total:  total,
		Limit:  pagination.Limit,
		Offset: pagination.Offset,
	})
}

// Get godoc
// @Summary Get tender
// @Tags Tenders
// @Security BearerAuth
// @Produce json
// @Param id path string true "Tender ID (tnd_...)"
// @Success 200 {object} tender.Tender
// @Failure 404 {object} responses.ErrorResponse
// @Router /v1/tenders/{id} [get]
func (h *TenderHandler) Get(reqCtx *gin.Context) {
	t, err := h.service.GetTender(reqCtx.Request.Context(), reqCtx.Param("id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to load tender")
		return
	}
	responses.OK(reqCtx, t)
}

// Update godoc
// @Summary Update tender
// @Description Edits an open tender. Only the publishing company may edit it.
// @Tags Tenders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Tender ID (tnd_...)"
// @Param request body requests.UpdateTenderRequest true "Fields to change"
// @Success 200 {object} tender.Tender
// @Failure 403 {object} responses.ErrorResponse
// @Failure 409 {object} responses.ErrorResponse "Tender is not open"
// @Router /v1/tenders/{id} [patch]
func (h *TenderHandler) Update(reqCtx *gin.Context) {
	companyID, ok := callerCompanyID(reqCtx)
	if !ok {
		return
	}
	var req requests.UpdateTenderRequest
	if !h.bind(reqCtx, &req) {
		return
	}

	updated, err := h.service.UpdateTender(reqCtx.Request.Context(), companyID, reqCtx.Param("id"), req.ToPatch())
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to update tender")
		return
	}
	responses.OK(reqCtx, updated)
}

// Cancel godoc
// @Summary Cancel tender
// @Tags Tenders
// @Security BearerAuth
// @Produce json
// @Param id path string true "Tender ID (tnd_...)"
// @Success 200 {object} tender.Tender
// @Failure 403 {object} responses.ErrorResponse
// @Failure 409 {object} responses.ErrorResponse
// @Router /v1/tenders/{id}/cancel [post]
func (h *TenderHandler) Cancel(reqCtx *gin.Context) {
	companyID, ok := callerCompanyID(reqCtx)
	if !ok {
		return
	}
	cancelled, err := h.service.CancelTender(reqCtx.Request.Context(), companyID, reqCtx.Param("id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to cancel tender")
		return
	}
	responses.OK(reqCtx, cancelled)
}

// SubmitRequest godoc
// @Summary Bid on tender
// @Description Places the caller's bid. One bid per company per tender.
// @Tags Tender Requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Tender ID (tnd_...)"
// @Param request body requests.SubmitTenderRequest true "Bid"
// @Success 201 {object} tender.Request
// @Failure 400 {object} responses.ErrorResponse
// @Failure 409 {object} responses.ErrorResponse
// @Failure 410 {object} responses.ErrorResponse "Tender no longer accepts bids"
// @Router /v1/tenders/{id}/requests [post]
func (h *TenderHandler) SubmitRequest(reqCtx *gin.Context) {
	companyID, ok := callerCompanyID(reqCtx)
	if !ok {
		return
	}
	var req requests.SubmitTenderRequest
	if !h.bind(reqCtx, &req) {
		return
	}

	created, err := h.service.SubmitRequest(reqCtx.Request.Context(), companyID, reqCtx.Param("id"), req.ToDomain())
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to submit tender request")
		return
	}
	responses.Created(reqCtx, created)
}

// ListRequests godoc
// @Summary List bids on tender
// @Description Only the publishing company may list the bids.
// @Tags Tender Requests
// @Security BearerAuth
// @Produce json
// @Param id path string true "Tender ID (tnd_...)"
// @Success 200 {object} RequestListResponse
// @Failure 403 {object} responses.ErrorResponse
// @Router /v1/tenders/{id}/requests [get]
func (h *TenderHandler) ListRequests(reqCtx *gin.Context) {
	companyID, ok := callerCompanyID(reqCtx)
	if !ok {
		return
	}
	list, err := h.service.ListRequestsForTender(reqCtx.Request.Context(), companyID, reqCtx.Param("id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to list tender requests")
		return
	}
	responses.OK(reqCtx, RequestListResponse{Data: list})
}

// ListMine godoc
// @Summary List my bids
// @Tags Tender Requests
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} responses.ListResponse[tender.Request]
// @Router /v1/tender-requests/mine [get]
func (h *TenderHandler) ListMine(reqCtx *gin.Context) {
	companyID, ok := callerCompanyID(reqCtx)
	if !ok {
		return
	}
	pagination, err := requests.GetPaginationFromQuery(reqCtx)
	if err != nil {
		responses.HandleError(reqCtx, err, "invalid pagination")
		return
	}
	list, total, err := h.service.ListMyRequests(reqCtx.Request.Context(), companyID, pagination)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to list tender requests")
		return
	}
	responses.OK(reqCtx, responses.ListResponse[*tender.Request]{
		Data:   list,
		Total:  total,
		Limit:  pagination.Limit,
		Offset: pagination.Offset,
	})
}

// Accept godoc
// @Summary Accept bid
// @Description Awards the tender to this bid and rejects every other pending bid atomically.
// @Tags Tender Requests
// @Security BearerAuth
// @Produce json
// @Param id path string true "Tender request ID (bid_...)"
// @Success 200 {object} tender.Acceptance
// @Failure 403 {object} responses.ErrorResponse
// @Failure 409 {object} responses.ErrorResponse "Tender not open or bid not pending"
// @Router /v1/tender-requests/{id}/accept [post]
func (h *TenderHandler) Accept(reqCtx *gin.Context) {
	companyID, ok := callerCompanyID(reqCtx)
	if !ok {
		return
	}
	acceptance, err := h.service.AcceptRequest(reqCtx.Request.Context(), companyID, reqCtx.Param("id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to accept tender request")
		return
	}
	metrics.TendersAwardedTotal.Inc()
	responses.OK(reqCtx, acceptance)
}

// Withdraw godoc
// @Summary Withdraw bid
// @Tags Tender Requests
// @Security BearerAuth
// @Produce json
// @Param id path string true "Tender request ID (bid_...)"
// @Success 200 {object} tender.Request
// @Failure 403 {object} responses.ErrorResponse
// @Failure 409 {object} responses.ErrorResponse
// @Router /v1/tender-requests/{id}/withdraw [post]
func (h *TenderHandler) Withdraw(reqCtx *gin.Context) {
	companyID, ok := callerCompanyID(reqCtx)
	if !ok {
		return
	}
	withdrawn, err := h.service.WithdrawRequest(reqCtx.Request.Context(), companyID, reqCtx.Param("id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to withdraw tender request")
		return
	}
	responses.OK(reqCtx, withdrawn)
}

func (h *TenderHandler) bind(reqCtx *gin.Context, req any) bool {
	if err := reqCtx.ShouldBindJSON(req); err != nil {
		responses.HandleValidationError(reqCtx, err, "7d3a9f52-4e1b-4c86-a0f7-2b5e8c1d6a39")
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		responses.HandleValidationError(reqCtx, err, "e8b14c6d-2a7f-4d93-8c05-6f1a3e9b7d20")
		return false
	}
	return true
}

func callerCompanyID(reqCtx *gin.Context) (string, bool) {
	cmp, ok := middlewares.CompanyFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeForbidden, "current user has no company profile", "4f6c2e8a-9b1d-4a73-b5e0-8d2c7f3a1e64")
		return "", false
	}
	return cmp.ID, true
}
