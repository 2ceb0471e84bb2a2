package ratinghandler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"tender-server/internal/domain/query"
	"tender-server/internal/domain/rating"
	"tender-server/internal/interfaces/httpserver/middlewares"
	"tender-server/internal/interfaces/httpserver/requests"
	"tender-server/internal/interfaces/httpserver/responses"
	"tender-server/internal/utils/platformerrors"
)

// RatingService is the rating use case surface the handler depends on.
type RatingService interface {
	SubmitRating(ctx context.Context, raterID string, r *rating.Rating) (*rating.Rating, *rating.Aggregate, error)
	ListRatings(ctx context.Context, companyID string, pagination query.Pagination) ([]*rating.Rating, int64, error)
}

// RatingHandler serves rating endpoints.
type RatingHandler struct {
	service  RatingService
	validate *validator.Validate
}

// NewRatingHandler creates a rating handler.
func NewRatingHandler(service RatingService) *RatingHandler {
	return &RatingHandler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// SubmitResponse is the stored rating and the rated company's new reputation.
type SubmitResponse struct {
	Rating    *rating.Rating    `json:"rating"`
	Aggregate *rating.Aggregate `json:"aggregate"`
}

// Submit godoc
// @Summary Rate company
// @Description Rates another company. With a tender id only the tender owner and the winning bidder may rate each other.
// @Tags Ratings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body requests.SubmitRatingRequest true "Rating"
// @Success 201 {object} SubmitResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 403 {object} responses.ErrorResponse
// @Failure 409 {object} responses.ErrorResponse "Already rated"
// @Router /v1/ratings [post]
func (h *RatingHandler) Submit(reqCtx *gin.Context) {
	cmp, ok := middlewares.CompanyFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeForbidden, "current user has no company profile", "b2e5d8a1-3f6c-4e09-9a47-1c8d5b2f7e30")
		return
	}

	var req requests.SubmitRatingRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleValidationError(reqCtx, err, "91c4f7e2-5b8a-4d16-a3e9-0d6b2c5f8a71")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		responses.HandleValidationError(reqCtx, err, "3e8a1d5c-7f2b-4960-b4c8-6a0e9d3f1b52")
		return
	}

	stored, aggregate, err := h.service.SubmitRating(reqCtx.Request.Context(), cmp.ID, req.ToDomain())
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to submit rating")
		return
	}
	responses.Created(reqCtx, SubmitResponse{Rating: stored, Aggregate: aggregate})
}

// ListForCompany godoc
// @Summary List ratings of company
// @Description Newest first.
// @Tags Ratings
// @Security BearerAuth
// @Produce json
// @Param id path string true "Company ID (cmp_...)"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} responses.ListResponse[rating.Rating]
// @Router /v1/companies/{id}/ratings [get]
func (h *RatingHandler) ListForCompany(reqCtx *gin.Context) {
	pagination, err := requests.GetPaginationFromQuery(reqCtx)
	if err != nil {
		responses.HandleError(reqCtx, err, "invalid pagination")
		return
	}
	list, total, err := h.service.ListRatings(reqCtx.Request.Context(), reqCtx.Param("id"), pagination)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to list ratings")
		return
	}
	responses.OK(reqCtx, responses.ListResponse[*rating.Rating]{
		Data:   list,
		Total:  total,
		Limit:  pagination.Limit,
		Offset: pagination.Offset,
	})
}
