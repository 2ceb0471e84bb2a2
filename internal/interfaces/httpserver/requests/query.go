package requests

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"tender-server/internal/domain/query"
	"tender-server/internal/utils/platformerrors"
)

// GetPaginationFromQuery reads limit and offset query parameters.
func GetPaginationFromQuery(reqCtx *gin.Context) (query.Pagination, error) {
	ctx := reqCtx.Request.Context()
	pagination := query.Pagination{Limit: query.DefaultLimit}

	if limitStr := reqCtx.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return query.Pagination{}, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid limit number", err, "04aecd25-bd32-428b-864d-aeb7ecb06e53")
		}
		pagination.Limit = limit
	}
	if offsetStr := reqCtx.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return query.Pagination{}, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid offset number", err, "a3e0ea22-afc6-45df-b686-a194868af415")
		}
		pagination.Offset = offset
	}
	return pagination.Normalize(), nil
}

// OptionalQuery returns a pointer to the query value, or nil when it is empty.
func OptionalQuery(reqCtx *gin.Context, key string) *string {
	if v := reqCtx.Query(key); v != "" {
		return &v
	}
	return nil
}
