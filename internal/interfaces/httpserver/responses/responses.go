package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tender-server/internal/utils/platformerrors"
)

// ErrorBody is the error part of a failed response.
type ErrorBody struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse is the envelope of every failed request.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// ListResponse is a page of items with the total count of the filtered set.
type ListResponse[T any] struct {
	Data   []T   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// HandleError renders err as the error envelope with the status mapped from its type.
// Errors that are not platform errors are reported as INTERNAL with message.
func HandleError(reqCtx *gin.Context, err error, message string) {
	ctx := reqCtx.Request.Context()

	var platformErr *platformerrors.PlatformError
	if !errors.As(err, &platformErr) {
		platformErr = platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeInternal, message, err, "")
	}
	platformerrors.LogError(*zerolog.Ctx(ctx), platformErr)

	errorMessage := platformErr.Message
	if errorMessage == "" {
		errorMessage = message
	}
	requestID := platformErr.GetRequestID()
	if requestID == "" {
		requestID = platformerrors.RequestIDFromContext(ctx)
	}

	_ = reqCtx.Error(platformErr)
	reqCtx.AbortWithStatusJSON(platformerrors.ErrorTypeToHTTPStatus(platformErr.GetErrorType()), ErrorResponse{
		Success: false,
		Error: ErrorBody{
			Message:   errorMessage,
			Type:      string(platformErr.GetErrorType()),
			Code:      platformErr.GetUUID(),
			RequestID: requestID,
		},
	})
}

// HandleNewError creates a typed error at the route layer and renders it.
func HandleNewError(reqCtx *gin.Context, errorType platformerrors.ErrorType, message string, uuid string) {
	err := platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerRoute, errorType, message, nil, uuid)
	HandleError(reqCtx, err, message)
}

// HandleValidationError renders a request binding failure as VALIDATION.
func HandleValidationError(reqCtx *gin.Context, err error, uuid string) {
	perr := platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid request: "+err.Error(), err, uuid)
	HandleError(reqCtx, perr, "invalid request")
}

// OK writes body with status 200.
func OK(reqCtx *gin.Context, body any) {
	reqCtx.JSON(http.StatusOK, body)
}

// Created writes body with status 201.
func Created(reqCtx *gin.Context, body any) {
	reqCtx.JSON(http.StatusCreated, body)
}
