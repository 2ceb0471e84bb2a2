package attachmenthandler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"tender-server/internal/domain/attachment"
	"tender-server/internal/infrastructure/metrics"
	"tender-server/internal/interfaces/httpserver/middlewares"
	"tender-server/internal/interfaces/httpserver/responses"
	"tender-server/internal/utils/platformerrors"
)

const formField = "file"

// AttachmentService is the attachment use case surface the handler depends on.
type AttachmentService interface {
	Upload(ctx context.Context, companyID, filename string, body io.Reader) (*attachment.Attachment, error)
	URL(ctx context.Context, key string) (string, error)
}

// AttachmentHandler serves PDF uploads.
type AttachmentHandler struct {
	service AttachmentService
}

// NewAttachmentHandler creates an attachment handler.
func NewAttachmentHandler(service AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: service}
}

// URLResponse carries a download URL for a stored attachment.
type URLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Upload godoc
// @Summary Upload PDF attachment
// @Description Stores a PDF for use in tenders, bids and chat messages. Content is sniffed; only application/pdf is accepted.
// @Tags Attachments
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF document"
// @Success 201 {object} attachment.Attachment
// @Failure 400 {object} responses.ErrorResponse
// @Failure 502 {object} responses.ErrorResponse "Storage unavailable"
// @Router /v1/attachments [post]
func (h *AttachmentHandler) Upload(reqCtx *gin.Context) {
	cmp, ok := middlewares.CompanyFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeForbidden, "current user has no company profile", "d5a2e7c9-1b4f-4083-96ce-3a7f0b8d2e15")
		return
	}

	fileHeader, err := reqCtx.FormFile(formField)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		responses.HandleValidationError(reqCtx, err, "62f9b3d1-8c5e-4a27-b0d4-e1c6a9f3b784")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		responses.HandleValidationError(reqCtx, err, "0ab7d4e2-6f3c-4915-8d7a-5c2e9b1f6a38")
		return
	}
	defer file.Close()

	stored, err := h.service.Upload(reqCtx.Request.Context(), cmp.ID, fileHeader.Filename, file)
	if err != nil {
		status := "failed"
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			status = "rejected"
		}
		metrics.UploadsTotal.WithLabelValues(status).Inc()
		responses.HandleError(reqCtx, err, "failed to upload attachment")
		return
	}
	metrics.UploadsTotal.WithLabelValues("stored").Inc()
	metrics.UploadBytesTotal.Add(float64(stored.Size))
	responses.Created(reqCtx, stored)
}

// URL godoc
// @Summary Get attachment URL
// @Description Returns a fresh download URL. For S3 storage the URL is presigned and short lived.
// @Tags Attachments
// @Security BearerAuth
// @Produce json
// @Param key query string true "Attachment key"
// @Success 200 {object} URLResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 404 {object} responses.ErrorResponse
// @Router /v1/attachments/url [get]
func (h *AttachmentHandler) URL(reqCtx *gin.Context) {
	key := reqCtx.Query("key")
	url, err := h.service.URL(reqCtx.Request.Context(), key)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to resolve attachment URL")
		return
	}
	responses.OK(reqCtx, URLResponse{Key: key, URL: url})
}
