package attachment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"tender-server/internal/utils/idgen"
	"tender-server/internal/utils/platformerrors"
)

const (
	PDFContentType = "application/pdf"
	keyPrefix      = "attachments/"
)

// Attachment is a stored PDF.
type Attachment struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Storage is an object store for attachment bytes.
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	URL(ctx context.Context, key string) (string, error)
	Health(ctx context.Context) error
}

// Service validates and stores uploads.
type Service struct {
	storage  Storage
	maxBytes int64
	log      zerolog.Logger
}

func NewService(storage Storage, maxBytes int64, log zerolog.Logger) *Service {
	return &Service{
		storage:  storage,
		maxBytes: maxBytes,
		log:      log.With().Str("component", "attachment-service").Logger(),
	}
}

// Upload reads body, accepts it only when the content sniffs as PDF and stores it under
// the uploading company's prefix.
func (s *Service) Upload(ctx context.Context, companyID, filename string, body io.Reader) (*Attachment, error) {
	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "failed to read upload", err, "")
	}
	if len(data) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "upload is empty", nil, "")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("upload exceeds %d bytes", s.maxBytes), nil, "")
	}

	detected := mimetype.Detect(data)
	if !detected.Is(PDFContentType) {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "only PDF attachments are accepted", nil, "", map[string]any{"detected": detected.String()})
	}

	id := idgen.New(idgen.PrefixAttachment)
	key := keyPrefix + companyID + "/" + id + ".pdf"
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), PDFContentType); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "failed to store attachment", err, "")
	}
	url, err := s.storage.URL(ctx, key)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "failed to sign attachment URL", err, "")
	}

	s.log.Info().Str("key", key).Int("bytes", len(data)).Msg("attachment stored")
	return &Attachment{
		ID:          id,
		Key:         key,
		Filename:    cleanFilename(filename),
		ContentType: PDFContentType,
		Size:        int64(len(data)),
		URL:         url,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// URL returns a fresh download URL for key.
func (s *Service) URL(ctx context.Context, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, err.Error(), nil, "")
	}
	url, err := s.storage.URL(ctx, key)
	if err != nil {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "attachment not found", err, "")
	}
	return url, nil
}

// Health reports whether the storage backend is reachable.
func (s *Service) Health(ctx context.Context) error {
	return s.storage.Health(ctx)
}

// ValidateKey accepts only keys produced by Upload.
func ValidateKey(key string) error {
	if !strings.HasPrefix(key, keyPrefix) || strings.Contains(key, "..") || path.Clean(key) != key {
		return fmt.Errorf("invalid attachment key")
	}
	if path.Ext(key) != ".pdf" {
		return fmt.Errorf("invalid attachment key")
	}
	return nil
}

func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
