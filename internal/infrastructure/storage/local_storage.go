package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"tender-server/internal/domain/attachment"
)

// LocalStorage keeps attachments on the local filesystem, served under baseURL.
type LocalStorage struct {
	basePath string
	baseURL  string
	log      zerolog.Logger
}

var _ attachment.Storage = (*LocalStorage)(nil)

func NewLocalStorage(basePath, baseURL string, log zerolog.Logger) (*LocalStorage, error) {
	logger := log.With().Str("component", "local-storage").Logger()
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, fmt.Errorf("local storage path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}

	logger.Info().Str("path", basePath).Str("base_url", baseURL).Msg("local storage initialized")
	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		log:      logger,
	}, nil
}

// Root is the directory served as static files.
func (l *LocalStorage) Root() string {
	return l.basePath
}

func (l *LocalStorage) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, body)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	l.log.Debug().Str("key", key).Int64("bytes", written).Msg("file stored")
	return nil
}

// URL returns the public URL of key. Local files need no signing.
func (l *LocalStorage) URL(_ context.Context, key string) (string, error) {
	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))
	if _, err := os.Stat(fullPath); err != nil {
		return "", fmt.Errorf("file not found: %s", key)
	}
	if l.baseURL == "" {
		return "file://" + fullPath, nil
	}
	return l.baseURL + "/" + filepath.ToSlash(key), nil
}

// Health checks that the storage directory is writable.
func (l *LocalStorage) Health(context.Context) error {
	marker := filepath.Join(l.basePath, ".health_check")
	if err := os.WriteFile(marker, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	_ = os.Remove(marker)
	return nil
}
