package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "http://localhost:8190/files/", zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	key := "attachments/cmp_a/att_1.pdf"
	require.NoError(t, s.Upload(ctx, key, strings.NewReader("%PDF-1.4"), 8, "application/pdf"))

	data, err := os.ReadFile(filepath.Join(dir, "attachments", "cmp_a", "att_1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	url, err := s.URL(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8190/files/attachments/cmp_a/att_1.pdf", url)

	_, err = s.URL(ctx, "attachments/cmp_a/missing.pdf")
	assert.Error(t, err)
	assert.NoError(t, s.Health(ctx))
}

func TestLocalStorageRequiresPath(t *testing.T) {
	_, err := NewLocalStorage("  ", "", zerolog.Nop())
	assert.Error(t, err)
}
