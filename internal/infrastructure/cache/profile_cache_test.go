package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender-server/internal/domain/company"
)

func TestProfileCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewProfileCache(2)
	require.NoError(t, err)

	c.Add(company.Profile{ID: "cmp_a", Name: "A"})
	c.Add(company.Profile{ID: "cmp_b", Name: "B"})
	_, ok := c.Get("cmp_a")
	require.True(t, ok)
	c.Add(company.Profile{ID: "cmp_c", Name: "C"})

	_, ok = c.Get("cmp_b")
	assert.False(t, ok)
	got, ok := c.Get("cmp_a")
	assert.True(t, ok)
	assert.Equal(t, "A", got.Name)
	assert.Equal(t, 2, c.Len())
}

func TestProfileCacheRemove(t *testing.T) {
	c, err := NewProfileCache(0)
	require.NoError(t, err)

	c.Add(company.Profile{ID: "cmp_a"})
	c.Remove("cmp_a")
	_, ok := c.Get("cmp_a")
	assert.False(t, ok)
}

func TestBuildUniversalOptions(t *testing.T) {
	opts, err := buildUniversalOptions("redis://:secret@localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:6379"}, opts.Addrs)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildUniversalOptions("10.0.0.1:6379, 10.0.0.2:6379")
	require.NoError(t, err)
	assert.Len(t, opts.Addrs, 2)

	_, err = buildUniversalOptions(" , ")
	assert.Error(t, err)
}
