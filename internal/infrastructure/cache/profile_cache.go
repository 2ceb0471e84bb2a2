package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"tender-server/internal/domain/company"
)

// ProfileCache is a bounded LRU of company display metadata.
type ProfileCache struct {
	cache *lru.Cache
}

var _ company.ProfileCache = (*ProfileCache)(nil)

func NewProfileCache(size int) (*ProfileCache, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create profile cache: %w", err)
	}
	return &ProfileCache{cache: c}, nil
}

func (c *ProfileCache) Get(id string) (company.Profile, bool) {
	v, ok := c.cache.Get(id)
	if !ok {
		return company.Profile{}, false
	}
	profile, ok := v.(company.Profile)
	return profile, ok
}

func (c *ProfileCache) Add(profile company.Profile) {
	c.cache.Add(profile.ID, profile)
}

func (c *ProfileCache) Remove(id string) {
	c.cache.Remove(id)
}

func (c *ProfileCache) Len() int {
	return c.cache.Len()
}
