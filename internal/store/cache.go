package store

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"pharmaflow/internal/models"
)

const filterOptionsKey = "filter-options"

// CachedSource memoizes fetches per filter. Any insert flushes everything.
type CachedSource struct {
	Source
	cache  *cache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

func NewCachedSource(src Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		Source: src,
		cache:  cache.New(ttl, 2*ttl),
	}
}

func (c *CachedSource) Kind() string { return c.Source.Kind() + "+cache" }

func (c *CachedSource) Fetch(ctx context.Context, filter models.Filter) ([]models.RawRecord, error) {
	key := "fetch:" + filter.CacheKey()
	if cached, found := c.cache.Get(key); found {
		c.hits.Add(1)
		return slices.Clone(cached.([]models.RawRecord)), nil
	}
	c.misses.Add(1)

	records, err := c.Source.Fetch(ctx, filter)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, slices.Clone(records))
	return records, nil
}

func (c *CachedSource) FilterOptions(ctx context.Context) (models.FilterOptions, error) {
	if cached, found := c.cache.Get(filterOptionsKey); found {
		c.hits.Add(1)
		return cached.(models.FilterOptions), nil
	}
	c.misses.Add(1)

	opts, err := c.Source.FilterOptions(ctx)
	if err != nil {
		return models.FilterOptions{}, err
	}
	c.cache.SetDefault(filterOptionsKey, opts)
	return opts, nil
}

func (c *CachedSource) Insert(ctx context.Context, records []models.RawRecord) (int, error) {
	n, err := c.Source.Insert(ctx, records)
	if n > 0 {
		c.Invalidate()
	}
	return n, err
}

// Invalidate drops every cached entry, e.g. after the backing file reloads.
func (c *CachedSource) Invalidate() {
	c.cache.Flush()
}

func (c *CachedSource) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.cache.ItemCount(),
	}
}
