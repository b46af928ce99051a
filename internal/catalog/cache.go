package catalog

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/JonMunkholm/watchlist/internal/core"
)

// Default cache lifetimes.
const (
	DefaultCacheTTL   = 30 * time.Minute
	DefaultCachePurge = 10 * time.Minute
)

// CachedSearcher memoizes catalog searches by normalized title, year and
// media kind. Errors are never cached.
type CachedSearcher struct {
	next  core.CatalogSearcher
	cache *cache.Cache
}

var _ core.CatalogSearcher = (*CachedSearcher)(nil)

// NewCachedSearcher wraps next with a TTL cache. Non-positive durations
// fall back to the defaults.
func NewCachedSearcher(next core.CatalogSearcher, ttl, purge time.Duration) *CachedSearcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if purge <= 0 {
		purge = DefaultCachePurge
	}
	return &CachedSearcher{
		next:  next,
		cache: cache.New(ttl, purge),
	}
}

// Search returns cached results when present, otherwise asks the wrapped
// searcher and stores a successful answer.
func (c *CachedSearcher) Search(ctx context.Context, q core.CatalogQuery) ([]core.CatalogResult, error) {
	key := cacheKey(q)
	if v, ok := c.cache.Get(key); ok {
		return cloneResults(v.([]core.CatalogResult)), nil
	}

	results, err := c.next.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, cloneResults(results))
	return results, nil
}

// Len returns the number of cached searches, expired ones included until
// the next purge.
func (c *CachedSearcher) Len() int {
	return c.cache.ItemCount()
}

// Flush drops every cached search.
func (c *CachedSearcher) Flush() {
	c.cache.Flush()
}

func cacheKey(q core.CatalogQuery) string {
	year := 0
	if q.Year != nil {
		year = *q.Year
	}
	return fmt.Sprintf("%s|%d|%s", core.NormalizeTitle(q.Title), year, q.MediaKind)
}

func cloneResults(in []core.CatalogResult) []core.CatalogResult {
	out := slices.Clone(in)
	for i := range out {
		if out[i].Year != nil {
			y := *out[i].Year
			out[i].Year = &y
		}
	}
	if out == nil {
		out = []core.CatalogResult{}
	}
	return out
}
