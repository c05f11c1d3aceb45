package repository

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/outbreak-reporting/report-client/internal/domain"
)

// pageCache holds recently listed report pages for a single session. Pages
// are only served to the token they were fetched under; a missing or changed
// token empties the cache. A nil *pageCache is a disabled cache.
type pageCache struct {
	mu    sync.Mutex
	owner string
	lru   *expirable.LRU[string, []domain.ReportSummary]
}

func newPageCache(cfg domain.CacheConfig) *pageCache {
	if !cfg.Enabled || cfg.MaxItems <= 0 || cfg.TTL <= 0 {
		return nil
	}
	return &pageCache{
		lru: expirable.NewLRU[string, []domain.ReportSummary](cfg.MaxItems, nil, cfg.TTL),
	}
}

func pageKey(offset, limit int) string {
	return fmt.Sprintf("%d:%d", offset, limit)
}

// fingerprint identifies a token without keeping it as a cache key
func fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// claim makes token the owner of the cache, dropping pages held for any other
// session. It reports whether cached pages may be served. Must hold c.mu.
func (c *pageCache) claim(token string) bool {
	owner := fingerprint(token)
	if owner == "" || owner != c.owner {
		c.lru.Purge()
		c.owner = owner
	}
	return owner != ""
}

func (c *pageCache) get(token, key string) ([]domain.ReportSummary, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.claim(token) {
		return nil, false
	}
	page, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	out := make([]domain.ReportSummary, len(page))
	copy(out, page)
	return out, true
}

func (c *pageCache) add(token, key string, page []domain.ReportSummary) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.claim(token) {
		return
	}
	stored := make([]domain.ReportSummary, len(page))
	copy(stored, page)
	c.lru.Add(key, stored)
}

func (c *pageCache) purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lru.Purge()
	c.mu.Unlock()
}

func (c *pageCache) len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
