// Package docctx caches per-claim document context (raw text plus derived
// snippets) so downstream consumers can show evidence without re-reading
// the source bundle.
package docctx

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DocumentContext is the cached extraction context for one claim.
type DocumentContext struct {
	ClaimID  string    `json:"claim_id"`
	RawText  string    `json:"raw_text"`
	Snippets []string  `json:"snippets,omitempty"`
	CachedAt time.Time `json:"cached_at"`
}

// Cache holds document contexts with a TTL. Entries are advisory; a miss
// means the caller falls back to the stored claim record.
type Cache struct {
	cache *gocache.Cache
}

// NewCache creates a context cache with the given TTL and cleanup interval.
func NewCache(ttl, cleanupInterval time.Duration) *Cache {
	return &Cache{cache: gocache.New(ttl, cleanupInterval)}
}

func key(claimID string) string {
	return fmt.Sprintf("docctx:%s", claimID)
}

// Put stores the context for a claim.
func (c *Cache) Put(claimID, rawText string, snippets []string) {
	c.cache.SetDefault(key(claimID), &DocumentContext{
		ClaimID:  claimID,
		RawText:  rawText,
		Snippets: snippets,
		CachedAt: time.Now().UTC(),
	})
}

// Get retrieves the context for a claim. The returned value is a snapshot;
// later AddSnippet calls do not show through it.
func (c *Cache) Get(claimID string) (*DocumentContext, bool) {
	if val, found := c.cache.Get(key(claimID)); found {
		snapshot := *val.(*DocumentContext)
		return &snapshot, true
	}
	return nil, false
}

// AddSnippet appends an evidence snippet to an existing context. Missing
// contexts are created with an empty raw text. The cached value is replaced
// rather than appended to in place, so concurrent readers never see a
// Snippets slice change under them.
func (c *Cache) AddSnippet(claimID, snippet string) {
	next := &DocumentContext{ClaimID: claimID, CachedAt: time.Now().UTC()}
	if cur, found := c.Get(claimID); found {
		*next = *cur
		next.Snippets = append(append([]string(nil), cur.Snippets...), snippet)
	} else {
		next.Snippets = []string{snippet}
	}
	c.cache.SetDefault(key(claimID), next)
}

// Delete drops the context for a claim.
func (c *Cache) Delete(claimID string) {
	c.cache.Delete(key(claimID))
}

// Len returns the number of cached contexts.
func (c *Cache) Len() int {
	return c.cache.ItemCount()
}
