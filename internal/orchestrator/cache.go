package orchestrator

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Kurasuai-Inc/doc-search/pkg/types"
)

// cacheEntry is a cached response with its expiration time
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// responseCache memoizes responses for repeated identical searches
type responseCache struct {
	mu    sync.Mutex
	cache *lru.Cache[[32]byte, *cacheEntry]
	ttl   time.Duration
	now   func() time.Time
}

func newResponseCache(size int, ttl time.Duration) (*responseCache, error) {
	c, err := lru.New[[32]byte, *cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &responseCache{cache: c, ttl: ttl, now: time.Now}, nil
}

func (c *responseCache) get(key [32]byte) (*Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.cache.Remove(key)
		return nil, false
	}
	return copyResponse(entry.response), true
}

func (c *responseCache) put(key [32]byte, resp *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, &cacheEntry{
		response:  copyResponse(resp),
		expiresAt: c.now().Add(c.ttl),
	})
}

func (c *responseCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}

func (c *responseCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// copyResponse deep-copies the slices; RankedResult holds only values
func copyResponse(src *Response) *Response {
	dst := *src
	dst.Results = append([]types.RankedResult(nil), src.Results...)
	dst.Warnings = append([]string(nil), src.Warnings...)
	return &dst
}

// computeQueryHash identifies a search by everything that affects its results
func computeQueryHash(query, root string, opts types.SearchOptions, semantic bool) [32]byte {
	var data strings.Builder
	fmt.Fprintf(&data, "%q|%q|%t|%t|%d|%d|%t|", query, root, opts.CaseSensitive, opts.UseRegex, opts.MaxResults, opts.ContextLines, semantic)
	data.WriteString(strings.Join(opts.FileTypes, ","))
	return sha256.Sum256([]byte(data.String()))
}
