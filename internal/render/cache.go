package render

import "sync"

// responseCache memoizes book-data GET responses across navigations. The
// same book document is requested once per page view; without this cache the
// backend would see one identical fetch per captured frame. Scoped to one
// session, therefore one export job.
type responseCache struct {
	mu      sync.Mutex
	entries map[string]cachedResponse
	hits    int
	misses  int
}

type cachedResponse struct {
	contentType string
	body        string
}

func newResponseCache() *responseCache {
	return &responseCache{entries: make(map[string]cachedResponse)}
}

func (c *responseCache) get(key string) (cachedResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return entry, ok
}

func (c *responseCache) put(key string, entry cachedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
}

func (c *responseCache) stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
