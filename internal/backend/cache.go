package backend

import "sync"

// AuthorCache is a single shared slot holding the last successfully fetched
// author directory. It is an explicit, injectable object rather than a
// package-level variable so concurrent consumers can share one instance and
// tests can own their own.
//
// Invariant: any author-mutating operation must call Invalidate, otherwise
// deleted authors keep showing up until the process restarts.
type AuthorCache struct {
	mu      sync.RWMutex
	authors map[string]string
	valid   bool
}

// NewAuthorCache returns an empty cache.
func NewAuthorCache() *AuthorCache {
	return &AuthorCache{}
}

// Get returns the cached directory and whether the slot is populated. The
// returned map is a copy; callers may mutate it freely.
func (c *AuthorCache) Get() (map[string]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid {
		return nil, false
	}
	out := make(map[string]string, len(c.authors))
	for slug, name := range c.authors {
		out[slug] = name
	}
	return out, true
}

// Set overwrites the slot with a fresh directory.
func (c *AuthorCache) Set(authors map[string]string) {
	copied := make(map[string]string, len(authors))
	for slug, name := range authors {
		copied[slug] = name
	}
	c.mu.Lock()
	c.authors = copied
	c.valid = true
	c.mu.Unlock()
}

// Invalidate empties the slot so the next read is forced to refetch.
func (c *AuthorCache) Invalidate() {
	c.mu.Lock()
	c.authors = nil
	c.valid = false
	c.mu.Unlock()
}
