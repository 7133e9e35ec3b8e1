package cache

import (
	"sort"
	"sync"
	"time"
)

// AliasRecord is one pinned binding: a session-scoped name resolved to a
// payload by explicit user action.
type AliasRecord struct {
	Alias    string
	Data     any
	Origin   string
	LoadedAt time.Time
}

// AliasCache is the pinned tier. Entries live for the whole session: no
// TTL, no LRU, no staleness check. Reload is an overwriting Set; removal
// is always explicit.
type AliasCache struct {
	mu      sync.Mutex
	entries map[string]*AliasRecord
	stats   Stats
}

// NewAliasCache creates an empty alias cache.
func NewAliasCache() *AliasCache {
	return &AliasCache{entries: make(map[string]*AliasRecord)}
}

// Set binds alias to data, unconditionally overwriting any prior entry.
func (c *AliasCache) Set(alias string, data any, origin string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[alias] = &AliasRecord{
		Alias:    alias,
		Data:     data,
		Origin:   origin,
		LoadedAt: time.Now(),
	}
}

// Get returns the data bound to alias.
func (c *AliasCache) Get(alias string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.entries[alias]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return rec.Data, true
}

// Record returns the full alias record, including origin and load time.
func (c *AliasCache) Record(alias string) (*AliasRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.entries[alias]
	if !ok {
		return nil, false
	}
	cp := *rec
	return &cp, true
}

// Has reports whether alias is bound without counting a hit or miss.
func (c *AliasCache) Has(alias string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[alias]
	return ok
}

// Remove unbinds a single alias.
func (c *AliasCache) Remove(alias string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, alias)
}

// List returns all bound alias names, sorted.
func (c *AliasCache) List() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes every alias matching pattern (empty pattern removes all)
// and returns the number removed. Clearing everything also resets the
// counters.
func (c *AliasCache) Clear(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for name := range c.entries {
		if globMatch(pattern, name) {
			delete(c.entries, name)
			removed++
		}
	}
	if pattern == "" {
		c.stats = Stats{}
	}
	return removed
}

// Stats returns a snapshot of the tier's counters.
func (c *AliasCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.entries)
	return s
}

// Len returns the number of bound aliases.
func (c *AliasCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
