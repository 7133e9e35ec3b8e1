package cache

import (
	"container/list"
	"os"
	"sync"
	"time"
)

// DefaultResourceCapacity bounds the system tier when no capacity is given.
const DefaultResourceCapacity = 100

// StatFunc probes a file's modification time. It is the resource cache's
// only view of the filesystem; any error means "treat the file as gone".
type StatFunc func(path string) (time.Time, error)

func osStat(path string) (time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// resourceEntry is one cached resource with its LRU bookkeeping and the
// source file identity used for mtime invalidation.
type resourceEntry struct {
	key         string
	value       any
	cachedAt    time.Time
	accessedAt  time.Time
	hitCount    int64
	sourcePath  string
	sourceMtime time.Time // zero when the entry has no backing file
}

// ResourceCache is the auto-managed system tier: strict LRU with a fixed
// capacity, plus mtime re-validation against each entry's backing file on
// every read. A newer or missing file silently turns the read into a miss.
type ResourceCache struct {
	mu        sync.Mutex
	items     map[string]*list.Element
	evictList *list.List
	capacity  int
	statFn    StatFunc
	stats     Stats
}

// NewResourceCache creates a resource cache with the given capacity.
// Non-positive capacities fall back to DefaultResourceCapacity.
func NewResourceCache(capacity int) *ResourceCache {
	if capacity <= 0 {
		capacity = DefaultResourceCapacity
	}
	return &ResourceCache{
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		capacity:  capacity,
		statFn:    osStat,
	}
}

// Get returns the cached value for key. When the entry has a backing file,
// its mtime is re-validated first: a newer or unreadable file evicts the
// entry, counts an invalidation, and reports a miss. A valid hit bumps the
// entry's hit count and promotes it to most recently used.
func (c *ResourceCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	e := el.Value.(*resourceEntry)
	if e.sourcePath != "" {
		mtime, err := c.statFn(e.sourcePath)
		if err != nil || mtime.After(e.sourceMtime) {
			// Stale or deleted source: drop the entry and miss.
			c.removeLocked(el)
			c.stats.Invalidations++
			c.stats.Misses++
			return nil, false
		}
	}

	e.accessedAt = time.Now()
	e.hitCount++
	c.evictList.MoveToFront(el)
	c.stats.Hits++
	return e.value, true
}

// Set stores value under key, recording the backing file's current mtime
// when sourcePath is non-empty. The entry is inserted at the
// most-recently-used position; if the cache is over capacity the least
// recently used entry is evicted.
func (c *ResourceCache) Set(key string, value any, sourcePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var mtime time.Time
	if sourcePath != "" {
		if m, err := c.statFn(sourcePath); err == nil {
			mtime = m
		}
	}

	if el, ok := c.items[key]; ok {
		e := el.Value.(*resourceEntry)
		e.value = value
		e.cachedAt = now
		e.accessedAt = now
		e.sourcePath = sourcePath
		e.sourceMtime = mtime
		c.evictList.MoveToFront(el)
		return
	}

	e := &resourceEntry{
		key:         key,
		value:       value,
		cachedAt:    now,
		accessedAt:  now,
		sourcePath:  sourcePath,
		sourceMtime: mtime,
	}
	c.items[key] = c.evictList.PushFront(e)

	for c.evictList.Len() > c.capacity {
		c.evictOldestLocked()
	}
}

// Has reports whether key is present without touching access order,
// counters, or the backing file.
func (c *ResourceCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Invalidate removes a single entry without counting an invalidation;
// callers use it for explicit removal, not staleness.
func (c *ResourceCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeLocked(el)
	}
}

// Clear removes every entry matching pattern (empty pattern removes all)
// and returns the number removed. Clearing everything resets the counters.
func (c *ResourceCache) Clear(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, el := range c.items {
		if globMatch(pattern, key) {
			c.removeLocked(el)
			removed++
		}
	}
	if pattern == "" {
		c.stats = Stats{}
	}
	return removed
}

// Stats returns a snapshot of the tier's counters plus size and capacity.
func (c *ResourceCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.items)
	s.Capacity = c.capacity
	return s
}

// Len returns the number of cached entries.
func (c *ResourceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// setStatFunc replaces the filesystem probe. Test hook.
func (c *ResourceCache) setStatFunc(fn StatFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statFn = fn
}

func (c *ResourceCache) removeLocked(el *list.Element) {
	e := el.Value.(*resourceEntry)
	delete(c.items, e.key)
	c.evictList.Remove(el)
}

func (c *ResourceCache) evictOldestLocked() {
	el := c.evictList.Back()
	if el == nil {
		return
	}
	c.removeLocked(el)
	c.stats.Evictions++
}
