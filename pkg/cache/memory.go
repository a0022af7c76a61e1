package cache

import "sync"

// MemoryCache is an in-memory Cache used in tests. Get invokes done
// synchronously, which exercises the loader's tolerance for completions
// arriving before the Get call returns.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[Key][]byte

	// Hits, Misses and Puts count operations for test assertions.
	Hits   int
	Misses int
	Puts   int
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[Key][]byte),
	}
}

// Get invokes done synchronously with the stored bytes or nil.
func (c *MemoryCache) Get(key Key, done func(value []byte)) {
	c.mu.Lock()
	value, ok := c.entries[key]
	if ok {
		c.Hits++
	} else {
		c.Misses++
	}
	c.mu.Unlock()

	if !ok {
		done(nil)
		return
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	done(cp)
}

// Put stores an entry.
func (c *MemoryCache) Put(key Key, value []byte) {
	cp := make([]byte, len(value))
	copy(cp, value)

	c.mu.Lock()
	c.entries[key] = cp
	c.Puts++
	c.mu.Unlock()
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close is a no-op.
func (c *MemoryCache) Close() error {
	return nil
}
