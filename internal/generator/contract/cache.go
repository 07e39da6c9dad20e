package contract

import (
	"sync"
	"sync/atomic"

	"github.com/protoverge/protoverge/internal/generator/schema"
)

// Key identifies one field's contract within a revision set
type Key struct {
	Revision string
	Message  string
	Number   int32
}

// Cache is a thread-safe memo of derived contracts. Contracts are pure
// functions of their field, so concurrent redundant derivation is harmless;
// the cache only avoids wasted work when the same field is consulted from
// multiple workers.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]Contract
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewCache creates an empty contract cache
func NewCache() *Cache {
	return &Cache{entries: make(map[Key]Contract)}
}

// Derive returns the contract for the field, deriving and storing it on
// first use.
func (c *Cache) Derive(revision, message string, f *schema.Field) Contract {
	key := Key{Revision: revision, Message: message, Number: f.Number}

	c.mu.RLock()
	ct, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return ct
	}

	ct = Derive(f)
	c.misses.Add(1)

	c.mu.Lock()
	c.entries[key] = ct
	c.mu.Unlock()
	return ct
}

// Size returns the number of cached contracts
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Reset drops all cached contracts and counters
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[Key]Contract)
	c.mu.Unlock()
	c.hits.Store(0)
	c.misses.Store(0)
}
