// Package keycache provides an in-process TTL cache for unwrapped workspace
// DEKs. Caching bounds the read amplification of field decryption: without it
// every request would fetch and unwrap the workspace key row again.
//
// The cache stores copies of key material and returns copies, so callers can
// zero their buffers without corrupting cached state. Entries are never served
// past their TTL; an expired entry is treated as a miss and overwritten by the
// next Set.
package keycache

import (
	"sync"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
)

type entry struct {
	dek       []byte
	expiresAt time.Time
}

// Cache is a TTL map of workspace ID to plaintext DEK. Safe for concurrent
// use from multiple goroutines.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uuid.UUID]entry
}

// New creates a Cache with the given TTL using the wall clock.
// A TTL of zero or less disables caching: Get always misses and Set is a no-op.
func New(ttl time.Duration) *Cache {
	return NewWithClock(ttl, time.Now)
}

// NewWithClock creates a Cache with an injected clock. Tests use this to
// drive expiry deterministically.
func NewWithClock(ttl time.Duration, now func() time.Time) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[uuid.UUID]entry),
	}
}

// Get returns a copy of the cached DEK for the workspace, or false when the
// entry is absent or has expired.
func (c *Cache) Get(workspaceID uuid.UUID) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[workspaceID]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}

	dek := make([]byte, len(e.dek))
	copy(dek, e.dek)
	return dek, true
}

// Set stores a copy of the DEK for the workspace with a fresh TTL. An existing
// entry's buffer is zeroed before being replaced.
func (c *Cache) Set(workspaceID uuid.UUID, dek []byte) {
	if c.ttl <= 0 {
		return
	}

	stored := make([]byte, len(dek))
	copy(stored, dek)

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[workspaceID]; ok {
		cryptoDomain.Zero(old.dek)
	}
	c.entries[workspaceID] = entry{
		dek:       stored,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Delete removes the workspace's entry, zeroing its key material.
func (c *Cache) Delete(workspaceID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[workspaceID]; ok {
		cryptoDomain.Zero(e.dek)
		delete(c.entries, workspaceID)
	}
}

// Flush removes every entry, zeroing all key material. Called on shutdown so
// plaintext DEKs do not outlive the process's useful life in memory.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, e := range c.entries {
		cryptoDomain.Zero(e.dek)
		delete(c.entries, id)
	}
}

// Len returns the number of entries, including any not yet evicted after
// expiry.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
