package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/core"
)

// MemoryCache is the in-memory short-term tier of the analysis cache. Safe
// for concurrent use; the janitor drives expiry sweeps.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*core.CacheEntry
	logger  *zap.Logger
}

// NewMemoryCache creates a new in-memory analysis cache.
func NewMemoryCache(logger *zap.Logger) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*core.CacheEntry),
		logger:  logger,
	}
}

// Get returns the cached classification for key. Expired entries are never
// returned.
func (c *MemoryCache) Get(ctx context.Context, key string) (*core.ClassificationResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.ExpiresAt) {
		return nil, false
	}

	result := entry.Result
	return &result, true
}

// Set stores an entry, replacing any previous one for the same key.
func (c *MemoryCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entry.Key] = entry
	return nil
}

// Cleanup removes expired entries. Idempotent and safe to run concurrently
// with Get/Set.
func (c *MemoryCache) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			expired++
		}
	}

	c.logger.Debug("cleaned up expired cache entries", zap.Int("expired_count", expired))
	return nil
}

// DeleteUser removes all entries for one user.
func (c *MemoryCache) DeleteUser(ctx context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int64
	for key, entry := range c.entries {
		if entry.UserID == userID {
			delete(c.entries, key)
			removed++
		}
	}
	return removed, nil
}
