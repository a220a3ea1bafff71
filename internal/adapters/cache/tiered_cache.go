package cache

import (
	"context"

	"github.com/applizz/jobmail/internal/core"
)

// TieredCache combines the short-lived in-memory tier with a persisted tier
// reserved for LLM results, so repeated scans never re-pay provider cost.
type TieredCache struct {
	memory    core.AnalysisCache
	persisted core.AnalysisCache
}

// NewTieredCache creates a tiered cache. persisted may be nil, in which case
// everything lives in memory.
func NewTieredCache(memory, persisted core.AnalysisCache) *TieredCache {
	return &TieredCache{memory: memory, persisted: persisted}
}

// Get checks the memory tier first, then the persisted tier.
func (c *TieredCache) Get(ctx context.Context, key string) (*core.ClassificationResult, bool) {
	if result, ok := c.memory.Get(ctx, key); ok {
		return result, ok
	}
	if c.persisted != nil {
		return c.persisted.Get(ctx, key)
	}
	return nil, false
}

// Set routes LLM results to the persisted tier and everything else to the
// memory tier.
func (c *TieredCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	if c.persisted != nil && entry.Result.Tier == core.TierLLM {
		return c.persisted.Set(ctx, entry)
	}
	return c.memory.Set(ctx, entry)
}

// Cleanup sweeps both tiers.
func (c *TieredCache) Cleanup(ctx context.Context) error {
	if err := c.memory.Cleanup(ctx); err != nil {
		return err
	}
	if c.persisted != nil {
		return c.persisted.Cleanup(ctx)
	}
	return nil
}

// DeleteUser wipes one user's entries from both tiers.
func (c *TieredCache) DeleteUser(ctx context.Context, userID string) (int64, error) {
	removed, err := c.memory.DeleteUser(ctx, userID)
	if err != nil {
		return removed, err
	}
	if c.persisted != nil {
		more, err := c.persisted.DeleteUser(ctx, userID)
		removed += more
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}
