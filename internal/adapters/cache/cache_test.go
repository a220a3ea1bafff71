package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/core"
)

func entry(key, userID, tier string, ttl time.Duration) *core.CacheEntry {
	now := time.Now()
	return &core.CacheEntry{
		Key:    key,
		UserID: userID,
		Result: core.ClassificationResult{
			IsJobRelated: true,
			Company:      "Acme",
			Status:       core.StatusApplied,
			Tier:         tier,
			AnalyzedAt:   now,
		},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestMemoryCacheHitAndExpiry(t *testing.T) {
	c := NewMemoryCache(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, entry("live", "u1", core.TierKeyword, time.Hour)))
	require.NoError(t, c.Set(ctx, entry("dead", "u1", core.TierKeyword, -time.Second)))

	result, ok := c.Get(ctx, "live")
	require.True(t, ok)
	assert.Equal(t, "Acme", result.Company)

	_, ok = c.Get(ctx, "dead")
	assert.False(t, ok, "entries past their TTL are never returned")

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestMemoryCacheReplace(t *testing.T) {
	c := NewMemoryCache(zap.NewNop())
	ctx := context.Background()

	first := entry("k", "u1", core.TierKeyword, time.Hour)
	require.NoError(t, c.Set(ctx, first))

	second := entry("k", "u1", core.TierLLM, time.Hour)
	second.Result.Company = "Globex"
	require.NoError(t, c.Set(ctx, second))

	result, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "Globex", result.Company)
}

func TestMemoryCacheCleanup(t *testing.T) {
	c := NewMemoryCache(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, entry("live", "u1", core.TierKeyword, time.Hour)))
	require.NoError(t, c.Set(ctx, entry("dead", "u1", core.TierKeyword, -time.Second)))

	require.NoError(t, c.Cleanup(ctx))

	c.mu.RLock()
	defer c.mu.RUnlock()
	assert.Len(t, c.entries, 1)
	assert.Contains(t, c.entries, "live")
}

func TestMemoryCacheDeleteUser(t *testing.T) {
	c := NewMemoryCache(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, entry("a", "u1", core.TierKeyword, time.Hour)))
	require.NoError(t, c.Set(ctx, entry("b", "u1", core.TierKeyword, time.Hour)))
	require.NoError(t, c.Set(ctx, entry("c", "u2", core.TierKeyword, time.Hour)))

	removed, err := c.DeleteUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, ok := c.Get(ctx, "c")
	assert.True(t, ok, "other users' entries survive")
}

func TestTieredCacheRouting(t *testing.T) {
	memory := NewMemoryCache(zap.NewNop())
	persisted := NewMemoryCache(zap.NewNop())
	tiered := NewTieredCache(memory, persisted)
	ctx := context.Background()

	require.NoError(t, tiered.Set(ctx, entry("kw", "u1", core.TierKeyword, time.Hour)))
	require.NoError(t, tiered.Set(ctx, entry("llm", "u1", core.TierLLM, time.Hour)))

	_, ok := memory.Get(ctx, "kw")
	assert.True(t, ok)
	_, ok = persisted.Get(ctx, "kw")
	assert.False(t, ok)

	_, ok = persisted.Get(ctx, "llm")
	assert.True(t, ok, "LLM results go to the persisted tier")
	_, ok = memory.Get(ctx, "llm")
	assert.False(t, ok)

	// The combined view serves both.
	_, ok = tiered.Get(ctx, "kw")
	assert.True(t, ok)
	_, ok = tiered.Get(ctx, "llm")
	assert.True(t, ok)
}

func TestTieredCacheDeleteUserSpansTiers(t *testing.T) {
	memory := NewMemoryCache(zap.NewNop())
	persisted := NewMemoryCache(zap.NewNop())
	tiered := NewTieredCache(memory, persisted)
	ctx := context.Background()

	require.NoError(t, tiered.Set(ctx, entry("kw", "u1", core.TierKeyword, time.Hour)))
	require.NoError(t, tiered.Set(ctx, entry("llm", "u1", core.TierLLM, time.Hour)))

	removed, err := tiered.DeleteUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestJanitorRunOnce(t *testing.T) {
	memory := NewMemoryCache(zap.NewNop())
	persisted := NewMemoryCache(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, memory.Set(ctx, entry("dead1", "u1", core.TierKeyword, -time.Second)))
	require.NoError(t, persisted.Set(ctx, entry("dead2", "u1", core.TierLLM, -time.Second)))
	require.NoError(t, persisted.Set(ctx, entry("live", "u1", core.TierLLM, time.Hour)))

	j := NewJanitor([]core.AnalysisCache{memory, persisted}, time.Hour, zap.NewNop())
	j.RunOnce(ctx)

	persisted.mu.RLock()
	defer persisted.mu.RUnlock()
	assert.Len(t, persisted.entries, 1)

	memory.mu.RLock()
	defer memory.mu.RUnlock()
	assert.Empty(t, memory.entries)
}

func TestJanitorStartStop(t *testing.T) {
	memory := NewMemoryCache(zap.NewNop())
	j := NewJanitor([]core.AnalysisCache{memory}, 10*time.Millisecond, zap.NewNop())
	j.Start()
	time.Sleep(30 * time.Millisecond)
	j.Stop() // must not hang or panic
}
