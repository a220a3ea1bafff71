package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/adapters/cache"
	"github.com/applizz/jobmail/internal/adapters/store"
	"github.com/applizz/jobmail/internal/core"
)

type suggestionFixture struct {
	svc   *core.SuggestionService
	store *store.MemoryStore
	cache *cache.MemoryCache
}

func newSuggestionFixture(t *testing.T) *suggestionFixture {
	t.Helper()
	mem := store.NewMemoryStore()
	memCache := cache.NewMemoryCache(zap.NewNop())
	svc := core.NewSuggestionService(mem, mem, mem, memCache, zap.NewNop())
	return &suggestionFixture{svc: svc, store: mem, cache: memCache}
}

func seedBatch(t *testing.T, mem *store.MemoryStore, userID string, suggestions ...core.Suggestion) *core.SuggestionBatch {
	t.Helper()
	batch, err := mem.Append(context.Background(), userID, suggestions)
	require.NoError(t, err)
	return batch
}

func TestListPendingEmpty(t *testing.T) {
	f := newSuggestionFixture(t)
	pending, err := f.svc.ListPending(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAcceptNewSuggestion(t *testing.T) {
	f := newSuggestionFixture(t)
	observed := time.Now().Add(-24 * time.Hour)
	seedBatch(t, f.store, "u1", core.Suggestion{
		ID: "s1", Kind: core.SuggestionNew,
		Company: "Acme", Position: "Engineer",
		NewStatus: core.StatusApplied, ObservedAt: observed,
		JobURL: "https://acme.example/jobs/1",
	})

	require.NoError(t, f.svc.Accept(context.Background(), "u1", "s1"))

	records, err := f.store.FindByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Acme", records[0].Company)
	assert.Equal(t, "Engineer", records[0].Position)
	assert.Equal(t, core.StatusApplied, records[0].Status)
	assert.Equal(t, observed, records[0].DateApplied)
	assert.Equal(t, "https://acme.example/jobs/1", records[0].URL)

	pending, err := f.svc.ListPending(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAcceptNewSuggestionBlanksUnknownPosition(t *testing.T) {
	f := newSuggestionFixture(t)
	seedBatch(t, f.store, "u1", core.Suggestion{
		ID: "s1", Kind: core.SuggestionNew,
		Company: "Acme", Position: core.UnknownPosition,
		NewStatus: core.StatusApplied, ObservedAt: time.Now(),
	})

	require.NoError(t, f.svc.Accept(context.Background(), "u1", "s1"))

	records, err := f.store.FindByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Position, "placeholder positions are stored blank")
}

func TestAcceptUpdateSuggestion(t *testing.T) {
	f := newSuggestionFixture(t)
	require.NoError(t, f.store.Insert(context.Background(), &core.ApplicationRecord{
		ID: "app1", UserID: "u1", Company: "Acme", Position: "Engineer", Status: core.StatusApplied,
	}))
	seedBatch(t, f.store, "u1", core.Suggestion{
		ID: "s1", Kind: core.SuggestionUpdate, ApplicationID: "app1",
		CurrentStatus: core.StatusApplied, NewStatus: core.StatusInterview,
		ObservedAt: time.Now(),
	})

	require.NoError(t, f.svc.Accept(context.Background(), "u1", "s1"))

	records, err := f.store.FindByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, core.StatusInterview, records[0].Status)
}

func TestAcceptUnknownSuggestion(t *testing.T) {
	f := newSuggestionFixture(t)
	seedBatch(t, f.store, "u1", core.Suggestion{ID: "s1", Kind: core.SuggestionNew, Company: "Acme", NewStatus: core.StatusApplied})

	err := f.svc.Accept(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRejectLeavesStoreUntouched(t *testing.T) {
	f := newSuggestionFixture(t)
	seedBatch(t, f.store, "u1",
		core.Suggestion{ID: "s1", Kind: core.SuggestionNew, Company: "Acme", NewStatus: core.StatusApplied},
		core.Suggestion{ID: "s2", Kind: core.SuggestionNew, Company: "Globex", NewStatus: core.StatusApplied},
	)

	require.NoError(t, f.svc.Reject(context.Background(), "u1", "s1"))

	records, err := f.store.FindByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, records)

	pending, err := f.svc.ListPending(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "s2", pending[0].ID)
}

func TestAcceptAll(t *testing.T) {
	f := newSuggestionFixture(t)
	require.NoError(t, f.store.Insert(context.Background(), &core.ApplicationRecord{
		ID: "app1", UserID: "u1", Company: "Initech", Position: "Analyst", Status: core.StatusInterview,
	}))
	seedBatch(t, f.store, "u1",
		core.Suggestion{ID: "s1", Kind: core.SuggestionNew, Company: "Acme", Position: "Engineer", NewStatus: core.StatusApplied, ObservedAt: time.Now()},
		core.Suggestion{ID: "s2", Kind: core.SuggestionNew, Company: "Globex", Position: "Designer", NewStatus: core.StatusApplied, ObservedAt: time.Now()},
		core.Suggestion{ID: "s3", Kind: core.SuggestionUpdate, ApplicationID: "app1", NewStatus: core.StatusOffer, ObservedAt: time.Now()},
	)

	applied, err := f.svc.AcceptAll(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, applied)

	records, err := f.store.FindByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, records, 3)

	batch, err := f.store.OpenBatch(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, batch, "accept-all marks the batch processed")
}

func TestAcceptAllEmpty(t *testing.T) {
	f := newSuggestionFixture(t)
	applied, err := f.svc.AcceptAll(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestClearAll(t *testing.T) {
	f := newSuggestionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Insert(ctx, &core.ApplicationRecord{ID: "app1", UserID: "u1", Company: "Acme", Status: core.StatusApplied}))
	seedBatch(t, f.store, "u1", core.Suggestion{ID: "s1", Kind: core.SuggestionNew, Company: "Acme", NewStatus: core.StatusApplied})
	require.NoError(t, f.store.SetWatermark(ctx, "u1", time.Now()))
	require.NoError(t, f.cache.Set(ctx, &core.CacheEntry{
		Key: "k1", UserID: "u1",
		Result:    core.ClassificationResult{IsJobRelated: true},
		CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, f.svc.ClearAll(ctx, "u1"))

	records, err := f.store.FindByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, records)

	batch, err := f.store.OpenBatch(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, batch)

	mark, err := f.store.Watermark(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, mark.IsZero())

	_, ok := f.cache.Get(ctx, "k1")
	assert.False(t, ok)
}
