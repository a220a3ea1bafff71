package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applizz/jobmail/internal/core"
)

func TestApplicationRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec := &core.ApplicationRecord{
		UserID: "u1", Company: "Acme", Position: "Engineer",
		Status: core.StatusApplied, DateApplied: time.Now(),
	}
	require.NoError(t, s.Insert(ctx, rec))
	assert.NotEmpty(t, rec.ID, "insert assigns an ID when missing")

	records, err := s.FindByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, s.UpdateStatus(ctx, rec.ID, core.StatusOffer))
	records, _ = s.FindByUser(ctx, "u1")
	assert.Equal(t, core.StatusOffer, records[0].Status)

	assert.ErrorIs(t, s.UpdateStatus(ctx, "missing", core.StatusOffer), core.ErrNotFound)

	n, err := s.DeleteByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCredentialsAndWatermark(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "u1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.Save(ctx, &core.MailCredentials{
		UserID: "u1", Provider: core.ProviderGmail, AccessToken: "old", ScanEnabled: true,
	}))

	expiry := time.Now().Add(time.Hour)
	require.NoError(t, s.SaveToken(ctx, "u1", "new", "refresh", expiry))

	creds, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new", creds.AccessToken)
	assert.Equal(t, "refresh", creds.RefreshToken)

	mark, err := s.Watermark(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, mark.IsZero())

	now := time.Now()
	require.NoError(t, s.SetWatermark(ctx, "u1", now))
	mark, _ = s.Watermark(ctx, "u1")
	assert.Equal(t, now, mark)

	require.NoError(t, s.ClearWatermark(ctx, "u1"))
	mark, _ = s.Watermark(ctx, "u1")
	assert.True(t, mark.IsZero())
}

func TestSuggestionBatchLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	batch, err := s.OpenBatch(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, batch)

	batch, err = s.Append(ctx, "u1", []core.Suggestion{{ID: "s1", Kind: core.SuggestionNew, Company: "Acme"}})
	require.NoError(t, err)
	require.Len(t, batch.Suggestions, 1)

	// Appending again extends the same open batch.
	again, err := s.Append(ctx, "u1", []core.Suggestion{{ID: "s2", Kind: core.SuggestionNew, Company: "Globex"}})
	require.NoError(t, err)
	assert.Equal(t, batch.ID, again.ID)
	assert.Len(t, again.Suggestions, 2)

	require.NoError(t, s.Replace(ctx, batch.ID, nil, true))
	open, err := s.OpenBatch(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, open, "processed batches are no longer open")

	// A fresh append opens a new batch.
	fresh, err := s.Append(ctx, "u1", []core.Suggestion{{ID: "s3", Kind: core.SuggestionNew, Company: "Initech"}})
	require.NoError(t, err)
	assert.NotEqual(t, batch.ID, fresh.ID)

	n, err := s.DeleteAll(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSeedSampleSuggestions(t *testing.T) {
	s := NewMemoryStore()
	batch, err := s.SeedSampleSuggestions(context.Background(), "demo", 5)
	require.NoError(t, err)
	require.Len(t, batch.Suggestions, 5)
	for _, sug := range batch.Suggestions {
		assert.True(t, strings.HasPrefix(sug.Company, "[SAMPLE] "))
		assert.Equal(t, core.SuggestionNew, sug.Kind)
		assert.True(t, sug.NewStatus.Valid())
		assert.NotEmpty(t, sug.ID)
	}
}
