package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/adapters/store"
	"github.com/applizz/jobmail/internal/core"
	"github.com/applizz/jobmail/internal/merge"
)

// fakeConnector returns a canned envelope set, optionally with an error to
// simulate a connection dropping partway through a fetch.
type fakeConnector struct {
	envelopes []core.Envelope
	err       error
	calls     int
	lastSince time.Time
}

func (f *fakeConnector) Fetch(ctx context.Context, creds *core.MailCredentials, since time.Time, limit int) ([]core.Envelope, error) {
	f.calls++
	f.lastSince = since
	return f.envelopes, f.err
}

// fakeClassifier maps message IDs to canned results.
type fakeClassifier struct {
	results map[string]*core.ClassificationResult
}

func (f *fakeClassifier) Classify(ctx context.Context, userID string, env *core.Envelope, llmEnabled bool) *core.ClassificationResult {
	if r, ok := f.results[env.MessageID]; ok {
		return r
	}
	return &core.ClassificationResult{IsJobRelated: false, Tier: core.TierPrefilter}
}

func jobResult(company, position string, status core.Status) *core.ClassificationResult {
	return &core.ClassificationResult{
		IsJobRelated: true,
		Company:      company,
		Position:     position,
		Status:       status,
		Confidence:   0.85,
		Tier:         core.TierKeyword,
		AnalyzedAt:   time.Now(),
	}
}

type scanFixture struct {
	svc       *core.ScanService
	store     *store.MemoryStore
	connector *fakeConnector
}

func newScanFixture(t *testing.T, connector *fakeConnector, classifier core.EmailClassifier) *scanFixture {
	t.Helper()
	mem := store.NewMemoryStore()
	logger := zap.NewNop()
	svc := core.NewScanService(
		map[core.ProviderKind]core.MailboxConnector{core.ProviderIMAP: connector},
		classifier,
		merge.NewEngine(logger),
		mem, mem, mem,
		logger,
		time.Minute,
		15*24*time.Hour,
		50,
		2,
	)
	return &scanFixture{svc: svc, store: mem, connector: connector}
}

func seedCreds(t *testing.T, mem *store.MemoryStore, userID string, scanEnabled bool) {
	t.Helper()
	require.NoError(t, mem.Save(context.Background(), &core.MailCredentials{
		UserID:       userID,
		Provider:     core.ProviderIMAP,
		EmailAddress: userID + "@example.com",
		IMAPHost:     "imap.example.com",
		AppPassword:  "secret",
		ScanEnabled:  scanEnabled,
	}))
}

func TestScanNoProvider(t *testing.T) {
	f := newScanFixture(t, &fakeConnector{}, &fakeClassifier{})
	_, err := f.svc.Scan(context.Background(), "nobody")
	assert.ErrorIs(t, err, core.ErrNoProvider)
}

func TestScanDisabled(t *testing.T) {
	f := newScanFixture(t, &fakeConnector{}, &fakeClassifier{})
	seedCreds(t, f.store, "u1", false)
	_, err := f.svc.Scan(context.Background(), "u1")
	assert.ErrorIs(t, err, core.ErrScanDisabled)
}

func TestScanCreatesSuggestions(t *testing.T) {
	connector := &fakeConnector{envelopes: []core.Envelope{
		{MessageID: "m1", Subject: "Thanks for applying", ReceivedAt: time.Now()},
		{MessageID: "m2", Subject: "Lunch?", ReceivedAt: time.Now()},
	}}
	classifier := &fakeClassifier{results: map[string]*core.ClassificationResult{
		"m1": jobResult("Acme", "Engineer", core.StatusApplied),
	}}
	f := newScanFixture(t, connector, classifier)
	seedCreds(t, f.store, "u1", true)

	summary, err := f.svc.Scan(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ProcessedCount)
	assert.Equal(t, 1, summary.JobRelatedCount)
	assert.Equal(t, 1, summary.SuggestionsCreated)
	assert.False(t, summary.Partial)

	batch, err := f.store.OpenBatch(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, batch)
	require.Len(t, batch.Suggestions, 1)
	assert.Equal(t, core.SuggestionNew, batch.Suggestions[0].Kind)
	assert.Equal(t, "Acme", batch.Suggestions[0].Company)
	assert.Equal(t, "Thanks for applying", batch.Suggestions[0].SourceSubject)
}

func TestScanFirstRunUsesDefaultLookback(t *testing.T) {
	connector := &fakeConnector{}
	f := newScanFixture(t, connector, &fakeClassifier{})
	seedCreds(t, f.store, "u1", true)

	_, err := f.svc.Scan(context.Background(), "u1")
	require.NoError(t, err)

	lookback := time.Since(connector.lastSince)
	assert.InDelta(t, (15 * 24 * time.Hour).Seconds(), lookback.Seconds(), 60)
}

func TestScanCooldown(t *testing.T) {
	f := newScanFixture(t, &fakeConnector{}, &fakeClassifier{})
	seedCreds(t, f.store, "u1", true)

	_, err := f.svc.Scan(context.Background(), "u1")
	require.NoError(t, err)

	_, err = f.svc.Scan(context.Background(), "u1")
	assert.ErrorIs(t, err, core.ErrScanCooldown)
	assert.Equal(t, 1, f.connector.calls)
}

func TestScanPartialFetchStillCommits(t *testing.T) {
	connector := &fakeConnector{
		envelopes: []core.Envelope{{MessageID: "m1", Subject: "Thanks", ReceivedAt: time.Now()}},
		err:       &core.ProtocolError{Op: "fetch", Err: errors.New("connection reset")},
	}
	classifier := &fakeClassifier{results: map[string]*core.ClassificationResult{
		"m1": jobResult("Acme", "Engineer", core.StatusApplied),
	}}
	f := newScanFixture(t, connector, classifier)
	seedCreds(t, f.store, "u1", true)

	summary, err := f.svc.Scan(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, summary.Partial)
	assert.Equal(t, 1, summary.SuggestionsCreated)

	mark, err := f.store.Watermark(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, mark.IsZero(), "partial scans still advance the watermark")
}

func TestScanFetchFailureAborts(t *testing.T) {
	connector := &fakeConnector{err: &core.ProtocolError{Op: "dial", Err: errors.New("refused")}}
	f := newScanFixture(t, connector, &fakeClassifier{})
	seedCreds(t, f.store, "u1", true)

	_, err := f.svc.Scan(context.Background(), "u1")
	require.Error(t, err)

	mark, err := f.store.Watermark(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, mark.IsZero(), "failed scans must not advance the watermark")
}

func TestScanAuthErrorSurfaces(t *testing.T) {
	connector := &fakeConnector{
		envelopes: []core.Envelope{{MessageID: "m1"}},
		err:       &core.AuthError{Provider: core.ProviderIMAP, Err: errors.New("bad password")},
	}
	f := newScanFixture(t, connector, &fakeClassifier{})
	seedCreds(t, f.store, "u1", true)

	_, err := f.svc.Scan(context.Background(), "u1")
	assert.True(t, core.IsAuthError(err))
}

func TestScanSuggestsStatusUpdate(t *testing.T) {
	connector := &fakeConnector{envelopes: []core.Envelope{
		{MessageID: "m1", Subject: "Interview invitation", ReceivedAt: time.Now()},
	}}
	classifier := &fakeClassifier{results: map[string]*core.ClassificationResult{
		"m1": jobResult("Acme", "Engineer", core.StatusInterview),
	}}
	f := newScanFixture(t, connector, classifier)
	seedCreds(t, f.store, "u1", true)

	require.NoError(t, f.store.Insert(context.Background(), &core.ApplicationRecord{
		ID: "app1", UserID: "u1", Company: "Acme", Position: "Engineer", Status: core.StatusApplied,
	}))

	summary, err := f.svc.Scan(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 1, summary.SuggestionsCreated)

	batch, err := f.store.OpenBatch(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, batch.Suggestions, 1)
	assert.Equal(t, core.SuggestionUpdate, batch.Suggestions[0].Kind)
	assert.Equal(t, "app1", batch.Suggestions[0].ApplicationID)
	assert.Equal(t, core.StatusInterview, batch.Suggestions[0].NewStatus)
}

func TestScanDedupAgainstOpenBatch(t *testing.T) {
	connector := &fakeConnector{envelopes: []core.Envelope{
		{MessageID: "m1", Subject: "Thanks", ReceivedAt: time.Now()},
		{MessageID: "m2", Subject: "Thanks again", ReceivedAt: time.Now()},
	}}
	classifier := &fakeClassifier{results: map[string]*core.ClassificationResult{
		"m1": jobResult("Acme", "Engineer", core.StatusApplied),
		"m2": jobResult("Acme", "Engineer", core.StatusApplied),
	}}
	f := newScanFixture(t, connector, classifier)
	seedCreds(t, f.store, "u1", true)

	summary, err := f.svc.Scan(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SuggestionsCreated, "identical detections collapse into one suggestion")
}
