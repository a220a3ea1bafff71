package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/adapters/cache"
	"github.com/applizz/jobmail/internal/adapters/store"
	"github.com/applizz/jobmail/internal/core"
	"github.com/applizz/jobmail/internal/merge"
)

// stubConnector serves a fixed envelope set.
type stubConnector struct {
	envelopes []core.Envelope
}

func (s *stubConnector) Fetch(ctx context.Context, creds *core.MailCredentials, since time.Time, limit int) ([]core.Envelope, error) {
	return s.envelopes, nil
}

// stubClassifier marks every envelope as a new Acme application.
type stubClassifier struct{}

func (s *stubClassifier) Classify(ctx context.Context, userID string, env *core.Envelope, llmEnabled bool) *core.ClassificationResult {
	return &core.ClassificationResult{
		IsJobRelated: true,
		Company:      "Acme",
		Position:     "Engineer",
		Status:       core.StatusApplied,
		Confidence:   0.8,
		Tier:         core.TierKeyword,
		AnalyzedAt:   time.Now(),
	}
}

func newTestServer(t *testing.T, connector core.MailboxConnector) (*Server, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	logger := zap.NewNop()

	scans := core.NewScanService(
		map[core.ProviderKind]core.MailboxConnector{core.ProviderIMAP: connector},
		&stubClassifier{},
		merge.NewEngine(logger),
		mem, mem, mem,
		logger,
		time.Minute, 15*24*time.Hour, 50, 2,
	)
	suggestions := core.NewSuggestionService(mem, mem, mem, cache.NewMemoryCache(logger), logger)
	srv := NewServer(scans, suggestions, logger, "127.0.0.1:0", time.Second, time.Second)
	return srv, mem
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubConnector{})
	rec := doRequest(t, srv, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScanEndpoint(t *testing.T) {
	srv, mem := newTestServer(t, &stubConnector{envelopes: []core.Envelope{
		{MessageID: "m1", Subject: "Thanks for applying", ReceivedAt: time.Now()},
	}})
	require.NoError(t, mem.Save(context.Background(), &core.MailCredentials{
		UserID: "u1", Provider: core.ProviderIMAP, ScanEnabled: true,
	}))

	rec := doRequest(t, srv, http.MethodPost, "/users/u1/scan")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["processed_count"])
	assert.Equal(t, float64(1), body["suggestions_created"])
}

func TestScanEndpointNoProvider(t *testing.T) {
	srv, _ := newTestServer(t, &stubConnector{})
	rec := doRequest(t, srv, http.MethodPost, "/users/ghost/scan")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanEndpointDisabled(t *testing.T) {
	srv, mem := newTestServer(t, &stubConnector{})
	require.NoError(t, mem.Save(context.Background(), &core.MailCredentials{
		UserID: "u1", Provider: core.ProviderIMAP, ScanEnabled: false,
	}))
	rec := doRequest(t, srv, http.MethodPost, "/users/u1/scan")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestScanEndpointCooldown(t *testing.T) {
	srv, mem := newTestServer(t, &stubConnector{})
	require.NoError(t, mem.Save(context.Background(), &core.MailCredentials{
		UserID: "u1", Provider: core.ProviderIMAP, ScanEnabled: true,
	}))

	rec := doRequest(t, srv, http.MethodPost, "/users/u1/scan")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/users/u1/scan")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSuggestionLifecycleOverHTTP(t *testing.T) {
	srv, mem := newTestServer(t, &stubConnector{})
	ctx := context.Background()
	_, err := mem.Append(ctx, "u1", []core.Suggestion{
		{ID: "s1", Kind: core.SuggestionNew, Company: "Acme", Position: "Engineer", NewStatus: core.StatusApplied, ObservedAt: time.Now()},
		{ID: "s2", Kind: core.SuggestionNew, Company: "Globex", Position: "Designer", NewStatus: core.StatusApplied, ObservedAt: time.Now()},
	})
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodGet, "/users/u1/suggestions/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["suggestions"], 2)

	rec = doRequest(t, srv, http.MethodPost, "/users/u1/suggestions/s1/accept")
	require.Equal(t, http.StatusOK, rec.Code)
	records, err := mem.FindByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Acme", records[0].Company)

	rec = doRequest(t, srv, http.MethodPost, "/users/u1/suggestions/s2/reject")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/users/u1/suggestions/")
	body = decodeBody(t, rec)
	assert.Empty(t, body["suggestions"])
}

func TestAcceptAllEndpoint(t *testing.T) {
	srv, mem := newTestServer(t, &stubConnector{})
	_, err := mem.Append(context.Background(), "u1", []core.Suggestion{
		{ID: "s1", Kind: core.SuggestionNew, Company: "Acme", Position: "Engineer", NewStatus: core.StatusApplied, ObservedAt: time.Now()},
		{ID: "s2", Kind: core.SuggestionNew, Company: "Globex", Position: "Designer", NewStatus: core.StatusApplied, ObservedAt: time.Now()},
	})
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodPost, "/users/u1/suggestions/accept-all")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["applied"])
}

func TestAcceptUnknownSuggestionReturns404(t *testing.T) {
	srv, _ := newTestServer(t, &stubConnector{})
	rec := doRequest(t, srv, http.MethodPost, "/users/u1/suggestions/nope/accept")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClearAllEndpoint(t *testing.T) {
	srv, mem := newTestServer(t, &stubConnector{})
	ctx := context.Background()
	require.NoError(t, mem.Insert(ctx, &core.ApplicationRecord{ID: "a1", UserID: "u1", Company: "Acme", Status: core.StatusApplied}))
	_, err := mem.Append(ctx, "u1", []core.Suggestion{
		{ID: "s1", Kind: core.SuggestionNew, Company: "Acme", NewStatus: core.StatusApplied},
	})
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodDelete, "/users/u1/data")
	require.Equal(t, http.StatusOK, rec.Code)

	records, err := mem.FindByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, records)
}
