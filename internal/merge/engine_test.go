package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/core"
)

func testResult(company, position string, status core.Status) *core.ClassificationResult {
	return &core.ClassificationResult{
		IsJobRelated: true,
		Company:      company,
		Position:     position,
		Status:       status,
		Confidence:   0.8,
	}
}

func resolve(t *testing.T, result *core.ClassificationResult, records []core.ApplicationRecord, pending map[string]bool) *core.Suggestion {
	t.Helper()
	if pending == nil {
		pending = make(map[string]bool)
	}
	return NewEngine(zap.NewNop()).Resolve(result, "subject", time.Now(), records, pending)
}

func TestResolveIgnoresNonJobMail(t *testing.T) {
	assert.Nil(t, resolve(t, &core.ClassificationResult{IsJobRelated: false}, nil, nil))
}

func TestResolveIgnoresMissingIdentity(t *testing.T) {
	result := testResult(core.UnknownCompany, core.UnknownPosition, core.StatusApplied)
	assert.Nil(t, resolve(t, result, nil, nil))
}

func TestResolveNewApplication(t *testing.T) {
	result := testResult("Acme", "Engineer", core.StatusApplied)
	sug := resolve(t, result, nil, nil)
	require.NotNil(t, sug)
	assert.Equal(t, core.SuggestionNew, sug.Kind)
	assert.Equal(t, "Acme", sug.Company)
	assert.NotEmpty(t, sug.ID)
}

func TestResolveUpdateOnForwardStatus(t *testing.T) {
	records := []core.ApplicationRecord{
		{ID: "app1", Company: "Acme Inc", Position: "Software Engineer", Status: core.StatusApplied},
	}
	// Loose matching tolerates suffix noise in either direction.
	result := testResult("Acme", "Engineer", core.StatusInterview)
	sug := resolve(t, result, records, nil)
	require.NotNil(t, sug)
	assert.Equal(t, core.SuggestionUpdate, sug.Kind)
	assert.Equal(t, "app1", sug.ApplicationID)
	assert.Equal(t, core.StatusApplied, sug.CurrentStatus)
	assert.Equal(t, core.StatusInterview, sug.NewStatus)
}

func TestResolveNoUpdateOnBackwardStatus(t *testing.T) {
	records := []core.ApplicationRecord{
		{ID: "app1", Company: "Acme", Position: "Engineer", Status: core.StatusOffer},
	}
	result := testResult("Acme", "Engineer", core.StatusApplied)
	assert.Nil(t, resolve(t, result, records, nil))
}

func TestResolveRejectedIsTerminal(t *testing.T) {
	records := []core.ApplicationRecord{
		{ID: "app1", Company: "Acme", Position: "Engineer", Status: core.StatusRejected},
	}
	result := testResult("Acme", "Engineer", core.StatusInterview)
	assert.Nil(t, resolve(t, result, records, nil))
}

func TestResolveRejectionSupersedesAnything(t *testing.T) {
	records := []core.ApplicationRecord{
		{ID: "app1", Company: "Acme", Position: "Engineer", Status: core.StatusOffer},
	}
	result := testResult("Acme", "Engineer", core.StatusRejected)
	sug := resolve(t, result, records, nil)
	require.NotNil(t, sug)
	assert.Equal(t, core.StatusRejected, sug.NewStatus)
}

func TestResolveDifferentPositionIsNew(t *testing.T) {
	records := []core.ApplicationRecord{
		{ID: "app1", Company: "Acme", Position: "Backend Lead", Status: core.StatusApplied},
	}
	result := testResult("Acme", "Data Scientist", core.StatusApplied)
	sug := resolve(t, result, records, nil)
	require.NotNil(t, sug)
	assert.Equal(t, core.SuggestionNew, sug.Kind)
}

func TestResolvePendingDedup(t *testing.T) {
	pending := make(map[string]bool)
	result := testResult("Acme", "Engineer", core.StatusApplied)

	first := resolve(t, result, nil, pending)
	require.NotNil(t, first)

	second := NewEngine(zap.NewNop()).Resolve(result, "another subject", time.Now(), nil, pending)
	assert.Nil(t, second, "a pending duplicate must not be suggested twice")
}

func TestLooseMatch(t *testing.T) {
	assert.True(t, looseMatch("Acme Inc", "acme"))
	assert.True(t, looseMatch("acme", "Acme Inc"))
	assert.True(t, looseMatch("Acme", "ACME"))
	assert.False(t, looseMatch("Acme", "Globex"))
	assert.False(t, looseMatch("", "Acme"))
}
