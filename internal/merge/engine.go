// Package merge decides whether a classification becomes a suggestion:
// a new application, a status update to an existing record, or nothing.
package merge

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/core"
)

// Engine matches classifications against a user's existing application
// records. Matching is deliberately loose (case-insensitive, either string
// containing the other) to tolerate "Inc"/"LLC" noise in extracted names.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a new dedup and merge engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// Resolve turns one classification into at most one suggestion. pending
// holds the dedup keys of suggestions already in the user's open batch;
// callers must resolve a batch serially so later decisions see earlier ones.
func (e *Engine) Resolve(
	result *core.ClassificationResult,
	sourceSubject string,
	observedAt time.Time,
	records []core.ApplicationRecord,
	pending map[string]bool,
) *core.Suggestion {
	if !result.IsJobRelated || !result.HasIdentity() {
		return nil
	}

	companyMatches := make([]core.ApplicationRecord, 0, 1)
	for _, rec := range records {
		if looseMatch(rec.Company, result.Company) {
			companyMatches = append(companyMatches, rec)
		}
	}

	var positionMatch *core.ApplicationRecord
	for i := range companyMatches {
		if looseMatch(companyMatches[i].Position, result.Position) {
			positionMatch = &companyMatches[i]
			break
		}
	}

	var suggestion *core.Suggestion
	switch {
	case positionMatch != nil:
		// Same role: only a strictly forward status move is suggested.
		if !core.ShouldSupersede(positionMatch.Status, result.Status) {
			e.logger.Debug("status not superseded, no suggestion",
				zap.String("company", result.Company),
				zap.String("current", string(positionMatch.Status)),
				zap.String("detected", string(result.Status)))
			return nil
		}
		suggestion = &core.Suggestion{
			ID:            uuid.NewString(),
			Kind:          core.SuggestionUpdate,
			ApplicationID: positionMatch.ID,
			Company:       positionMatch.Company,
			Position:      positionMatch.Position,
			CurrentStatus: positionMatch.Status,
			NewStatus:     result.Status,
			SourceSubject: sourceSubject,
			ObservedAt:    observedAt,
			Confidence:    result.Confidence,
		}
	default:
		// Known employer with a different role, or a brand new employer:
		// both surface as a new application.
		suggestion = &core.Suggestion{
			ID:            uuid.NewString(),
			Kind:          core.SuggestionNew,
			Company:       result.Company,
			Position:      result.Position,
			NewStatus:     result.Status,
			SourceSubject: sourceSubject,
			ObservedAt:    observedAt,
			JobURL:        result.JobURL,
			Deadline:      result.Deadline,
			Notes:         result.Reasoning,
			Confidence:    result.Confidence,
		}
	}

	if pending[suggestion.DedupKey()] {
		return nil
	}
	pending[suggestion.DedupKey()] = true
	return suggestion
}

// looseMatch reports whether a and b refer to the same name: exact
// case-insensitive, or one containing the other.
func looseMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
