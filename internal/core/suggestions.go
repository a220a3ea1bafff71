package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SuggestionService exposes the pending suggestion workflow: list, accept,
// reject, accept-all and the destructive per-user reset.
type SuggestionService struct {
	suggestions SuggestionStore
	apps        ApplicationStore
	credentials CredentialStore
	cache       AnalysisCache
	logger      *zap.Logger
}

// NewSuggestionService creates a new suggestion service.
func NewSuggestionService(
	suggestions SuggestionStore,
	apps ApplicationStore,
	credentials CredentialStore,
	cache AnalysisCache,
	logger *zap.Logger,
) *SuggestionService {
	return &SuggestionService{
		suggestions: suggestions,
		apps:        apps,
		credentials: credentials,
		cache:       cache,
		logger:      logger,
	}
}

// ListPending returns the user's pending suggestions, oldest first. A user
// with no open batch gets an empty slice, not an error.
func (s *SuggestionService) ListPending(ctx context.Context, userID string) ([]Suggestion, error) {
	batch, err := s.suggestions.OpenBatch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return []Suggestion{}, nil
	}
	return batch.Suggestions, nil
}

// Accept applies one suggestion to the application store and removes it from
// the batch. When the last suggestion is consumed the batch is marked
// processed in the same write.
func (s *SuggestionService) Accept(ctx context.Context, userID, suggestionID string) error {
	batch, idx, err := s.find(ctx, userID, suggestionID)
	if err != nil {
		return err
	}
	if err := s.apply(ctx, userID, &batch.Suggestions[idx]); err != nil {
		return err
	}
	return s.remove(ctx, batch, idx)
}

// Reject discards one suggestion without touching the application store.
func (s *SuggestionService) Reject(ctx context.Context, userID, suggestionID string) error {
	batch, idx, err := s.find(ctx, userID, suggestionID)
	if err != nil {
		return err
	}
	s.logger.Info("suggestion rejected",
		zap.String("user_id", userID),
		zap.String("suggestion_id", suggestionID),
		zap.String("kind", string(batch.Suggestions[idx].Kind)))
	return s.remove(ctx, batch, idx)
}

// AcceptAll applies every pending suggestion in batch order. The first
// store failure aborts; suggestions already applied stay applied and the
// remainder stays pending.
func (s *SuggestionService) AcceptAll(ctx context.Context, userID string) (int, error) {
	batch, err := s.suggestions.OpenBatch(ctx, userID)
	if err != nil {
		return 0, err
	}
	if batch == nil || len(batch.Suggestions) == 0 {
		return 0, nil
	}

	applied := 0
	for i := range batch.Suggestions {
		if err := s.apply(ctx, userID, &batch.Suggestions[i]); err != nil {
			if applied > 0 {
				if repErr := s.suggestions.Replace(ctx, batch.ID, batch.Suggestions[applied:], false); repErr != nil {
					s.logger.Error("failed to persist partially applied batch",
						zap.String("batch_id", batch.ID), zap.Error(repErr))
				}
			}
			return applied, err
		}
		applied++
	}

	if err := s.suggestions.Replace(ctx, batch.ID, nil, true); err != nil {
		return applied, err
	}
	s.logger.Info("accepted all pending suggestions",
		zap.String("user_id", userID), zap.Int("count", applied))
	return applied, nil
}

// ClearAll erases everything derived from a user's mailbox: pending
// suggestions, scanner-created applications, cached analyses and the scan
// watermark. The next scan starts from the default lookback window.
func (s *SuggestionService) ClearAll(ctx context.Context, userID string) error {
	if _, err := s.suggestions.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete suggestions: %w", err)
	}
	if _, err := s.apps.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete applications: %w", err)
	}
	if _, err := s.cache.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete cached analyses: %w", err)
	}
	if err := s.credentials.ClearWatermark(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear scan watermark: %w", err)
	}
	s.logger.Info("cleared all scan data", zap.String("user_id", userID))
	return nil
}

// apply writes one suggestion into the application store.
func (s *SuggestionService) apply(ctx context.Context, userID string, sug *Suggestion) error {
	switch sug.Kind {
	case SuggestionUpdate:
		if err := s.apps.UpdateStatus(ctx, sug.ApplicationID, sug.NewStatus); err != nil {
			return fmt.Errorf("failed to update application %s: %w", sug.ApplicationID, err)
		}
	case SuggestionNew:
		position := sug.Position
		if strings.EqualFold(position, UnknownPosition) {
			position = ""
		}
		rec := &ApplicationRecord{
			ID:          uuid.NewString(),
			UserID:      userID,
			Company:     sug.Company,
			Position:    position,
			Status:      sug.NewStatus,
			DateApplied: sug.ObservedAt,
			URL:         sug.JobURL,
			Deadline:    sug.Deadline,
			Notes:       sug.Notes,
		}
		if err := s.apps.Insert(ctx, rec); err != nil {
			return fmt.Errorf("failed to insert application: %w", err)
		}
	default:
		return fmt.Errorf("unknown suggestion kind %q", sug.Kind)
	}
	return nil
}

func (s *SuggestionService) find(ctx context.Context, userID, suggestionID string) (*SuggestionBatch, int, error) {
	batch, err := s.suggestions.OpenBatch(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if batch == nil {
		return nil, 0, ErrNotFound
	}
	for i := range batch.Suggestions {
		if batch.Suggestions[i].ID == suggestionID {
			return batch, i, nil
		}
	}
	return nil, 0, ErrNotFound
}

func (s *SuggestionService) remove(ctx context.Context, batch *SuggestionBatch, idx int) error {
	remaining := make([]Suggestion, 0, len(batch.Suggestions)-1)
	remaining = append(remaining, batch.Suggestions[:idx]...)
	remaining = append(remaining, batch.Suggestions[idx+1:]...)
	return s.suggestions.Replace(ctx, batch.ID, remaining, len(remaining) == 0)
}
