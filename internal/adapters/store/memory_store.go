package store

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/applizz/jobmail/internal/core"
)

// MemoryStore is an in-memory implementation of the application, credential
// and suggestion stores, used in tests and local development.
type MemoryStore struct {
	mu           sync.Mutex
	applications map[string][]core.ApplicationRecord // userID -> records
	credentials  map[string]*core.MailCredentials
	watermarks   map[string]time.Time
	batches      map[string]*core.SuggestionBatch // batchID -> batch
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		applications: make(map[string][]core.ApplicationRecord),
		credentials:  make(map[string]*core.MailCredentials),
		watermarks:   make(map[string]time.Time),
		batches:      make(map[string]*core.SuggestionBatch),
	}
}

// FindByUser returns all application records for one user.
func (s *MemoryStore) FindByUser(ctx context.Context, userID string) ([]core.ApplicationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ApplicationRecord, len(s.applications[userID]))
	copy(out, s.applications[userID])
	return out, nil
}

// Insert stores a new application record.
func (s *MemoryStore) Insert(ctx context.Context, rec *core.ApplicationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.applications[rec.UserID] = append(s.applications[rec.UserID], *rec)
	return nil
}

// UpdateStatus sets the status of one application record.
func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, status core.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, records := range s.applications {
		for i := range records {
			if records[i].ID == id {
				s.applications[userID][i].Status = status
				return nil
			}
		}
	}
	return core.ErrNotFound
}

// DeleteByUser removes every application record for one user.
func (s *MemoryStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.applications[userID]))
	delete(s.applications, userID)
	return n, nil
}

// Get loads one user's mailbox credentials.
func (s *MemoryStore) Get(ctx context.Context, userID string) (*core.MailCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, ok := s.credentials[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	out := *creds
	return &out, nil
}

// Save upserts one user's credential record.
func (s *MemoryStore) Save(ctx context.Context, creds *core.MailCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *creds
	s.credentials[creds.UserID] = &c
	return nil
}

// SaveToken persists a refreshed OAuth token pair.
func (s *MemoryStore) SaveToken(ctx context.Context, userID, accessToken, refreshToken string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, ok := s.credentials[userID]
	if !ok {
		return core.ErrNotFound
	}
	creds.AccessToken = accessToken
	creds.RefreshToken = refreshToken
	creds.TokenExpiry = expiry
	return nil
}

// Watermark returns the user's last completed scan time.
func (s *MemoryStore) Watermark(ctx context.Context, userID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermarks[userID], nil
}

// SetWatermark advances the user's watermark.
func (s *MemoryStore) SetWatermark(ctx context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermarks[userID] = at
	return nil
}

// ClearWatermark resets the user's watermark.
func (s *MemoryStore) ClearWatermark(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watermarks, userID)
	return nil
}

// OpenBatch returns the user's unprocessed suggestion batch, or nil.
func (s *MemoryStore) OpenBatch(ctx context.Context, userID string) (*core.SuggestionBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, batch := range s.batches {
		if batch.UserID == userID && !batch.Processed {
			out := *batch
			out.Suggestions = append([]core.Suggestion(nil), batch.Suggestions...)
			return &out, nil
		}
	}
	return nil, nil
}

// Append adds suggestions to the user's open batch, creating one when
// necessary.
func (s *MemoryStore) Append(ctx context.Context, userID string, suggestions []core.Suggestion) (*core.SuggestionBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, batch := range s.batches {
		if batch.UserID == userID && !batch.Processed {
			batch.Suggestions = append(batch.Suggestions, suggestions...)
			out := *batch
			out.Suggestions = append([]core.Suggestion(nil), batch.Suggestions...)
			return &out, nil
		}
	}
	batch := &core.SuggestionBatch{
		ID:          uuid.NewString(),
		UserID:      userID,
		Suggestions: append([]core.Suggestion(nil), suggestions...),
		CreatedAt:   time.Now(),
	}
	s.batches[batch.ID] = batch
	out := *batch
	out.Suggestions = append([]core.Suggestion(nil), batch.Suggestions...)
	return &out, nil
}

// Replace persists the remaining suggestion list and the processed flag.
func (s *MemoryStore) Replace(ctx context.Context, batchID string, remaining []core.Suggestion, processed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return core.ErrNotFound
	}
	batch.Suggestions = append([]core.Suggestion(nil), remaining...)
	batch.Processed = processed
	return nil
}

// DeleteAll removes every suggestion batch for one user.
func (s *MemoryStore) DeleteAll(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, batch := range s.batches {
		if batch.UserID == userID {
			delete(s.batches, id)
			n++
		}
	}
	return n, nil
}

var (
	sampleCompanies = []string{
		"Google", "Amazon", "Microsoft", "Apple", "Meta", "Netflix",
		"Salesforce", "Adobe", "IBM", "Oracle", "Slack", "Dropbox",
	}
	samplePositions = []string{
		"Software Engineer", "Frontend Developer", "Backend Developer",
		"Full Stack Engineer", "Data Scientist", "DevOps Engineer",
		"Product Manager", "QA Engineer", "Mobile Developer",
	}
	sampleStatuses = []core.Status{
		core.StatusApplied, core.StatusInterview, core.StatusOffer, core.StatusRejected,
	}
)

// SeedSampleSuggestions generates demo suggestions for one user, appended to
// their open batch.
func (s *MemoryStore) SeedSampleSuggestions(ctx context.Context, userID string, count int) (*core.SuggestionBatch, error) {
	suggestions := make([]core.Suggestion, 0, count)
	for i := 0; i < count; i++ {
		company := "[SAMPLE] " + sampleCompanies[rand.Intn(len(sampleCompanies))]
		position := samplePositions[rand.Intn(len(samplePositions))]
		status := sampleStatuses[rand.Intn(len(sampleStatuses))]
		suggestions = append(suggestions, core.Suggestion{
			ID:            uuid.NewString(),
			Kind:          core.SuggestionNew,
			Company:       company,
			Position:      position,
			NewStatus:     status,
			SourceSubject: fmt.Sprintf("[SAMPLE] Update on your application for %s at %s", position, company),
			ObservedAt:    time.Now().AddDate(0, 0, -rand.Intn(30)),
			Confidence:    0.7 + rand.Float64()*0.25,
		})
	}
	return s.Append(ctx, userID, suggestions)
}
