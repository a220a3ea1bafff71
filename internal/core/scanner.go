package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ScanService drives one mailbox scan end to end: fetch, classify, match,
// and persist suggestions. One scan per user runs at a time; concurrent
// requests for the same user hit the cooldown.
type ScanService struct {
	connectors  map[ProviderKind]MailboxConnector
	classifier  EmailClassifier
	resolver    SuggestionResolver
	credentials CredentialStore
	apps        ApplicationStore
	suggestions SuggestionStore
	logger      *zap.Logger

	cooldown        time.Duration
	defaultLookback time.Duration
	fetchLimit      int
	concurrency     int

	mu      sync.Mutex
	running map[string]bool
}

// NewScanService creates a new scan service.
func NewScanService(
	connectors map[ProviderKind]MailboxConnector,
	classifier EmailClassifier,
	resolver SuggestionResolver,
	credentials CredentialStore,
	apps ApplicationStore,
	suggestions SuggestionStore,
	logger *zap.Logger,
	cooldown time.Duration,
	defaultLookback time.Duration,
	fetchLimit int,
	concurrency int,
) *ScanService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ScanService{
		connectors:      connectors,
		classifier:      classifier,
		resolver:        resolver,
		credentials:     credentials,
		apps:            apps,
		suggestions:     suggestions,
		logger:          logger,
		cooldown:        cooldown,
		defaultLookback: defaultLookback,
		fetchLimit:      fetchLimit,
		concurrency:     concurrency,
		running:         make(map[string]bool),
	}
}

// Scan fetches new mail for one user, classifies it and appends the
// resulting suggestions to the user's open batch. The watermark is advanced
// to the scan start time once results are committed, including partial
// fetches, so an interrupted window is never silently skipped forward.
func (s *ScanService) Scan(ctx context.Context, userID string) (*ScanSummary, error) {
	creds, err := s.credentials.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoProvider
		}
		return nil, err
	}
	if !creds.ScanEnabled {
		return nil, ErrScanDisabled
	}

	connector, ok := s.connectors[creds.Provider]
	if !ok {
		return nil, ErrNoProvider
	}

	if !s.acquire(userID) {
		return nil, ErrScanCooldown
	}
	defer s.release(userID)

	now := time.Now()
	last, err := s.credentials.Watermark(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !last.IsZero() && now.Sub(last) < s.cooldown {
		return nil, ErrScanCooldown
	}

	since := last
	if since.IsZero() {
		// First scan for this user walks back a fixed window rather
		// than the whole mailbox.
		since = now.Add(-s.defaultLookback)
	}

	envelopes, fetchErr := connector.Fetch(ctx, creds, since, s.fetchLimit)
	partial := false
	if fetchErr != nil {
		if IsAuthError(fetchErr) {
			return nil, fetchErr
		}
		if len(envelopes) == 0 {
			return nil, fetchErr
		}
		partial = true
		s.logger.Warn("mailbox fetch failed partway, continuing with partial results",
			zap.String("user_id", userID),
			zap.Int("fetched", len(envelopes)),
			zap.Error(fetchErr))
	}

	results := s.classifyAll(ctx, userID, creds.LLMEnabled, envelopes)

	records, err := s.apps.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	pending := make(map[string]bool)
	if batch, err := s.suggestions.OpenBatch(ctx, userID); err != nil {
		return nil, err
	} else if batch != nil {
		for i := range batch.Suggestions {
			pending[batch.Suggestions[i].DedupKey()] = true
		}
	}

	summary := &ScanSummary{ProcessedCount: len(envelopes), Partial: partial}
	var created []Suggestion
	for i := range envelopes {
		result := results[i]
		if result == nil {
			continue
		}
		if result.IsJobRelated {
			summary.JobRelatedCount++
		}
		sug := s.resolver.Resolve(result, envelopes[i].Subject, envelopes[i].ReceivedAt, records, pending)
		if sug != nil {
			created = append(created, *sug)
		}
	}

	if len(created) > 0 {
		if _, err := s.suggestions.Append(ctx, userID, created); err != nil {
			return nil, err
		}
	}
	summary.SuggestionsCreated = len(created)

	if err := s.credentials.SetWatermark(ctx, userID, now); err != nil {
		return nil, err
	}

	s.logger.Info("scan committed",
		zap.String("user_id", userID),
		zap.Int("processed", summary.ProcessedCount),
		zap.Int("job_related", summary.JobRelatedCount),
		zap.Int("suggestions", summary.SuggestionsCreated),
		zap.Bool("partial", summary.Partial))
	return summary, nil
}

// classifyAll classifies envelopes with bounded parallelism while keeping
// result order aligned with the input.
func (s *ScanService) classifyAll(ctx context.Context, userID string, llmEnabled bool, envelopes []Envelope) []*ClassificationResult {
	results := make([]*ClassificationResult, len(envelopes))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for i := range envelopes {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.classifier.Classify(ctx, userID, &envelopes[i], llmEnabled)
		}(i)
	}
	wg.Wait()
	return results
}

func (s *ScanService) acquire(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[userID] {
		return false
	}
	s.running[userID] = true
	return true
}

func (s *ScanService) release(userID string) {
	s.mu.Lock()
	delete(s.running, userID)
	s.mu.Unlock()
}
