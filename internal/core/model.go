package core

import (
	"strings"
	"time"
)

// Envelope is the normalized representation of one fetched email. It is
// created per message by a mailbox connector and discarded after
// classification; only data derived from it is persisted.
type Envelope struct {
	MessageID  string
	Subject    string
	From       string
	ReceivedAt time.Time
	Body       string
}

// ClassificationResult represents the outcome of classifying one envelope.
// It is never mutated after creation.
type ClassificationResult struct {
	IsJobRelated   bool
	Company        string
	Position       string
	Status         Status
	JobURL         string
	Deadline       *time.Time
	Confidence     float64
	MatchedSignals []string
	Reasoning      string
	Tier           string
	AnalyzedAt     time.Time
}

// Classification tiers recorded on results.
const (
	TierPrefilter = "prefilter"
	TierKeyword   = "keyword"
	TierLLM       = "llm"
	TierPlatform  = "application_platform"
	TierCache     = "cache"
)

// Placeholder values used when extraction fails.
const (
	UnknownCompany  = "Unknown Company"
	UnknownPosition = "Unknown Position"
)

// HasIdentity reports whether at least one of company or position was
// resolved to something other than the unknown placeholders. Results without
// identity never surface as suggestions.
func (r *ClassificationResult) HasIdentity() bool {
	return !isUnknown(r.Company, UnknownCompany) || !isUnknown(r.Position, UnknownPosition)
}

func isUnknown(v, placeholder string) bool {
	return v == "" || strings.EqualFold(v, placeholder)
}

// CacheEntry represents one memoized classification result. Entries are
// owned exclusively by the analysis cache and never returned past ExpiresAt.
type CacheEntry struct {
	Key       string
	UserID    string
	Result    ClassificationResult
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SuggestionKind discriminates the suggestion union.
type SuggestionKind string

const (
	SuggestionNew    SuggestionKind = "new"
	SuggestionUpdate SuggestionKind = "update"
)

// Suggestion is a proposed create or update to the application store
// awaiting user approval. Immutable once created; removed on accept/reject.
type Suggestion struct {
	ID            string
	Kind          SuggestionKind
	ApplicationID string // update only
	Company       string
	Position      string
	CurrentStatus Status // update only
	NewStatus     Status
	SourceSubject string
	ObservedAt    time.Time
	JobURL        string
	Deadline      *time.Time
	Notes         string
	Confidence    float64
}

// DedupKey returns the key used to suppress identical pending suggestions:
// (application_id, new_status) for updates, (company, position) for new ones.
func (s *Suggestion) DedupKey() string {
	if s.Kind == SuggestionUpdate {
		return "update|" + s.ApplicationID + "|" + string(s.NewStatus)
	}
	return "new|" + strings.ToLower(s.Company) + "|" + strings.ToLower(s.Position)
}

// SuggestionBatch is the set of currently-pending suggestions for one user.
// At most one batch per user has Processed == false.
type SuggestionBatch struct {
	ID          string
	UserID      string
	Suggestions []Suggestion
	Processed   bool
	CreatedAt   time.Time
}

// ScanWatermark bounds the provider query window for one user. It is
// advanced only after a scan completes.
type ScanWatermark struct {
	UserID     string
	LastScanAt time.Time
}

// ApplicationRecord is a job application owned by the application store.
// The scanner only reads records for matching and issues status updates.
type ApplicationRecord struct {
	ID          string
	UserID      string
	Company     string
	Position    string
	Status      Status
	DateApplied time.Time
	URL         string
	Deadline    *time.Time
	Notes       string
}

// ProviderKind identifies a mailbox provider implementation.
type ProviderKind string

const (
	ProviderGmail ProviderKind = "gmail"
	ProviderIMAP  ProviderKind = "imap"
)

// MailCredentials holds one user's mailbox connection state. App passwords
// and tokens are stored, never logged in full.
type MailCredentials struct {
	UserID       string
	Provider     ProviderKind
	EmailAddress string

	// OAuth providers
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time

	// IMAP providers
	IMAPHost    string
	AppPassword string

	ScanEnabled bool
	LLMEnabled  bool
}

// ScanSummary is returned from a committed scan.
type ScanSummary struct {
	ProcessedCount     int
	JobRelatedCount    int
	SuggestionsCreated int
	Partial            bool
}
