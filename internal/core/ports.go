package core

import (
	"context"
	"time"
)

// MailboxConnector fetches a bounded set of messages received after a
// watermark. Implementations return whatever envelopes were obtained before
// a connection-level failure together with the error, so callers can proceed
// with partial results. A single malformed message is logged and skipped.
type MailboxConnector interface {
	Fetch(ctx context.Context, creds *MailCredentials, since time.Time, limit int) ([]Envelope, error)
}

// LLMClient defines the interface for LLM-backed email classification.
type LLMClient interface {
	// AnalyzeEmail classifies one email. The response is treated as
	// untrusted input and schema-validated by the caller.
	AnalyzeEmail(ctx context.Context, env *Envelope) (*ClassificationResult, error)
}

// EmailClassifier classifies envelopes. Classification never fails: LLM or
// parse problems degrade to the keyword tier internally.
type EmailClassifier interface {
	Classify(ctx context.Context, userID string, env *Envelope, llmEnabled bool) *ClassificationResult
}

// AnalysisCache memoizes classification results per content hash with TTL
// expiry. Implementations must be safe for concurrent use; Cleanup is
// idempotent and must not block concurrent Get/Set calls for its full sweep.
type AnalysisCache interface {
	// Get returns the cached result for key, or (nil, false) when absent
	// or expired.
	Get(ctx context.Context, key string) (*ClassificationResult, bool)

	// Set stores an entry. Existing entries for the same key are replaced.
	Set(ctx context.Context, entry *CacheEntry) error

	// Cleanup removes expired entries.
	Cleanup(ctx context.Context) error

	// DeleteUser removes all entries for one user.
	DeleteUser(ctx context.Context, userID string) (int64, error)
}

// ApplicationStore is the external store of application records. The scanner
// reads records for matching and issues inserts and status updates;
// DeleteByUser exists only for the destructive reset operation.
type ApplicationStore interface {
	FindByUser(ctx context.Context, userID string) ([]ApplicationRecord, error)
	Insert(ctx context.Context, rec *ApplicationRecord) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// CredentialStore persists per-user mailbox credentials, the scan watermark
// and entitlement flags. Token writes happen during transparent refresh and
// must be visible to subsequent scans.
type CredentialStore interface {
	Get(ctx context.Context, userID string) (*MailCredentials, error)
	SaveToken(ctx context.Context, userID, accessToken, refreshToken string, expiry time.Time) error
	Watermark(ctx context.Context, userID string) (time.Time, error)
	SetWatermark(ctx context.Context, userID string, at time.Time) error
	ClearWatermark(ctx context.Context, userID string) error
}

// SuggestionResolver turns one classification into at most one suggestion,
// matching it against the user's existing application records. pending holds
// the dedup keys already present in the user's open batch; resolving a batch
// must be serialized so later decisions see earlier ones.
type SuggestionResolver interface {
	Resolve(result *ClassificationResult, sourceSubject string, observedAt time.Time, records []ApplicationRecord, pending map[string]bool) *Suggestion
}

// SuggestionStore persists the per-user pending suggestion batch.
type SuggestionStore interface {
	// OpenBatch returns the user's unprocessed batch, or nil when none.
	OpenBatch(ctx context.Context, userID string) (*SuggestionBatch, error)

	// Append adds suggestions to the user's open batch, creating one when
	// necessary, and returns the resulting batch.
	Append(ctx context.Context, userID string, suggestions []Suggestion) (*SuggestionBatch, error)

	// Replace persists the remaining suggestion list after an accept or
	// reject, and the processed flag in the same write.
	Replace(ctx context.Context, batchID string, remaining []Suggestion, processed bool) error

	// DeleteAll removes every suggestion batch for one user.
	DeleteAll(ctx context.Context, userID string) (int64, error)
}
