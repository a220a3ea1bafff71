package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/core"
)

// cacheKeyBodyPrefix is how many body bytes feed the cache key, chosen so
// near-identical resends still hit the cache.
const cacheKeyBodyPrefix = 256

// Engine is the two-tier content classifier. The cheap pre-filter always
// runs; the expensive tier is either the LLM (entitlement-gated, with
// keyword fallback) or the keyword classifier. Classification never returns
// an error to the caller.
type Engine struct {
	keyword          *KeywordClassifier
	llm              core.LLMClient
	cache            core.AnalysisCache
	logger           *zap.Logger
	cacheTTL         time.Duration
	llmCacheTTL      time.Duration
	llmMinConfidence float64
	llmDownOnce      sync.Once
}

// NewEngine creates a new classification engine. llm may be nil when no LLM
// provider is configured; cache may be nil to disable memoization.
func NewEngine(
	keyword *KeywordClassifier,
	llm core.LLMClient,
	cache core.AnalysisCache,
	logger *zap.Logger,
	cacheTTL time.Duration,
	llmCacheTTL time.Duration,
	llmMinConfidence float64,
) *Engine {
	return &Engine{
		keyword:          keyword,
		llm:              llm,
		cache:            cache,
		logger:           logger,
		cacheTTL:         cacheTTL,
		llmCacheTTL:      llmCacheTTL,
		llmMinConfidence: llmMinConfidence,
	}
}

// CacheKey returns the stable memoization key for one message as seen by one
// user: a hash over sender, subject and the leading body bytes.
func CacheKey(userID, from, subject, body string) string {
	if len(body) > cacheKeyBodyPrefix {
		body = body[:cacheKeyBodyPrefix]
	}
	h := sha256.New()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(from)))
	h.Write([]byte{0})
	h.Write([]byte(subject))
	h.Write([]byte{0})
	h.Write([]byte(body))
	return hex.EncodeToString(h.Sum(nil))
}

// Classify classifies one envelope for one user.
func (e *Engine) Classify(ctx context.Context, userID string, env *core.Envelope, llmEnabled bool) *core.ClassificationResult {
	// Marketing guard runs before any scoring, regardless of tier.
	if hit, indicator := IsMarketing(env.Subject, env.Body); hit {
		return &core.ClassificationResult{
			IsJobRelated:   false,
			Confidence:     0,
			MatchedSignals: []string{indicator},
			Reasoning:      "promotional indicator present",
			Tier:           core.TierPrefilter,
			AnalyzedAt:     time.Now(),
		}
	}

	// Known-platform shortcut: job board sender plus an "applied to X at Y"
	// subject skips the expensive tier entirely.
	if result := e.platformShortcut(env); result != nil {
		return result
	}

	// Cheap gate. Runs identically whatever expensive tier is enabled.
	if ok, hits := Prefilter(env.Subject, env.Body); !ok {
		return &core.ClassificationResult{
			IsJobRelated:   false,
			Confidence:     0,
			MatchedSignals: hits,
			Reasoning:      "no job signals in subject or body prefix",
			Tier:           core.TierPrefilter,
			AnalyzedAt:     time.Now(),
		}
	}

	key := CacheKey(userID, env.From, env.Subject, env.Body)
	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, key); ok {
			e.logger.Debug("analysis cache hit", zap.String("message_id", env.MessageID))
			out := *cached
			out.Tier = core.TierCache
			return &out
		}
	}

	var result *core.ClassificationResult
	if llmEnabled && e.llm != nil {
		result = e.classifyWithLLM(ctx, env)
	}
	if result == nil {
		result = e.keyword.Classify(env)
	}

	if e.cache != nil {
		ttl := e.cacheTTL
		if result.Tier == core.TierLLM {
			// LLM results are expensive; keep them for the long tier.
			ttl = e.llmCacheTTL
		}
		now := time.Now()
		entry := &core.CacheEntry{
			Key:       key,
			UserID:    userID,
			Result:    *result,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		if err := e.cache.Set(ctx, entry); err != nil {
			e.logger.Error("failed to update analysis cache", zap.Error(err))
		}
	}

	return result
}

// platformShortcut extracts company and position straight from the subject
// when the sender is a known job platform.
func (e *Engine) platformShortcut(env *core.Envelope) *core.ClassificationResult {
	at := strings.LastIndex(env.From, "@")
	if at < 0 || at == len(env.From)-1 {
		return nil
	}
	domain := strings.ToLower(strings.Trim(env.From[at+1:], "> "))
	if !isJobPlatformDomain(domain) {
		return nil
	}

	m := positionAtCompanyRe.FindStringSubmatch(env.Subject)
	if m == nil {
		return nil
	}

	status, _, signals := ResolveStatus(env.Subject + " " + env.Body)
	return &core.ClassificationResult{
		IsJobRelated:   true,
		Company:        strings.TrimSpace(m[2]),
		Position:       strings.TrimSpace(m[1]),
		Status:         status,
		JobURL:         extractJobURL(env.Body),
		Confidence:     0.9,
		MatchedSignals: append([]string{domain}, signals...),
		Reasoning:      "known job platform sender",
		Tier:           core.TierPlatform,
		AnalyzedAt:     time.Now(),
	}
}

// classifyWithLLM runs the LLM tier and applies the strict validation gate.
// Any failure degrades to the keyword tier by returning nil.
func (e *Engine) classifyWithLLM(ctx context.Context, env *core.Envelope) *core.ClassificationResult {
	result, err := e.llm.AnalyzeEmail(ctx, env)
	if err != nil {
		e.llmDownOnce.Do(func() {
			e.logger.Warn("LLM tier unavailable, falling back to keyword tier", zap.Error(err))
		})
		e.logger.Debug("LLM classification failed",
			zap.String("message_id", env.MessageID), zap.Error(err))
		return nil
	}

	// The response is untrusted input: normalize before use.
	if !result.Status.Valid() {
		result.Status = core.StatusApplied
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	if result.Company == "" {
		result.Company = core.UnknownCompany
	}
	if result.Position == "" {
		result.Position = core.UnknownPosition
	}
	result.Tier = core.TierLLM

	// Low-confidence results are rejected rather than surfaced.
	if result.IsJobRelated && result.Confidence < e.llmMinConfidence {
		e.logger.Debug("LLM result below confidence threshold",
			zap.String("message_id", env.MessageID),
			zap.Float64("confidence", result.Confidence))
		result.IsJobRelated = false
	}

	return result
}
