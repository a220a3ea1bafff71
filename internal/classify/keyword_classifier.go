package classify

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/core"
)

const (
	// prefilterBodyLimit bounds how much body text the cheap gate reads.
	prefilterBodyLimit = 1000
	// phraseWeight is the multiplier for multi-word phrase hits.
	phraseWeight = 1.5
	// minPrefilterKeywords is the taxonomy-keyword count that passes the
	// gate when no strong phrase is present.
	minPrefilterKeywords = 2
)

var (
	positionRe          = regexp.MustCompile(`\b((?:[A-Z][A-Za-z+#]*\s+){0,3}(?:` + strings.Join(jobTitleSuffixes, "|") + `))\b`)
	companySuffixRe     = regexp.MustCompile(`\b([A-Z][A-Za-z0-9&\- ]{1,40}?),?\s+(?:Inc|LLC|Corp|Corporation|Ltd|GmbH)\b`)
	positionAtCompanyRe = regexp.MustCompile(`(?i)(?:applied to|applying to|applying for|application (?:for|to))\s+(?:the\s+)?(.{2,60}?)\s+(?:position\s+|role\s+)?at\s+([A-Za-z0-9&.\- ]{2,40})`)
	jobURLRe            = regexp.MustCompile(`https?://[^\s<>"')]+`)
	deadlineRe          = regexp.MustCompile(`(?i)(?:deadline|apply by|respond by|reply by|no later than)[:\s]+([A-Za-z]+ \d{1,2},? \d{4}|\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4})`)
)

// KeywordClassifier is the always-available classification tier. It scores
// envelope text against the status taxonomies and extracts company, position,
// URL and deadline with regular expressions.
type KeywordClassifier struct {
	logger *zap.Logger
}

// NewKeywordClassifier creates a new keyword classifier.
func NewKeywordClassifier(logger *zap.Logger) *KeywordClassifier {
	return &KeywordClassifier{logger: logger}
}

// Prefilter is the cheap gate that decides whether an email is worth
// expensive classification: one strong multi-word phrase, or at least two
// keywords from any category of the taxonomy, across the subject and the
// first kilobyte of body. It runs identically regardless of which expensive
// tier is enabled.
func Prefilter(subject, body string) (bool, []string) {
	if len(body) > prefilterBodyLimit {
		body = body[:prefilterBodyLimit]
	}
	text := strings.ToLower(subject + " " + body)

	for _, phrase := range strongPhrases {
		if strings.Contains(text, phrase) {
			return true, []string{phrase}
		}
	}

	var hits []string
	for _, kw := range prefilterPool {
		hit := false
		if strings.Contains(kw, " ") {
			hit = strings.Contains(text, kw)
		} else {
			hit = containsWord(text, kw)
		}
		if hit {
			hits = append(hits, kw)
			if len(hits) >= minPrefilterKeywords {
				return true, hits
			}
		}
	}
	return false, hits
}

// IsMarketing reports whether the text carries promotional indicators. A hit
// forces a non-job classification before any other scoring.
func IsMarketing(subject, body string) (bool, string) {
	text := strings.ToLower(subject + " " + body)
	for _, ind := range marketingIndicators {
		if strings.Contains(text, ind) {
			return true, ind
		}
	}
	return false, ""
}

// ResolveStatus tallies keyword hits per status with the multi-word bonus
// and picks the maximum. Ties break in declaration order (Applied first);
// all-zero scores default to Applied.
func ResolveStatus(text string) (core.Status, float64, []string) {
	text = strings.ToLower(text)

	best := core.StatusApplied
	bestScore := 0.0
	var bestSignals []string

	for _, sk := range statusKeywords {
		score := 0.0
		var signals []string
		for _, kw := range sk.keywords {
			if !strings.Contains(text, kw) {
				continue
			}
			if strings.Contains(kw, " ") {
				score += phraseWeight
			} else {
				score++
			}
			signals = append(signals, kw)
		}
		if score > bestScore {
			best = sk.status
			bestScore = score
			bestSignals = signals
		}
	}
	return best, bestScore, bestSignals
}

// Classify runs the keyword tier over one envelope. The pre-filter is
// assumed to have passed already.
func (c *KeywordClassifier) Classify(env *core.Envelope) *core.ClassificationResult {
	text := env.Subject + " " + env.Body
	status, score, signals := ResolveStatus(text)

	company := extractCompany(env.From, env.Subject, env.Body)
	position := extractPosition(env.Subject, env.Body)

	// Subject patterns like "applied to X at Y" beat the generic regexes.
	if m := positionAtCompanyRe.FindStringSubmatch(env.Subject); m != nil {
		position = strings.TrimSpace(m[1])
		company = strings.TrimSpace(m[2])
	}

	result := &core.ClassificationResult{
		IsJobRelated:   true,
		Company:        orPlaceholder(company, core.UnknownCompany),
		Position:       orPlaceholder(position, core.UnknownPosition),
		Status:         status,
		JobURL:         extractJobURL(env.Body),
		Deadline:       extractDeadline(text),
		Confidence:     keywordConfidence(company, position, score),
		MatchedSignals: signals,
		Reasoning:      "keyword scoring",
		Tier:           core.TierKeyword,
		AnalyzedAt:     time.Now(),
	}

	c.logger.Debug("keyword tier classified email",
		zap.String("message_id", env.MessageID),
		zap.String("company", result.Company),
		zap.String("position", result.Position),
		zap.String("status", string(result.Status)),
		zap.Float64("confidence", result.Confidence))

	return result
}

// keywordConfidence derives confidence from how many of company/position
// resolved, with a small bonus for keyword density.
func keywordConfidence(company, position string, score float64) float64 {
	conf := 0.5
	if company != "" {
		conf += 0.2
	}
	if position != "" {
		conf += 0.2
	}
	bonus := score * 0.02
	if bonus > 0.1 {
		bonus = 0.1
	}
	conf += bonus
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

// extractCompany resolves the employer from the sender domain, falling back
// to corporate-suffix patterns in the body. Generic webmail domains never
// identify an employer.
func extractCompany(from, subject, body string) string {
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain := strings.ToLower(strings.Trim(from[at+1:], "> "))
		label := domain
		if dot := strings.Index(domain, "."); dot > 0 {
			label = domain[:dot]
		}
		if !isGenericMailDomain(label) && !isJobPlatformDomain(domain) && label != "" {
			return titleCase(label)
		}
	}

	if m := companySuffixRe.FindStringSubmatch(subject + " " + prefix(body, 500)); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// extractPosition matches a capitalized phrase ending in a known job-title
// suffix, searching the subject before the start of the body.
func extractPosition(subject, body string) string {
	if m := positionRe.FindStringSubmatch(subject); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := positionRe.FindStringSubmatch(prefix(body, 500)); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// extractJobURL prefers links that look like postings over the first link.
func extractJobURL(body string) string {
	urls := jobURLRe.FindAllString(body, 10)
	for _, u := range urls {
		lower := strings.ToLower(u)
		for _, token := range []string{"job", "career", "apply", "position", "greenhouse", "lever", "workday"} {
			if strings.Contains(lower, token) {
				return u
			}
		}
	}
	return ""
}

var deadlineLayouts = []string{"January 2, 2006", "January 2 2006", "2006-01-02", "1/2/2006"}

func extractDeadline(text string) *time.Time {
	m := deadlineRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(m[1])); err == nil {
			return &t
		}
	}
	return nil
}

func isGenericMailDomain(label string) bool {
	for _, d := range genericMailDomains {
		if label == d {
			return true
		}
	}
	return false
}

func isJobPlatformDomain(domain string) bool {
	for _, d := range jobPlatformDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

// containsWord matches kw on word boundaries so "job" does not hit "jobber".
func containsWord(text, kw string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
		if idx >= len(text) {
			return false
		}
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func orPlaceholder(v, placeholder string) string {
	if strings.TrimSpace(v) == "" {
		return placeholder
	}
	return strings.TrimSpace(v)
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
