// Package gmail implements the mailbox connector for Gmail over the OAuth2
// REST API.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/applizz/jobmail/internal/core"
	"github.com/applizz/jobmail/internal/utils"
)

// fetchConcurrency bounds parallel message downloads to stay under the API
// rate limits.
const fetchConcurrency = 5

// Connector fetches messages through the Gmail REST API, refreshing the
// OAuth token pair transparently and persisting rotations.
type Connector struct {
	oauthConfig  *oauth2.Config
	credentials  core.CredentialStore
	processor    *utils.TextProcessor
	logger       *zap.Logger
	maxRetries   int
	retryBackoff time.Duration
	refreshes    singleflight.Group
}

// NewConnector creates a new Gmail connector.
func NewConnector(oauthConfig *oauth2.Config, credentials core.CredentialStore, processor *utils.TextProcessor, logger *zap.Logger, maxRetries int, retryBackoff time.Duration) *Connector {
	return &Connector{
		oauthConfig:  oauthConfig,
		credentials:  credentials,
		processor:    processor,
		logger:       logger,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
	}
}

// Fetch retrieves messages received after the watermark, capped at limit.
// Envelopes obtained before a failure are returned together with the error.
func (c *Connector) Fetch(ctx context.Context, creds *core.MailCredentials, since time.Time, limit int) ([]core.Envelope, error) {
	token, err := c.freshToken(ctx, creds)
	if err != nil {
		return nil, err
	}

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return nil, &core.ProtocolError{Op: "service", Err: err}
	}

	query := fmt.Sprintf("after:%d", since.Unix())
	var list *gmailapi.ListMessagesResponse
	err = c.withRetry(ctx, "list", func() error {
		var err error
		list, err = svc.Users.Messages.List("me").
			Q(query).
			MaxResults(int64(limit)).
			Context(ctx).
			Do()
		if err != nil {
			return classifyAPIError("list", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(list.Messages) == 0 {
		return nil, nil
	}

	return c.fetchAll(ctx, svc, list.Messages)
}

// freshToken returns a valid access token, refreshing and persisting the
// pair when expired. Refresh is single-flight per user so concurrent scans
// never race two refreshes.
func (c *Connector) freshToken(ctx context.Context, creds *core.MailCredentials) (*oauth2.Token, error) {
	current := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       creds.TokenExpiry,
	}
	if current.Valid() {
		return current, nil
	}

	result, err, _ := c.refreshes.Do(creds.UserID, func() (interface{}, error) {
		refreshed, err := c.oauthConfig.TokenSource(ctx, current).Token()
		if err != nil {
			return nil, &core.AuthError{Provider: core.ProviderGmail, Err: err}
		}
		if refreshed.RefreshToken == "" {
			refreshed.RefreshToken = current.RefreshToken
		}
		if err := c.credentials.SaveToken(ctx, creds.UserID, refreshed.AccessToken, refreshed.RefreshToken, refreshed.Expiry); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
		}
		c.logger.Info("refreshed Gmail OAuth token", zap.String("user_id", creds.UserID))
		return refreshed, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*oauth2.Token), nil
}

// fetchAll downloads message details with bounded concurrency and keeps
// list order in the result.
func (c *Connector) fetchAll(ctx context.Context, svc *gmailapi.Service, refs []*gmailapi.Message) ([]core.Envelope, error) {
	type slot struct {
		env *core.Envelope
		err error
	}

	slots := make([]slot, len(refs))
	sem := make(chan struct{}, fetchConcurrency)
	done := make(chan int, len(refs))

	for i, ref := range refs {
		go func(idx int, id string) {
			sem <- struct{}{}
			defer func() { <-sem }()

			var msg *gmailapi.Message
			err := c.withRetry(ctx, "get", func() error {
				var err error
				msg, err = svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
				if err != nil {
					return classifyAPIError("get", err)
				}
				return nil
			})
			if err != nil {
				slots[idx] = slot{err: err}
			} else {
				env, err := c.toEnvelope(msg)
				slots[idx] = slot{env: env, err: err}
			}
			done <- idx
		}(i, ref.Id)
	}
	for range refs {
		<-done
	}

	var envelopes []core.Envelope
	var fetchErr error
	for _, s := range slots {
		switch {
		case s.err == nil && s.env != nil:
			envelopes = append(envelopes, *s.env)
		case core.IsAuthError(s.err) || core.IsRateLimitError(s.err) || core.IsProtocolError(s.err):
			// Connection-level problem: surface it, keep what we have.
			if fetchErr == nil {
				fetchErr = s.err
			}
		default:
			// Malformed single message: skip, never abort the batch.
			c.logger.Warn("skipping malformed Gmail message", zap.Error(s.err))
		}
	}
	return envelopes, fetchErr
}

// toEnvelope normalizes one Gmail message.
func (c *Connector) toEnvelope(msg *gmailapi.Message) (*core.Envelope, error) {
	if msg.Payload == nil {
		return nil, &core.ParseError{MessageID: msg.Id, Err: fmt.Errorf("message has no payload")}
	}

	var subject, from string
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			subject = h.Value
		case "From":
			from = h.Value
			if addr, err := mail.ParseAddress(h.Value); err == nil {
				from = addr.Address
			}
		}
	}

	body := extractBody(msg.Payload)
	return &core.Envelope{
		MessageID:  msg.Id,
		Subject:    subject,
		From:       from,
		ReceivedAt: time.UnixMilli(msg.InternalDate),
		Body:       c.processor.NormalizeWhitespace(body),
	}, nil
}

// extractBody walks the payload parts: text/plain wins, text/html converts
// as a fallback, nested multiparts recurse.
func extractBody(part *gmailapi.MessagePart) string {
	if part == nil {
		return ""
	}

	if strings.HasPrefix(part.MimeType, "multipart/") || len(part.Parts) > 0 {
		var htmlFallback string
		for _, p := range part.Parts {
			switch {
			case p.MimeType == "text/plain":
				if text := decodePartBody(p); strings.TrimSpace(text) != "" {
					return text
				}
			case p.MimeType == "text/html" && htmlFallback == "":
				htmlFallback = utils.HTMLToText(decodePartBody(p))
			default:
				if nested := extractBody(p); strings.TrimSpace(nested) != "" {
					return nested
				}
			}
		}
		return htmlFallback
	}

	text := decodePartBody(part)
	if part.MimeType == "text/html" {
		return utils.HTMLToText(text)
	}
	return text
}

func decodePartBody(part *gmailapi.MessagePart) string {
	if part.Body == nil || part.Body.Data == "" {
		return ""
	}
	// Gmail serves both padded and unpadded base64url.
	raw, err := base64.URLEncoding.DecodeString(part.Body.Data)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return ""
		}
	}
	return string(raw)
}

// withRetry runs fn with bounded backoff. Rate-limited calls honor the
// provider's Retry-After; auth failures are never retried.
func (c *Connector) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryBackoff * time.Duration(attempt)
			var rl *core.RateLimitError
			if errors.As(lastErr, &rl) && rl.RetryAfter > 0 {
				delay = rl.RetryAfter
			}
			select {
			case <-ctx.Done():
				return &core.ProtocolError{Op: op, Err: ctx.Err()}
			case <-time.After(delay):
			}
			c.logger.Debug("retrying Gmail call",
				zap.String("op", op), zap.Int("attempt", attempt))
		}

		err := fn()
		if err == nil {
			return nil
		}
		if core.IsAuthError(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// classifyAPIError maps Gmail API failures onto the connector error
// taxonomy.
func classifyAPIError(op string, err error) error {
	if apiErr, ok := err.(*googleapi.Error); ok {
		switch apiErr.Code {
		case 401, 403:
			return &core.AuthError{Provider: core.ProviderGmail, Err: err}
		case 429:
			return &core.RateLimitError{RetryAfter: retryAfter(apiErr.Header), Err: err}
		}
	}
	return &core.ProtocolError{Op: op, Err: err}
}

func retryAfter(h http.Header) time.Duration {
	if secs, err := strconv.Atoi(h.Get("Retry-After")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
