// Package imapmail implements the mailbox connector for IMAP providers
// authenticated with an address and app password.
package imapmail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/core"
)

// searchSubjects narrows the SINCE search before expensive classification.
// Results of the individual searches are unioned.
var searchSubjects = []string{"application", "interview", "offer", "position", "job"}

// Connector fetches messages over IMAP4 with TLS. Sessions are logged out
// on every exit path.
type Connector struct {
	logger         *zap.Logger
	connectTimeout time.Duration
	commandTimeout time.Duration
	maxRetries     int
	retryBackoff   time.Duration
}

// NewConnector creates a new IMAP connector.
func NewConnector(logger *zap.Logger, connectTimeout, commandTimeout time.Duration, maxRetries int, retryBackoff time.Duration) *Connector {
	return &Connector{
		logger:         logger,
		connectTimeout: connectTimeout,
		commandTimeout: commandTimeout,
		maxRetries:     maxRetries,
		retryBackoff:   retryBackoff,
	}
}

// Fetch retrieves messages received since the watermark, newest first,
// capped at limit. Envelopes obtained before a connection failure are
// returned together with the error.
func (c *Connector) Fetch(ctx context.Context, creds *core.MailCredentials, since time.Time, limit int) ([]core.Envelope, error) {
	if creds.EmailAddress == "" || creds.AppPassword == "" {
		return nil, &core.AuthError{Provider: core.ProviderIMAP, Err: fmt.Errorf("missing email address or app password")}
	}

	cli, err := c.dial(ctx, creds.IMAPHost)
	if err != nil {
		return nil, err
	}
	// The session must be closed on every exit path.
	defer func() {
		if err := cli.Logout(); err != nil {
			c.logger.Debug("IMAP logout failed", zap.Error(err))
		}
	}()

	if err := cli.Login(creds.EmailAddress, creds.AppPassword); err != nil {
		return nil, &core.AuthError{Provider: core.ProviderIMAP, Err: err}
	}

	if _, err := cli.Select("INBOX", true); err != nil {
		return nil, &core.ProtocolError{Op: "select", Err: err}
	}

	uids, err := c.search(ctx, cli, since)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, nil
	}

	// Newest first, capped at limit.
	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	if len(uids) > limit {
		uids = uids[:limit]
	}

	return c.fetchMessages(ctx, cli, uids)
}

// withRetry runs fn with bounded linear backoff. Auth failures are never
// retried.
func (c *Connector) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return &core.ProtocolError{Op: op, Err: ctx.Err()}
			case <-time.After(c.retryBackoff * time.Duration(attempt)):
			}
			c.logger.Debug("retrying IMAP command",
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

// dial opens the TLS session with bounded retries for transient connection
// errors. TLS 1.2 is the floor.
func (c *Connector) dial(ctx context.Context, host string) (*client.Client, error) {
	if host == "" {
		return nil, &core.ProtocolError{Op: "dial", Err: fmt.Errorf("no IMAP host configured")}
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "993")
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: c.connectTimeout}

	var cli *client.Client
	err := c.withRetry(ctx, "dial", func() error {
		var err error
		cli, err = client.DialWithDialerTLS(dialer, host, tlsConfig)
		if err != nil {
			return &core.ProtocolError{Op: "dial", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cli.Timeout = c.commandTimeout
	return cli, nil
}

// search issues one SINCE + subject-keyword search per keyword and unions
// the UID sets. Each search command is retried with backoff.
func (c *Connector) search(ctx context.Context, cli *client.Client, since time.Time) ([]uint32, error) {
	seen := make(map[uint32]bool)
	var uids []uint32

	for _, subject := range searchSubjects {
		criteria := imap.NewSearchCriteria()
		criteria.Since = since
		criteria.Header.Add("Subject", subject)

		var found []uint32
		err := c.withRetry(ctx, "search", func() error {
			var err error
			found, err = cli.UidSearch(criteria)
			if err != nil {
				return &core.ProtocolError{Op: "search", Err: err}
			}
			return nil
		})
		if err != nil {
			return uids, err
		}
		for _, uid := range found {
			if !seen[uid] {
				seen[uid] = true
				uids = append(uids, uid)
			}
		}
	}
	return uids, nil
}

// fetchMessages downloads the UID set, retrying the whole fetch command
// with backoff as long as no envelope has come back yet. Once anything has
// been collected a failure returns the partial batch instead, so the caller
// never sees the same message twice.
func (c *Connector) fetchMessages(ctx context.Context, cli *client.Client, uids []uint32) ([]core.Envelope, error) {
	var envelopes []core.Envelope
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return envelopes, &core.ProtocolError{Op: "fetch", Err: ctx.Err()}
			case <-time.After(c.retryBackoff * time.Duration(attempt)):
			}
			c.logger.Debug("retrying IMAP fetch", zap.Int("attempt", attempt))
		}

		envelopes, lastErr = c.fetchOnce(cli, uids)
		if lastErr == nil || len(envelopes) > 0 {
			return envelopes, lastErr
		}
	}
	return envelopes, lastErr
}

// fetchOnce downloads the full RFC822 body of each UID and normalizes it
// into an Envelope. Malformed messages are skipped, never fatal.
func (c *Connector) fetchOnce(cli *client.Client, uids []uint32) ([]core.Envelope, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid, imap.FetchInternalDate}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- cli.UidFetch(seqset, items, messages)
	}()

	var envelopes []core.Envelope
	for msg := range messages {
		env, err := c.toEnvelope(msg, section)
		if err != nil {
			c.logger.Warn("skipping malformed message",
				zap.Uint32("uid", msg.Uid), zap.Error(err))
			continue
		}
		envelopes = append(envelopes, *env)
	}

	if err := <-done; err != nil {
		return envelopes, &core.ProtocolError{Op: "fetch", Err: err}
	}
	return envelopes, nil
}

func (c *Connector) toEnvelope(msg *imap.Message, section *imap.BodySectionName) (*core.Envelope, error) {
	literal := msg.GetBody(section)
	if literal == nil {
		return nil, fmt.Errorf("message has no body section")
	}

	parsed, err := mail.ReadMessage(literal)
	if err != nil {
		return nil, &core.ParseError{MessageID: fmt.Sprintf("uid:%d", msg.Uid), Err: err}
	}

	body, err := extractBody(parsed)
	if err != nil {
		return nil, &core.ParseError{MessageID: fmt.Sprintf("uid:%d", msg.Uid), Err: err}
	}

	from := parsed.Header.Get("From")
	if addr, err := mail.ParseAddress(from); err == nil {
		from = addr.Address
	}

	receivedAt := msg.InternalDate
	if date, err := parsed.Header.Date(); err == nil {
		receivedAt = date
	}

	return &core.Envelope{
		MessageID:  fmt.Sprintf("uid:%d", msg.Uid),
		Subject:    parsed.Header.Get("Subject"),
		From:       from,
		ReceivedAt: receivedAt,
		Body:       body,
	}, nil
}
