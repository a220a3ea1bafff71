package core

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors surfaced to callers of the scan service.
var (
	// ErrNoProvider is returned when a user has no mailbox connected.
	ErrNoProvider = errors.New("no mail provider configured")
	// ErrScanCooldown is returned when a scan completed too recently.
	ErrScanCooldown = errors.New("scan completed recently, try again later")
	// ErrScanDisabled is returned when the user is not entitled to scan.
	ErrScanDisabled = errors.New("email scanning is not enabled for this user")
	// ErrNotFound is a generic lookup miss for store implementations.
	ErrNotFound = errors.New("not found")
)

// AuthError indicates expired or invalid mailbox credentials. It is never
// retried; the user must reconnect their mailbox.
type AuthError struct {
	Provider ProviderKind
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RateLimitError indicates the provider throttled us. Retried with backoff
// up to a bounded attempt count.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider rate limit: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// ProtocolError indicates an IMAP or network level failure. The fetch is
// aborted after bounded retries; envelopes obtained before the failure are
// still returned so the scan can proceed partially.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error during %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ParseError indicates a single malformed message or malformed LLM output.
// The item is skipped; the batch is never aborted over it.
type ParseError struct {
	MessageID string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse message %s: %v", e.MessageID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsRateLimitError reports whether err is (or wraps) a RateLimitError.
func IsRateLimitError(err error) bool {
	var re *RateLimitError
	return errors.As(err, &re)
}

// IsProtocolError reports whether err is (or wraps) a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
