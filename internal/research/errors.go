package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Kind classifies a failed research call.
type Kind string

const (
	KindServiceUnavailable Kind = "ServiceUnavailable"
	KindRateLimited        Kind = "RateLimited"
	KindMalformedResponse  Kind = "MalformedResponse"
	KindAuth               Kind = "AuthError"
)

// Retryable reports whether a call failing with k may be attempted again.
func (k Kind) Retryable() bool {
	return k == KindServiceUnavailable || k == KindRateLimited
}

// ErrMissingAPIKey is wrapped in an AuthError when no credential is configured.
var ErrMissingAPIKey = errors.New("api key not configured")

// Error is a classified provider failure.
type Error struct {
	Provider   string
	Kind       Kind
	StatusCode int
	// RetryAfter is the server-requested wait, zero when none was sent.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AuthError means the provider rejected or never received credentials.
// It aborts a whole suggestion batch.
type AuthError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: authentication failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// KindOf classifies any error returned by a Client.
func KindOf(err error) Kind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return KindAuth
	}
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return KindServiceUnavailable
}

// RetryAfterOf returns the server-requested wait carried by err, if any.
func RetryAfterOf(err error) time.Duration {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.RetryAfter
	}
	return 0
}

// FromStatus maps an HTTP status code onto the error taxonomy.
func FromStatus(provider string, status int, retryAfter time.Duration, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{Provider: provider, StatusCode: status, Err: err}
	case status == http.StatusTooManyRequests:
		return &Error{Provider: provider, Kind: KindRateLimited, StatusCode: status, RetryAfter: retryAfter, Err: err}
	case status == http.StatusRequestTimeout || status >= 500:
		return &Error{Provider: provider, Kind: KindServiceUnavailable, StatusCode: status, Err: err}
	default:
		return &Error{Provider: provider, Kind: KindMalformedResponse, StatusCode: status, Err: err}
	}
}

// FromTransport classifies an error that happened before any response arrived:
// timeouts, refused connections and resets are all ServiceUnavailable. A
// cancelled caller context is returned unchanged.
func FromTransport(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return err
	}
	return &Error{Provider: provider, Kind: KindServiceUnavailable, Err: err}
}

// ParseRetryAfter reads a Retry-After header given as seconds or an HTTP date.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func malformed(provider string, err error) error {
	return &Error{Provider: provider, Kind: KindMalformedResponse, Err: err}
}
