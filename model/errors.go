package model

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a provider failure so higher layers can pick a recovery
// strategy without inspecting provider-specific error types.
type Kind string

const (
	// KindTimeout marks a request that hit its deadline.
	KindTimeout Kind = "timeout"
	// KindRateLimit marks HTTP 429 responses; the client retries these once.
	KindRateLimit Kind = "rate_limit"
	// KindAuth marks credential problems (HTTP 401/403).
	KindAuth Kind = "auth"
	// KindServer marks provider-side failures (HTTP 5xx).
	KindServer Kind = "server"
	// KindClient marks request problems the caller must fix (other 4xx).
	KindClient Kind = "client"
)

// Error is the normalized provider error surfaced by adapters.
type Error struct {
	Kind     Kind   // Failure class
	Provider string // "openai", "anthropic", ...
	Status   int    // HTTP status when known, 0 otherwise
	Message  string // Human-readable detail
	Err      error  // Underlying cause
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error (%s, status %d): %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// FromStatus builds an Error from an HTTP status code using the shared
// status-to-kind mapping.
func FromStatus(provider string, status int, err error) *Error {
	kind := KindClient
	switch {
	case status == 401 || status == 403:
		kind = KindAuth
	case status == 408:
		kind = KindTimeout
	case status == 429:
		kind = KindRateLimit
	case status >= 500:
		kind = KindServer
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: kind, Provider: provider, Status: status, Message: msg, Err: err}
}

// Wrap normalizes an arbitrary adapter error: context deadlines become
// KindTimeout, already-classified errors pass through, everything else is
// KindServer.
func Wrap(provider string, err error) *Error {
	if err == nil {
		return nil
	}
	var me *Error
	if errors.As(err, &me) {
		return me
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Provider: provider, Message: err.Error(), Err: err}
	}
	return &Error{Kind: KindServer, Provider: provider, Message: err.Error(), Err: err}
}

// IsKind reports whether err carries the given failure class.
func IsKind(err error, kind Kind) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind == kind
	}
	return false
}

// IsRateLimit reports whether err is a rate limit failure.
func IsRateLimit(err error) bool { return IsKind(err, KindRateLimit) }

// IsTimeout reports whether err is a timeout, either classified or a raw
// context deadline.
func IsTimeout(err error) bool {
	return IsKind(err, KindTimeout) || errors.Is(err, context.DeadlineExceeded)
}
