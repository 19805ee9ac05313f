// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package match

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable machine-readable error classification. Every error
// surfaced by the engine carries exactly one kind.
type ErrorKind string

const (
	// KindNotFound marks an unknown campaign or influencer identifier.
	// Surfaced to the caller, never retried.
	KindNotFound ErrorKind = "NOT_FOUND"

	// KindConfiguration marks an invalid engine configuration.
	// Fatal at startup, never produced at request time.
	KindConfiguration ErrorKind = "CONFIGURATION"

	// KindTimeout marks a signal-provider or whole-request budget overrun.
	// Surfaced as retryable.
	KindTimeout ErrorKind = "TIMEOUT"

	// KindOverloaded marks concurrency-ceiling exhaustion.
	// Surfaced with a retry-later suggestion.
	KindOverloaded ErrorKind = "OVERLOADED"

	// KindCacheUnavailable marks a cache backend failure. Recovered locally
	// by bypassing the cache; never surfaced to the caller.
	KindCacheUnavailable ErrorKind = "CACHE_UNAVAILABLE"

	// KindTransient marks a retryable dependency failure that is not a
	// timeout (connection reset, breaker open).
	KindTransient ErrorKind = "TRANSIENT"

	// KindInternal marks everything else.
	KindInternal ErrorKind = "INTERNAL"
)

// Error is the engine error type: a kind plus a human-readable message,
// optionally wrapping a cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// E constructs an engine error.
func E(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// Ef constructs an engine error with a formatted message.
func Ef(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of an error, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is an unknown-identifier error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsTransient reports whether err should be retried before surfacing.
func IsTransient(err error) bool {
	k := KindOf(err)
	return k == KindTimeout || k == KindTransient || k == KindCacheUnavailable
}
