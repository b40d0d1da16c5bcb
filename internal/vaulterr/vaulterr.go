// Package vaulterr classifies errors raised by the reward vault engine.
package vaulterr

import (
	"errors"
	"fmt"
)

// Kind discriminates the error classes the engine can surface. Callers at a
// boundary (the HTTP API, a CLI) branch on Kind rather than parsing messages.
type Kind int

const (
	// KindInternal covers lock poisoning and other invariant violations.
	KindInternal Kind = iota
	// KindInvalidArgument covers malformed or out-of-range input.
	KindInvalidArgument
	// KindNotFound covers lookups against an unknown vault id.
	KindNotFound
	// KindSerialization covers canonical encode/decode failures.
	KindSerialization
	// KindDependencyFailure covers errors returned by the DLV adapter.
	KindDependencyFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid-argument"
	case KindNotFound:
		return "not-found"
	case KindSerialization:
		return "serialization"
	case KindDependencyFailure:
		return "dependency-failure"
	default:
		return "internal"
	}
}

// Error wraps a cause with a Kind so callers can classify it with errors.As.
type Error struct {
	Kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

func newf(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

// InvalidArgument builds a KindInvalidArgument error.
func InvalidArgument(format string, args ...interface{}) error {
	return newf(KindInvalidArgument, nil, format, args...)
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...interface{}) error {
	return newf(KindNotFound, nil, format, args...)
}

// Serialization wraps cause as a KindSerialization error.
func Serialization(cause error, format string, args ...interface{}) error {
	return newf(KindSerialization, cause, format, args...)
}

// DependencyFailure wraps cause as a KindDependencyFailure error.
func DependencyFailure(cause error, format string, args ...interface{}) error {
	return newf(KindDependencyFailure, cause, format, args...)
}

// Internal builds a KindInternal error from a bare message; it wraps no cause.
func Internal(format string, args ...interface{}) error {
	return newf(KindInternal, nil, format, args...)
}

// KindOf extracts the Kind of err, defaulting to KindInternal when err was
// not produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
