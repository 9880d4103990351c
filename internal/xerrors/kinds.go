// Package xerrors defines the fixed set of error kinds the core pipeline
// can fail with, and wraps them with github.com/mdobak/go-xerrors so
// failures carry a stack trace through the pipeline for --verbose logging.
package xerrors

import (
	"errors"
	"fmt"

	goxerrors "github.com/mdobak/go-xerrors"
)

// Kind is one of the abstract error kinds from the fingerprinting spec.
type Kind string

const (
	UnsupportedInput      Kind = "UnsupportedInput"
	DecodeError           Kind = "DecodeError"
	IoError               Kind = "IoError"
	InvalidMagic          Kind = "InvalidMagic"
	UnsupportedVersion    Kind = "UnsupportedVersion"
	ChecksumMismatch      Kind = "ChecksumMismatch"
	TruncatedFile         Kind = "TruncatedFile"
	MetadataDecodeError   Kind = "MetadataDecodeError"
	CorpusEmpty           Kind = "CorpusEmpty"
	QueryUnreadable       Kind = "QueryUnreadable"
	Cancelled             Kind = "Cancelled"
	InternalInvariant     Kind = "InternalInvariantViolated"
)

// kindError pairs an abstract Kind with its underlying cause so callers
// can branch on Kind via errors.As while the message stays human-readable.
type kindError struct {
	kind  Kind
	cause error
}

func (e *kindError) Error() string {
	if e.cause == nil {
		return string(e.kind)
	}
	return fmt.Sprintf("%s: %v", e.kind, e.cause)
}

func (e *kindError) Unwrap() error { return e.cause }

// New wraps cause (which may be nil) with kind and a stack trace.
func New(kind Kind, cause error) error {
	return goxerrors.New(&kindError{kind: kind, cause: cause})
}

// Newf is New with a formatted cause message.
func Newf(kind Kind, format string, args ...any) error {
	return New(kind, fmt.Errorf(format, args...))
}

// Is reports whether err (or any error it wraps) carries kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var ke *kindError
		if !errors.As(err, &ke) {
			return false
		}
		if ke.kind == kind {
			return true
		}
		err = ke.cause
	}
	return false
}

// KindOf extracts the Kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind, true
	}
	return "", false
}
