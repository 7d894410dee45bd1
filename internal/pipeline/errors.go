package pipeline

import (
	"errors"
	"fmt"
)

// Kind is the closed set of outcomes a transfer can fail with. Every error
// leaving the pipeline carries exactly one Kind so the chat boundary can map
// it to a human-readable message without inspecting internals.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidURL
	KindMetadataFetch
	KindNoSuitableFormat
	KindStream
	KindTranscode
	KindOversize
	KindDuplicateRequest
	KindDownloadTimeout
)

// String implements fmt.Stringer for log fields and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindMetadataFetch:
		return "metadata_fetch"
	case KindNoSuitableFormat:
		return "no_suitable_format"
	case KindStream:
		return "stream"
	case KindTranscode:
		return "transcode"
	case KindOversize:
		return "oversize"
	case KindDuplicateRequest:
		return "duplicate_request"
	case KindDownloadTimeout:
		return "download_timeout"
	}
	return "unknown"
}

// Error pairs a Kind with the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// E wraps err with the provided kind. A nil err still produces a non-nil
// classified error so callers can signal a kind without a cause.
func E(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
