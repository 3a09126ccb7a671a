package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by live backends when a document is not found.
	// The in-memory store reports missing documents as nil results instead.
	ErrNotFound = errors.New("document not found")
	// ErrMalformedReference is returned when a reference has empty segments,
	// the wrong segment parity, or no resolvable document id
	ErrMalformedReference = errors.New("malformed reference")
	// ErrPermissionDenied is returned when the backend rejects the caller
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidQuery is returned when a query is malformed
	ErrInvalidQuery = errors.New("invalid query")
	// ErrCanceled is returned when the operation is canceled by the client
	ErrCanceled = errors.New("operation canceled")
)

// ErrorKind separates backend failures from payload decoding failures.
type ErrorKind int

const (
	KindBackend ErrorKind = iota
	KindParsing
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindBackend:
		return "backend"
	case KindParsing:
		return "parsing"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the typed error returned across the store boundary.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error at %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewBackendError wraps err as a backend failure for path.
func NewBackendError(path string, err error) *Error {
	return &Error{Kind: KindBackend, Path: path, Err: err}
}

// NewParsingError wraps err as a payload decoding failure for path.
func NewParsingError(path string, err error) *Error {
	return &Error{Kind: KindParsing, Path: path, Err: err}
}

// NewInternalError wraps err as an unexpected internal failure.
func NewInternalError(path string, err error) *Error {
	return &Error{Kind: KindInternal, Path: path, Err: err}
}

// ErrorKindOf reports the kind of err. Untyped errors count as backend errors.
func ErrorKindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindBackend
}

// IsParsingError reports whether err is a payload decoding failure.
func IsParsingError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindParsing
}

// WrapError wraps storage errors to model errors.
// It converts context.Canceled and context.DeadlineExceeded to ErrCanceled.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsCanceled(err) {
		return ErrCanceled
	}
	return err
}

// IsCanceled returns true if the error is due to context cancellation or deadline exceeded.
// It checks both direct context errors and wrapped errors (e.g., from the RPC layer).
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, ErrCanceled) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "context canceled") || strings.Contains(errStr, "context deadline exceeded")
}
