// Package warperr defines the machine-checkable error codes every warp
// package returns. Each code is both a sentinel (so callers can
// errors.Is(err, warperr.ErrBackfillRejected)) and, wrapped in an Error,
// carries the detail message a log line or API response needs.
package warperr

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per code named in the external error taxonomy.
// Callers compare against these with errors.Is; StorageError wraps whatever
// the persistence port returned without reinterpreting it.
var (
	ErrInvalidName       = errors.New("invalid name")
	ErrEmptyPatch        = errors.New("empty patch")
	ErrInvalidPatch      = errors.New("invalid patch")
	ErrBackfillRejected  = errors.New("backfill rejected")
	ErrWriterFork        = errors.New("writer fork")
	ErrMigrationRequired = errors.New("migration required")
	ErrGraphNotFound     = errors.New("graph not found")
	ErrNodeNotFound      = errors.New("node not found")
	ErrCursorNotFound    = errors.New("cursor not found")
	ErrSchemaRequired    = errors.New("schema required")
	ErrStorageError      = errors.New("storage error")
)

// Error pairs a sentinel code with a detail message and, for StorageError,
// the underlying port failure. Wrap with fmt.Errorf("...: %w", err) as
// usual; Error.Unwrap exposes both the sentinel and any wrapped cause via
// errors.Is/errors.As chains.
type Error struct {
	Code    error
	Message string
	Cause   error
}

// New builds an Error carrying a formatted detail message.
func New(code error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a StorageError carrying cause, the convention every package
// uses to surface a persistence port failure unmodified, per the
// propagation policy: storage errors propagate without reinterpretation.
func Wrap(cause error) *Error {
	return &Error{Code: ErrStorageError, Message: cause.Error(), Cause: cause}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.Error()
	}

	return e.Code.Error() + ": " + e.Message
}

// Unwrap lets errors.Is(err, warperr.ErrX) and errors.As reach both the
// code sentinel and, for wrapped storage failures, the original cause.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Code, e.Cause}
	}

	return []error{e.Code}
}
