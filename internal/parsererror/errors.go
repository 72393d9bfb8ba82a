// Package parsererror defines the error taxonomy shared by ingestion, storage and analytics.
package parsererror

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks. The typed errors below match their sentinel.
var (
	ErrMalformedInput       = errors.New("malformed input")
	ErrRowRejected          = errors.New("row rejected")
	ErrUpstreamParseFailure = errors.New("upstream parse failure")
	ErrDuplicateConstraint  = errors.New("duplicate constraint violation")
	ErrStoreUnavailable     = errors.New("store unavailable")
)

// MalformedInputError reports input that cannot be parsed as a whole: invalid encoding,
// a missing header or required column, or broken quoting.
type MalformedInputError struct {
	Source string
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s input: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed %s input: %s", e.Source, e.Reason)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

// RowRejectedError describes a single row dropped during parsing. It is logged, never returned
// to callers of the parser.
type RowRejectedError struct {
	Row    int
	Field  string
	Value  string
	Reason string
}

func (e *RowRejectedError) Error() string {
	return fmt.Sprintf("row %d rejected: %s='%s': %s", e.Row, e.Field, e.Value, e.Reason)
}

func (e *RowRejectedError) Is(target error) bool { return target == ErrRowRejected }

// UpstreamParseError is returned when the statement-parsing service fails or answers with
// something that cannot be decoded.
type UpstreamParseError struct {
	StatusCode int
	Message    string
	Retryable  bool
	Cause      error
}

func (e *UpstreamParseError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Cause != nil:
		return fmt.Sprintf("statement parser error (HTTP %d): %s: %v", e.StatusCode, e.Message, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("statement parser error (HTTP %d): %s", e.StatusCode, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("statement parser error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("statement parser error: %s", e.Message)
}

func (e *UpstreamParseError) Unwrap() error { return e.Cause }

func (e *UpstreamParseError) Is(target error) bool { return target == ErrUpstreamParseFailure }

// IsRetryable reports whether the call may succeed if attempted again.
func (e *UpstreamParseError) IsRetryable() bool { return e.Retryable }

// StoreError wraps any persistent-store failure other than a uniqueness conflict.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// Store wraps err as a StoreError unless it is nil or already classified.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrDuplicateConstraint) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
