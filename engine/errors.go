package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine's public API. Callers are expected
// to test with errors.Is and map them onto their own surface (HTTP status
// codes, CLI exit codes).
var (
	// ErrInvalidInput marks a request rejected before any state change.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPermissionDenied marks a request whose caller does not own the batch.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrBatchNotFound marks a request against a batch that does not exist.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrBatchActive marks a teardown attempted while the batch can still
	// be processed.
	ErrBatchActive = errors.New("batch is still active")

	// ErrUpstream marks a failure in one of the backing systems.
	ErrUpstream = errors.New("upstream failure")
)

// ValidationError reports a malformed or missing request field.
type ValidationError struct {
	Field   string
	Details string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: field %s %s", e.Field, e.Details)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// UpstreamError wraps a failure from one of the systems the engine talks to.
// System is one of "db", "redis", "objstore" or "analyzer".
type UpstreamError struct {
	System string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream failure in %s: %v", e.System, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}

// AnalyzerError is returned by Analyzer implementations when a single
// analysis attempt fails. Transient failures are retried up to the item's
// retry budget, permanent ones fail the item immediately.
type AnalyzerError struct {
	Code      string
	Message   string
	Transient bool
}

func (e *AnalyzerError) Error() string {
	return fmt.Sprintf("analyzer error [%s]: %s", e.Code, e.Message)
}

// Error codes recorded on items that could not be analyzed.
const (
	ErrCodeTimeout          = "timeout"
	ErrCodeAnalyzer         = "analyzer"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeUpstream         = "upstream"
	ErrCodeSchemaValidation = "schema_validation"
)
