package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/chakravartyharish/question-extractor/internal/question"
)

// Usage is the token accounting for one service call. Zero counts mean the
// service did not report usage and the caller should estimate.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Structurer is the interface the batch driver depends on. One call turns a
// verified record into an enriched structured question. The record's answer
// key is pinned in the request; the service is never asked to determine the
// answer itself.
type Structurer interface {
	Structure(ctx context.Context, rec question.Record) (question.Structured, Usage, error)
}

// ServiceError classifies a failed service call. Transient errors are
// eligible for retry; permanent ones fail the record immediately.
type ServiceError struct {
	StatusCode int
	Transient  bool
	Err        error
}

func (e *ServiceError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s service error (status %d): %v", kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s service error: %v", kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried. Unclassified errors are
// treated as transient, matching how network-level failures surface.
func IsTransient(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Transient
	}
	return true
}

// ClassifyStatus builds a ServiceError for an HTTP status. Rate limiting,
// request timeouts and server errors are transient; other 4xx are permanent.
func ClassifyStatus(status int, err error) *ServiceError {
	transient := status == 408 || status == 429 || status >= 500
	return &ServiceError{StatusCode: status, Transient: transient, Err: err}
}

// TransientError wraps err as a retryable service error without a status.
func TransientError(err error) *ServiceError {
	return &ServiceError{Transient: true, Err: err}
}

// StructureError is the terminal failure for one record, produced after
// retries are exhausted or a permanent error occurred.
type StructureError struct {
	Number int
	Reason string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("Q%d: %s", e.Number, e.Reason)
}
