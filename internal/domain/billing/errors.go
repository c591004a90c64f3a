package billing

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated  = errors.New("billing: unauthenticated")
	ErrForbidden        = errors.New("billing: forbidden")
	ErrInvalidInput     = errors.New("billing: invalid input")
	ErrInvalidPrice     = errors.New("billing: invalid price for purpose")
	ErrInvalidCadence   = errors.New("billing: invalid price cadence")
	ErrConflict         = errors.New("billing: conflict")
	ErrNotFound         = errors.New("billing: not found")
	ErrUpstream         = errors.New("billing: payment provider error")
	ErrSignatureInvalid = errors.New("billing: webhook signature invalid")
	ErrPlanLimit        = errors.New("billing: listing plan limit reached")
)

// ValidationError carries the plain-text reason shown to the caller.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "billing: " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func Invalid(reason string) error {
	return &ValidationError{Reason: reason}
}

// ConflictError is a request that would duplicate something already owned.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "billing: " + e.Reason
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// UpstreamError wraps a failed payment-provider call. Retryable tells the
// caller whether resubmitting the same logical request is safe.
type UpstreamError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("billing: provider %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.Err}
}

// IsRetryable reports whether err is an upstream failure worth retrying.
func IsRetryable(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retryable
	}
	return false
}
