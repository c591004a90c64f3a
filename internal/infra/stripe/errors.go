package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	stripeapi "github.com/stripe/stripe-go/v75"

	"dealflow-api/internal/domain/billing"
)

// wrapErr turns a provider failure into *billing.UpstreamError. Network
// failures, timeouts, throttling and 5xx are retryable; request errors are
// not. A provider 404 also matches billing.ErrNotFound.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		err = fmt.Errorf("%w: %w", billing.ErrNotFound, err)
	}
	return &billing.UpstreamError{Op: op, Retryable: retryable(err), Err: err}
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *stripeapi.Error
	if !errors.As(err, &se) {
		return true
	}
	switch {
	case se.HTTPStatusCode == http.StatusTooManyRequests,
		se.HTTPStatusCode == http.StatusConflict,
		se.HTTPStatusCode >= 500:
		return true
	case se.Type == stripeapi.ErrorTypeAPI:
		return true
	}
	return false
}

// isNotFound reports a provider 404, e.g. a deleted price.
func isNotFound(err error) bool {
	var se *stripeapi.Error
	return errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound
}
