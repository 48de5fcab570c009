package k8s

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	utilnet "k8s.io/apimachinery/pkg/util/net"

	"github.com/imamik/solk8s/internal/util/retry"
)

// ErrorClass is the retry class of an API error.
type ErrorClass int

const (
	// ClassNone means no error.
	ClassNone ErrorClass = iota
	// ClassAlreadyExists means the object exists. Creates adopt it.
	ClassAlreadyExists
	// ClassConflict is an optimistic concurrency conflict.
	ClassConflict
	// ClassRateLimited is a 429 from the API server.
	ClassRateLimited
	// ClassTransient covers 5xx, server timeouts and network errors.
	ClassTransient
	// ClassPermanent is never retried.
	ClassPermanent
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassAlreadyExists:
		return "already-exists"
	case ClassConflict:
		return "conflict"
	case ClassRateLimited:
		return "rate-limited"
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Retryable reports whether errors of this class are retried.
func (c ErrorClass) Retryable() bool {
	return c == ClassConflict || c == ClassRateLimited || c == ClassTransient
}

// Classify returns the retry class of err.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}

	var transient *TransientAPIError
	if errors.As(err, &transient) {
		return transient.Class
	}

	switch {
	case apierrors.IsAlreadyExists(err):
		return ClassAlreadyExists
	case apierrors.IsConflict(err):
		return ClassConflict
	case apierrors.IsTooManyRequests(err):
		return ClassRateLimited
	case apierrors.IsInternalError(err),
		apierrors.IsServerTimeout(err),
		apierrors.IsTimeout(err),
		apierrors.IsServiceUnavailable(err),
		apierrors.IsUnexpectedServerError(err):
		return ClassTransient
	}

	var status apierrors.APIStatus
	if errors.As(err, &status) {
		if code := status.Status().Code; code >= 500 {
			return ClassTransient
		}
		return ClassPermanent
	}

	if errors.Is(err, context.Canceled) {
		return ClassPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		utilnet.IsConnectionRefused(err) ||
		utilnet.IsConnectionReset(err) ||
		utilnet.IsProbableEOF(err) {
		return ClassTransient
	}

	return ClassPermanent
}

// TransientAPIError is a retryable API failure.
type TransientAPIError struct {
	Class ErrorClass
	Err   error

	// After is the server-suggested delay before the next attempt.
	After time.Duration
}

func (e *TransientAPIError) Error() string {
	return fmt.Sprintf("transient API error (%s): %v", e.Class, e.Err)
}

func (e *TransientAPIError) Unwrap() error {
	return e.Err
}

// RetryAfter implements the retry policy's server hint.
func (e *TransientAPIError) RetryAfter() time.Duration {
	return e.After
}

// Retryable maps an API error onto the retry policy: nil for success and
// for AlreadyExists, *TransientAPIError for retryable classes and a fatal
// error for everything else. Errors already mapped are returned unchanged.
func Retryable(err error) error {
	var mapped *TransientAPIError
	if retry.IsFatal(err) || errors.As(err, &mapped) {
		return err
	}
	class := Classify(err)
	switch {
	case class == ClassNone, class == ClassAlreadyExists:
		return nil
	case class.Retryable():
		transient := &TransientAPIError{Class: class, Err: err}
		if seconds, ok := apierrors.SuggestsClientDelay(err); ok {
			transient.After = time.Duration(seconds) * time.Second
		}
		return transient
	default:
		return retry.Fatal(err)
	}
}
