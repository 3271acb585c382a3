package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

// BackendMatcher recognises failures specific to one backend. ok is false
// when err is not one the backend knows about.
type BackendMatcher func(err error) (transient, ok bool)

// Classify applies the rules every adapter shares. Cancellation is neither
// retried nor counted against the breaker; an open circuit and network errors
// are retried; anything unrecognised is counted but not retried.
func Classify(err error, match BackendMatcher) ErrorClassification {
	switch {
	case err == nil:
		return ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorClassification{}
	case IsCircuitOpen(err):
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}

	if match != nil {
		if transient, ok := match(err); ok {
			return ErrorClassification{Retryable: transient, RecordFailure: transient}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return ErrorClassification{RecordFailure: true}
}

func RetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// WrapTemporary marks err as ErrTemporary when classify would retry it, so
// callers above the adapter can map it to 503 without knowing the backend.
func WrapTemporary(operation string, err error, classify ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classify(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
