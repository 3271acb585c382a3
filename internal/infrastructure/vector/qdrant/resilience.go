package qdrant

import (
	"errors"
	"fmt"

	"github.com/divinegpt/divinegpt/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("qdrant %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("qdrant %s status: %s: %s", e.Operation, e.Status, e.Body)
}

// A 404 for a missing collection lands in the non-transient branch: it is
// a normal outcome for an unindexed corpus, not an outage.
func classifyQdrantError(err error) resilience.ErrorClassification {
	return resilience.Classify(err, func(err error) (bool, bool) {
		var statusErr *HTTPStatusError
		if !errors.As(err, &statusErr) {
			return false, false
		}
		return resilience.RetryableStatus(statusErr.StatusCode), true
	})
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	return resilience.WrapTemporary(operation, err, classifyQdrantError)
}
