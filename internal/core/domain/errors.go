package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrDatasetNotFound  = errors.New("dataset not found")
	ErrCorpusNotFound   = errors.New("corpus not found")
	ErrTemporary        = errors.New("temporary failure")
	ErrUnsupportedInput = errors.New("unsupported input")

	// ErrRetrievalUnavailable is the only failure that reaches callers of Answer.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrGenerationTimeout     = errors.New("generation timeout")
	ErrMalformedOutput       = errors.New("malformed generation output")
	ErrInvalidUserType       = errors.New("invalid user type")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
