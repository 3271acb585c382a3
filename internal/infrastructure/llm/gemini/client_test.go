package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestClassifyGeminiError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "rate limited", err: fmt.Errorf("call: %w", genai.APIError{Code: 429}), retryable: true},
		{name: "unavailable", err: genai.APIError{Code: 503}, retryable: true},
		{name: "bad request", err: genai.APIError{Code: 400}, retryable: false},
		{name: "deadline", err: context.DeadlineExceeded, retryable: false},
		{name: "unknown", err: errors.New("boom"), retryable: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyGeminiError(tc.err).Retryable; got != tc.retryable {
				t.Fatalf("Retryable = %v, want %v", got, tc.retryable)
			}
		})
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	err := wrapTemporaryIfNeeded("gemini generate", genai.APIError{Code: 503})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}
	plain := errors.New("bad prompt")
	if got := wrapTemporaryIfNeeded("gemini generate", plain); got != plain {
		t.Fatalf("expected error unchanged, got %v", got)
	}
}
