package httpadapter

import (
	"testing"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

func TestEmbeddedSpecLoads(t *testing.T) {
	validator, err := newRequestValidator()
	if err != nil {
		t.Fatalf("newRequestValidator() error = %v", err)
	}
	if err := validator.validate("AnswerRequest", []byte(`{"query":"hi","top_k":3}`)); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestValidatorReportsInvalidInput(t *testing.T) {
	validator, err := newRequestValidator()
	if err != nil {
		t.Fatalf("newRequestValidator() error = %v", err)
	}
	err = validator.validate("AskRequest", []byte(`{"user_type":"genz"}`))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestNilValidatorAcceptsEverything(t *testing.T) {
	var validator *requestValidator
	if err := validator.validate("AnswerRequest", []byte(`not json`)); err != nil {
		t.Fatalf("expected nil validator to pass, got %v", err)
	}
}
