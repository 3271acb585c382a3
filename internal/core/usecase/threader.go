package usecase

import (
	"strings"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

// ConversationStateThreader carries the caller's summary across turns. It is
// stateless; continuity lives in the request and response payloads.
type ConversationStateThreader struct{}

func (ConversationStateThreader) Thread(
	answer domain.StructuredAnswer,
	previousSummary string,
	conversational bool,
) domain.StructuredAnswer {
	if conversational {
		answer.NewSummary = previousSummary
		return answer
	}
	if strings.TrimSpace(answer.NewSummary) == "" {
		answer.NewSummary = previousSummary
	}
	return answer
}
