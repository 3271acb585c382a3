package domain

import (
	"strings"
	"time"
)

// UserType selects the tone of generated guidance.
type UserType string

const (
	UserTypeGenZ    UserType = "genz"
	UserTypeMature  UserType = "mature"
	UserTypeNeutral UserType = "neutral"
)

// ParseUserType reports ErrInvalidUserType for unknown values together with the
// neutral fallback, so callers can log the normalization if they care.
func ParseUserType(raw string) (UserType, error) {
	switch UserType(strings.ToLower(strings.TrimSpace(raw))) {
	case UserTypeGenZ:
		return UserTypeGenZ, nil
	case UserTypeMature:
		return UserTypeMature, nil
	case UserTypeNeutral, "":
		return UserTypeNeutral, nil
	default:
		return UserTypeNeutral, ErrInvalidUserType
	}
}

// NormalizeUserType never fails: unknown tones become neutral.
func NormalizeUserType(raw string) UserType {
	userType, _ := ParseUserType(raw)
	return userType
}

// CorpusSelector chooses which scripture collections are searched.
type CorpusSelector string

const (
	CorpusGita     CorpusSelector = "gita"
	CorpusRamayana CorpusSelector = "ramayana"
	CorpusAll      CorpusSelector = "all"
)

func NormalizeCorpusSelector(raw string) CorpusSelector {
	selector := CorpusSelector(strings.ToLower(strings.TrimSpace(raw)))
	if selector == "" {
		return CorpusGita
	}
	return selector
}

type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AnswerRequest struct {
	Query           string           `json:"query"`
	UserType        string           `json:"user_type,omitempty"`
	History         []HistoryMessage `json:"history,omitempty"`
	PreviousSummary string           `json:"previous_summary,omitempty"`
	Corpus          string           `json:"scripture,omitempty"`
	TopK            int              `json:"top_k,omitempty"`
	Timeout         time.Duration    `json:"-"`
}

type AnswerResult struct {
	Answer          StructuredAnswer `json:"structured_answer"`
	Passages        []Passage        `json:"retrieved_passages"`
	RenderedContext string           `json:"rendered_context"`
	RenderedPrompt  string           `json:"rendered_prompt"`
	Conversational  bool             `json:"conversational"`
	RecoveryStage   string           `json:"recovery_stage,omitempty"`
}
