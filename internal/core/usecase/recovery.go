package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

type RecoveryStage string

const (
	StageStrict              RecoveryStage = "strict"
	StageLenientYAML         RecoveryStage = "lenient_yaml"
	StageLenientRepair       RecoveryStage = "lenient_repair"
	StagePlainText           RecoveryStage = "plain_text"
	StageFallbackGeneration  RecoveryStage = "fallback_generation"
	StageFallbackEmpty       RecoveryStage = "fallback_empty"
	StageFallbackMarker      RecoveryStage = "fallback_marker"
	StageFallbackUnparseable RecoveryStage = "fallback_unparseable"
	StageFallbackNoResponse  RecoveryStage = "fallback_no_response"
	StageFallbackPanic       RecoveryStage = "fallback_panic"
)

// IsFallback reports whether the stage produced the canonical fallback answer.
func (s RecoveryStage) IsFallback() bool {
	return strings.HasPrefix(string(s), "fallback_")
}

// Recovery is the outcome of one recovery run. Err explains why a fallback was
// used and is never returned to callers of Answer.
type Recovery struct {
	Answer domain.StructuredAnswer
	Stage  RecoveryStage
	Err    error
}

type parseStrategy struct {
	stage RecoveryStage
	parse func(span string) (map[string]any, error)
}

// ResponseRecoveryEngine converts raw generator text into a complete
// StructuredAnswer. Recover never fails and never returns a partial shape.
type ResponseRecoveryEngine struct {
	strategies []parseStrategy
}

func NewResponseRecoveryEngine() *ResponseRecoveryEngine {
	return &ResponseRecoveryEngine{
		strategies: []parseStrategy{
			{stage: StageStrict, parse: parseStrictObject},
			{stage: StageLenientYAML, parse: parseYAMLFlowObject},
			{stage: StageLenientRepair, parse: parseRepairedObject},
		},
	}
}

func (e *ResponseRecoveryEngine) Recover(raw, previousSummary string) (result Recovery) {
	defer func() {
		if r := recover(); r != nil {
			result = fallbackRecovery(StageFallbackPanic, previousSummary, fmt.Errorf("recovery panic: %v", r))
		}
	}()

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallbackRecovery(StageFallbackEmpty, previousSummary, errors.New("empty generator output"))
	}
	if strings.HasPrefix(trimmed, domain.GenerationErrorMarker) {
		return fallbackRecovery(StageFallbackMarker, previousSummary, errors.New(trimmed))
	}

	span := normalizeSpan(extractSpan(trimmed))

	var lastErr error
	parsedWithoutResponse := false
	for _, strategy := range e.strategies {
		fields, err := strategy.parse(span)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", strategy.stage, err)
			continue
		}
		if !hasResponse(fields) {
			parsedWithoutResponse = true
			lastErr = fmt.Errorf("%s: object has no response field", strategy.stage)
			continue
		}
		return Recovery{
			Answer: completeAnswer(fields, previousSummary),
			Stage:  strategy.stage,
		}
	}

	stage := StageFallbackUnparseable
	if parsedWithoutResponse {
		stage = StageFallbackNoResponse
	}
	return fallbackRecovery(stage, previousSummary, lastErr)
}

func fallbackRecovery(stage RecoveryStage, previousSummary string, cause error) Recovery {
	if cause == nil {
		cause = errors.New(string(stage))
	}
	return Recovery{
		Answer: domain.FallbackAnswer(previousSummary),
		Stage:  stage,
		Err:    domain.WrapError(domain.ErrMalformedOutput, "recover answer", cause),
	}
}

// extractSpan prefers the body of a fenced code block and otherwise narrows
// the text to the outermost braces. An unterminated object runs to the end.
func extractSpan(raw string) string {
	candidate := raw
	if fenced, ok := fencedBlock(raw); ok {
		candidate = fenced
	}

	start := strings.Index(candidate, "{")
	if start < 0 {
		return strings.TrimSpace(candidate)
	}
	end := strings.LastIndex(candidate, "}")
	if end < start {
		return strings.TrimSpace(candidate[start:])
	}
	return candidate[start : end+1]
}

func fencedBlock(raw string) (string, bool) {
	idx := strings.Index(raw, "```")
	if idx < 0 {
		return "", false
	}
	start := idx + 3
	// Skip an optional language tag such as ```json.
	if nl := strings.IndexAny(raw[start:], "\r\n"); nl >= 0 {
		tag := strings.TrimSpace(raw[start : start+nl])
		if !strings.ContainsAny(tag, "{}") {
			start += nl + 1
		}
	}
	body := raw[start:]
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	if !strings.Contains(body, "{") {
		return "", false
	}
	return strings.TrimSpace(body), true
}

var lineBreakReplacer = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ", "\t", " ")

func normalizeSpan(span string) string {
	return strings.TrimSpace(lineBreakReplacer.Replace(span))
}

func parseStrictObject(span string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("not a json object")
	}
	return normalizeKeys(fields), nil
}

func normalizeKeys(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	// Deterministic winner when two spellings normalize to the same key.
	sort.Strings(keys)
	for _, key := range keys {
		normalized := strings.ToLower(strings.TrimSpace(key))
		normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
		if _, exists := out[normalized]; exists && normalized != key {
			continue
		}
		out[normalized] = fields[key]
	}
	return out
}

func hasResponse(fields map[string]any) bool {
	return strings.TrimSpace(stringField(fields, domain.FieldResponse)) != ""
}

// completeAnswer overlays parsed fields on the answer template: absent text
// fields become empty, an absent reflection gets the default one, emotion is
// clamped to the closed set and new_summary carries the previous summary.
func completeAnswer(fields map[string]any, previousSummary string) domain.StructuredAnswer {
	answer := domain.StructuredAnswer{
		Shloka:        strings.TrimSpace(stringField(fields, domain.FieldShloka)),
		Meaning:       strings.TrimSpace(stringField(fields, domain.FieldMeaning)),
		ShlokaSummary: strings.TrimSpace(stringField(fields, domain.FieldShlokaSummary)),
		Response:      strings.TrimSpace(stringField(fields, domain.FieldResponse)),
		Reflection:    strings.TrimSpace(stringField(fields, domain.FieldReflection)),
		Emotion:       domain.ParseEmotion(stringField(fields, domain.FieldEmotion)),
		NewSummary:    strings.TrimSpace(stringField(fields, domain.FieldNewSummary)),
	}
	if answer.Reflection == "" {
		answer.Reflection = domain.FallbackReflection()
	}
	if answer.NewSummary == "" {
		answer.NewSummary = previousSummary
	}
	return answer
}

func stringField(fields map[string]any, key string) string {
	value, ok := fields[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return typed
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			if item == nil {
				continue
			}
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, " ")
	case map[string]any:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return ""
		}
		return string(encoded)
	default:
		return fmt.Sprint(typed)
	}
}
