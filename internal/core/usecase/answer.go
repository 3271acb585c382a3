package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/core/ports"
)

const (
	pathConversational = "conversational"
	pathRAG            = "rag"
)

type AnswerOption func(*AnswerUseCase)

func WithAnswerLogger(logger *slog.Logger) AnswerOption {
	return func(uc *AnswerUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

func WithAnswerObserver(observer ports.AnswerObserver) AnswerOption {
	return func(uc *AnswerUseCase) {
		uc.observer = observer
	}
}

// WithAnswerTimeout sets the deadline used when a request carries none.
func WithAnswerTimeout(timeout time.Duration) AnswerOption {
	return func(uc *AnswerUseCase) {
		uc.timeout = timeout
	}
}

func WithDefaultTopK(topK int) AnswerOption {
	return func(uc *AnswerUseCase) {
		if topK > 0 {
			uc.topK = topK
		}
	}
}

// AnswerUseCase is the whole public surface of the guidance core.
type AnswerUseCase struct {
	retriever *Retriever
	prompts   *PromptBuilder
	generator ports.Generator
	recovery  *ResponseRecoveryEngine
	threader  ConversationStateThreader

	logger   *slog.Logger
	observer ports.AnswerObserver
	timeout  time.Duration
	topK     int
}

func NewAnswerUseCase(
	retriever *Retriever,
	prompts *PromptBuilder,
	generator ports.Generator,
	opts ...AnswerOption,
) *AnswerUseCase {
	uc := &AnswerUseCase{
		retriever: retriever,
		prompts:   prompts,
		generator: generator,
		recovery:  NewResponseRecoveryEngine(),
		logger:    slog.New(slog.DiscardHandler),
		topK:      defaultTopK,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *AnswerUseCase) Answer(ctx context.Context, req domain.AnswerRequest) (*domain.AnswerResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("query is required"))
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = uc.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := time.Now()
	userType, err := domain.ParseUserType(req.UserType)
	if err != nil {
		uc.logger.Warn("user_type_normalized", "user_type", req.UserType, "normalized", string(userType))
	}
	selector := domain.NormalizeCorpusSelector(req.Corpus)
	topK := req.TopK
	if topK <= 0 {
		topK = uc.topK
	}

	in := PromptInput{
		Query:           query,
		UserType:        string(userType),
		History:         req.History,
		PreviousSummary: req.PreviousSummary,
	}

	var (
		result *domain.AnswerResult
		path   string
	)
	if IsConversational(query) {
		path = pathConversational
		result = uc.answerConversational(ctx, in)
	} else {
		path = pathRAG
		result, err = uc.answerWithRetrieval(ctx, in, selector, topK)
		if err != nil {
			uc.logger.Error("answer_retrieval_failed", "corpus", string(selector), "error", err)
			return nil, err
		}
	}

	if uc.observer != nil {
		uc.observer.ObserveAnswer(ports.AnswerObservation{
			Path:          path,
			Corpus:        string(selector),
			RecoveryStage: result.RecoveryStage,
			Fallback:      RecoveryStage(result.RecoveryStage).IsFallback(),
			Passages:      len(result.Passages),
			Duration:      time.Since(started),
		})
	}
	return result, nil
}

func (uc *AnswerUseCase) answerConversational(ctx context.Context, in PromptInput) *domain.AnswerResult {
	prompt := uc.prompts.BuildSimplePrompt(in)

	var recovery Recovery
	raw, err := uc.generate(ctx, prompt)
	switch {
	case err != nil:
		recovery = generationFallback(in.PreviousSummary, err)
	case looksStructured(raw):
		recovery = uc.recovery.Recover(raw, in.PreviousSummary)
	default:
		recovery = Recovery{
			Answer: domain.StructuredAnswer{
				Response:   strings.TrimSpace(raw),
				Reflection: domain.ConversationalReflection,
				Emotion:    domain.EmotionNeutral,
			},
			Stage: StagePlainText,
		}
	}
	uc.logRecovery(pathConversational, recovery)

	return &domain.AnswerResult{
		Answer:         uc.threader.Thread(recovery.Answer, in.PreviousSummary, true),
		Passages:       []domain.Passage{},
		RenderedPrompt: prompt,
		Conversational: true,
		RecoveryStage:  string(recovery.Stage),
	}
}

func (uc *AnswerUseCase) answerWithRetrieval(
	ctx context.Context,
	in PromptInput,
	selector domain.CorpusSelector,
	topK int,
) (*domain.AnswerResult, error) {
	passages, err := uc.retriever.Retrieve(ctx, in.Query, selector, topK)
	if err != nil {
		return nil, err
	}
	in.Passages = passages
	prompt := uc.prompts.BuildRAGPrompt(in)

	var recovery Recovery
	raw, err := uc.generate(ctx, prompt)
	if err != nil {
		recovery = generationFallback(in.PreviousSummary, err)
	} else {
		recovery = uc.recovery.Recover(raw, in.PreviousSummary)
	}
	uc.logRecovery(pathRAG, recovery)

	answer := uc.threader.Thread(recovery.Answer, in.PreviousSummary, false)
	if !recovery.Stage.IsFallback() {
		answer = uc.backfillFromPassages(answer, passages)
	}

	return &domain.AnswerResult{
		Answer:          answer,
		Passages:        passages,
		RenderedContext: uc.prompts.RenderContext(passages),
		RenderedPrompt:  prompt,
		RecoveryStage:   string(recovery.Stage),
	}, nil
}

func (uc *AnswerUseCase) generate(ctx context.Context, prompt string) (string, error) {
	raw, err := uc.generator.Complete(ctx, prompt)
	if err == nil {
		return raw, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", domain.WrapError(domain.ErrGenerationTimeout, "generate", err)
	}
	return "", domain.WrapError(domain.ErrGenerationUnavailable, "generate", err)
}

func (uc *AnswerUseCase) logRecovery(path string, recovery Recovery) {
	if recovery.Err == nil {
		uc.logger.Debug("answer_recovered", "path", path, "stage", string(recovery.Stage))
		return
	}
	uc.logger.Warn("answer_fallback_used", "path", path, "stage", string(recovery.Stage), "error", recovery.Err)
}

// backfillFromPassages fills blank verse fields from the first passage, the
// top hit of the first selected corpus. Scores are not compared across
// corpora.
func (uc *AnswerUseCase) backfillFromPassages(answer domain.StructuredAnswer, passages []domain.Passage) domain.StructuredAnswer {
	if len(passages) == 0 {
		return answer
	}
	top := passages[0]

	if strings.TrimSpace(answer.Shloka) == "" {
		answer.Shloka = firstNonEmpty(top.Text, top.Transliteration, top.Translation)
	}
	if strings.TrimSpace(answer.Meaning) == "" {
		answer.Meaning = firstNonEmpty(top.Translation, top.HindiTranslation, top.Text)
	}
	if strings.TrimSpace(answer.ShlokaSummary) == "" {
		answer.ShlokaSummary = uc.summarizePassage(top)
	}
	return answer
}

func (uc *AnswerUseCase) summarizePassage(passage domain.Passage) string {
	name := uc.prompts.scriptureNames[passage.Corpus]
	if name == "" {
		name = passage.Corpus
	}
	source := strings.TrimSpace(name + " " + passage.Locator.String())
	gist := firstSentence(firstNonEmpty(passage.Translation, passage.Text))
	if gist == "" {
		return source
	}
	return fmt.Sprintf("%s: %s", source, gist)
}

func generationFallback(previousSummary string, err error) Recovery {
	return Recovery{
		Answer: domain.FallbackAnswer(previousSummary),
		Stage:  StageFallbackGeneration,
		Err:    err,
	}
}

// looksStructured reports whether a conversational reply is a JSON object
// (possibly fenced) or an in-band failure rather than plain prose.
func looksStructured(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed == "" ||
		strings.HasPrefix(trimmed, domain.GenerationErrorMarker) ||
		strings.HasPrefix(trimmed, "{") ||
		strings.HasPrefix(trimmed, "```")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexAny(text, ".!?।"); idx >= 0 {
		_, size := utf8.DecodeRuneInString(text[idx:])
		return strings.TrimSpace(text[:idx+size])
	}
	return text
}
