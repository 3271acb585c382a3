package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/core/ports"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type answerObserverFake struct {
	mu           sync.Mutex
	observations []ports.AnswerObservation
}

func (f *answerObserverFake) ObserveAnswer(obs ports.AnswerObservation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observations = append(f.observations, obs)
}

type answerFixture struct {
	embedder  *embedderFake
	store     *passageStoreFake
	generator *generatorFake
	observer  *answerObserverFake
	uc        *AnswerUseCase
}

func newAnswerFixture(generator *generatorFake) *answerFixture {
	f := &answerFixture{
		embedder: &embedderFake{},
		store: &passageStoreFake{results: map[string][]domain.Passage{
			"gita":     {gitaPassage(2, 47, 0.91), gitaPassage(2, 14, 0.52)},
			"ramayana": {ramayanaPassage(19, 7, 0.88)},
		}},
		generator: generator,
		observer:  &answerObserverFake{},
	}
	catalog := testCatalog()
	f.uc = NewAnswerUseCase(
		NewRetriever(f.embedder, f.store, catalog),
		NewPromptBuilder(catalog, 10),
		generator,
		WithAnswerObserver(f.observer),
	)
	return f
}

func TestAnswerConversationalSkipsRetrieval(t *testing.T) {
	f := newAnswerFixture(&generatorFake{reply: "  Hello, dear friend! How can I help you today?  "})

	result, err := f.uc.Answer(context.Background(), domain.AnswerRequest{Query: "hi"})
	require.NoError(t, err)

	require.True(t, result.Conversational)
	require.Equal(t, "Hello, dear friend! How can I help you today?", result.Answer.Response)
	require.Empty(t, result.Answer.Shloka)
	require.Empty(t, result.Answer.Meaning)
	require.Empty(t, result.Answer.ShlokaSummary)
	require.Empty(t, result.Answer.NewSummary)
	require.Equal(t, domain.ConversationalReflection, result.Answer.Reflection)
	require.Equal(t, domain.EmotionNeutral, result.Answer.Emotion)
	require.Empty(t, result.Passages)
	require.Empty(t, result.RenderedContext)
	require.Equal(t, string(StagePlainText), result.RecoveryStage)

	require.Zero(t, f.embedder.QueryCalls())
	require.Zero(t, f.store.Calls())
}

func TestAnswerConversationalKeepsPreviousSummary(t *testing.T) {
	f := newAnswerFixture(&generatorFake{reply: "You're welcome!"})

	result, err := f.uc.Answer(context.Background(), domain.AnswerRequest{
		Query:           "thank you",
		PreviousSummary: "User asked about grief.",
	})
	require.NoError(t, err)
	require.Equal(t, "User asked about grief.", result.Answer.NewSummary)
}

func TestAnswerRAGSuccess(t *testing.T) {
	reply := "```json\n" + `{
  "shloka": "karmanye vadhikaraste",
  "meaning": "You have a right to action alone.",
  "shloka_summary": "Focus on effort.",
  "response": "My friend, study with devotion and release the outcome.",
  "reflection": "What can you do today?",
  "emotion": "Anxious",
  "new_summary": "User fears failing exams; advised to focus on effort."
}` + "\n```"
	f := newAnswerFixture(&generatorFake{reply: reply})

	result, err := f.uc.Answer(context.Background(), domain.AnswerRequest{
		Query:    "I am scared of failing my exams",
		UserType: "genz",
	})
	require.NoError(t, err)

	require.False(t, result.Conversational)
	require.Equal(t, string(StageStrict), result.RecoveryStage)
	require.Equal(t, domain.EmotionAnxious, result.Answer.Emotion)
	require.Equal(t, "User fears failing exams; advised to focus on effort.", result.Answer.NewSummary)
	require.Len(t, result.Passages, 2)
	require.Contains(t, result.RenderedContext, "Scripture: Bhagavad Gita 2.47")
	require.Contains(t, result.RenderedPrompt, result.RenderedContext)
	require.Contains(t, result.RenderedPrompt, "I am scared of failing my exams")
	require.Equal(t, 1, f.embedder.QueryCalls())

	require.Len(t, f.observer.observations, 1)
	require.Equal(t, pathRAG, f.observer.observations[0].Path)
	require.False(t, f.observer.observations[0].Fallback)
	require.Equal(t, 2, f.observer.observations[0].Passages)
}

func TestAnswerRAGBackfillsVerseFromTopPassage(t *testing.T) {
	f := newAnswerFixture(&generatorFake{reply: `{"response": "Keep going.", "emotion": "Calm"}`})

	result, err := f.uc.Answer(context.Background(), domain.AnswerRequest{
		Query:  "how can I stay calm in hard times",
		Corpus: "all",
	})
	require.NoError(t, err)

	require.Len(t, result.Passages, 3)
	require.Equal(t, "shloka text", result.Answer.Shloka)
	require.Equal(t, gitaPassage(2, 47, 0).Translation, result.Answer.Meaning)
	require.Equal(t, "Bhagavad Gita 2.47: The wise grieve neither for the living nor for the dead.", result.Answer.ShlokaSummary)
}

func TestAnswerRAGWithoutPassagesKeepsEmptyVerse(t *testing.T) {
	f := newAnswerFixture(&generatorFake{reply: `{"response": "Trust yourself."}`})
	f.store.results = nil

	result, err := f.uc.Answer(context.Background(), domain.AnswerRequest{Query: "what should I do with my life"})
	require.NoError(t, err)
	require.Empty(t, result.Passages)
	require.Empty(t, result.Answer.Shloka)
	require.Equal(t, "Trust yourself.", result.Answer.Response)
	require.Contains(t, result.RenderedPrompt, "(no relevant passages were found)")
}

func TestAnswerRetrievalFailureIsReturned(t *testing.T) {
	generator := &generatorFake{reply: `{"response": "never used"}`}
	f := newAnswerFixture(generator)
	f.store.errs = map[string]error{"gita": errors.New("qdrant unreachable")}

	result, err := f.uc.Answer(context.Background(), domain.AnswerRequest{Query: "why do I feel so empty"})
	require.Nil(t, result)
	require.Error(t, err)
	require.True(t, domain.IsKind(err, domain.ErrRetrievalUnavailable))
	require.Empty(t, generator.prompts)
}

func TestAnswerRetrievalDeadlineIsFatal(t *testing.T) {
	generator := &generatorFake{reply: `{"response": "never used"}`}
	f := newAnswerFixture(generator)
	f.store.block = true

	result, err := f.uc.Answer(context.Background(), domain.AnswerRequest{
		Query:   "why do I feel so empty",
		Corpus:  "all",
		Timeout: 20 * time.Millisecond,
	})
	require.Nil(t, result)
	require.True(t, domain.IsKind(err, domain.ErrRetrievalUnavailable), "got %v", err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Empty(t, generator.prompts)
	require.Empty(t, f.observer.observations)
}

func TestAnswerBackfillUsesFirstCorpusTopPassage(t *testing.T) {
	f := newAnswerFixture(&generatorFake{reply: `{"response": "Keep going.", "emotion": "Calm"}`})
	f.store.results = map[string][]domain.Passage{
		"gita":     {gitaPassage(2, 47, 0.41)},
		"ramayana": {ramayanaPassage(19, 7, 0.97)},
	}

	result, err := f.uc.Answer(context.Background(), domain.AnswerRequest{
		Query:  "how can I stay calm in hard times",
		Corpus: "all",
	})
	require.NoError(t, err)
	require.Len(t, result.Passages, 2)
	require.True(t, strings.HasPrefix(result.Answer.ShlokaSummary, "Bhagavad Gita 2.47"), result.Answer.ShlokaSummary)
}

func TestAnswerGenerationFailureUsesFallback(t *testing.T) {
	f := newAnswerFixture(&generatorFake{err: errors.New("connection reset")})

	result, err := f.uc.Answer(context.Background(), domain.AnswerRequest{
		Query:           "why do I feel so empty",
		PreviousSummary: "User feels lonely.",
	})
	require.NoError(t, err)
	require.Equal(t, domain.FallbackAnswer("User feels lonely."), result.Answer)
	require.Equal(t, string(StageFallbackGeneration), result.RecoveryStage)
	require.NotEmpty(t, result.Passages)
	require.True(t, f.observer.observations[0].Fallback)
}

func TestAnswerGenerationTimeoutUsesFallback(t *testing.T) {
	f := newAnswerFixture(&generatorFake{block: true})

	result, err := f.uc.Answer(context.Background(), domain.AnswerRequest{
		Query:   "why do I feel so empty",
		Timeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Equal(t, domain.FallbackAnswer(""), result.Answer)
	require.Equal(t, string(StageFallbackGeneration), result.RecoveryStage)
}

func TestAnswerGenerationMarkerUsesFallback(t *testing.T) {
	f := newAnswerFixture(&generatorFake{reply: domain.GenerationErrorMarker + " upstream 500"})

	result, err := f.uc.Answer(context.Background(), domain.AnswerRequest{Query: "hello"})
	require.NoError(t, err)
	require.True(t, result.Conversational)
	require.Equal(t, string(StageFallbackMarker), result.RecoveryStage)
	require.Equal(t, domain.FallbackAnswer(""), result.Answer)
}

func TestAnswerInvalidUserTypeIsNeutral(t *testing.T) {
	f := newAnswerFixture(&generatorFake{reply: `{"response": "ok"}`})

	unknown, err := f.uc.Answer(context.Background(), domain.AnswerRequest{Query: "how do I forgive my brother", UserType: "alien"})
	require.NoError(t, err)
	neutral, err := f.uc.Answer(context.Background(), domain.AnswerRequest{Query: "how do I forgive my brother", UserType: "neutral"})
	require.NoError(t, err)

	require.Equal(t, neutral.RenderedPrompt, unknown.RenderedPrompt)
}

func TestAnswerRejectsEmptyQuery(t *testing.T) {
	f := newAnswerFixture(&generatorFake{})

	_, err := f.uc.Answer(context.Background(), domain.AnswerRequest{Query: "   "})
	require.True(t, domain.IsKind(err, domain.ErrInvalidInput))
}

func TestAnswerDoesNotMutateHistory(t *testing.T) {
	f := newAnswerFixture(&generatorFake{reply: `{"response": "ok"}`})
	history := []domain.HistoryMessage{{Role: "user", Content: "I lost my job"}, {Role: "assistant", Content: "I hear you"}}
	snapshot := append([]domain.HistoryMessage(nil), history...)

	_, err := f.uc.Answer(context.Background(), domain.AnswerRequest{Query: "what should I do next", History: history})
	require.NoError(t, err)
	require.Equal(t, snapshot, history)
	require.True(t, strings.Contains(f.generator.prompts[0], "user: I lost my job"))
}
