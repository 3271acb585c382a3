package usecase

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

func promptFixture() PromptInput {
	return PromptInput{
		Query:           "I am scared of failing my exams",
		UserType:        "genz",
		PreviousSummary: "User is a student under pressure.",
		History: []domain.HistoryMessage{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "Hello friend"},
		},
		Passages: []domain.Passage{gitaPassage(2, 47, 0.9), ramayanaPassage(19, 7, 0.8)},
	}
}

func TestBuildRAGPromptIsDeterministic(t *testing.T) {
	builder := NewPromptBuilder(testCatalog(), 10)

	first := builder.BuildRAGPrompt(promptFixture())
	second := builder.BuildRAGPrompt(promptFixture())
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("prompt changed between identical calls (-first +second):\n%s", diff)
	}
}

func TestBuildRAGPromptContents(t *testing.T) {
	builder := NewPromptBuilder(testCatalog(), 10)
	prompt := builder.BuildRAGPrompt(promptFixture())

	for _, want := range []string{
		`"I am scared of failing my exams"`,
		"Scripture: Bhagavad Gita 2.47",
		"Scripture: Valmiki Ramayana Ayodhya Kanda 19.7",
		"User is a student under pressure.",
		"user: hi\nassistant: Hello friend",
		"Joy, Happy, Calm, Neutral, Anxious, Sad, Angry",
		toneDirectives[domain.UserTypeGenZ],
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q", want)
		}
	}
	for _, field := range domain.AnswerFields {
		if !strings.Contains(prompt, `"`+field+`"`) {
			t.Fatalf("expected prompt to name field %s", field)
		}
	}
}

func TestBuildRAGPromptUnknownUserTypeUsesNeutral(t *testing.T) {
	builder := NewPromptBuilder(testCatalog(), 10)

	unknown := promptFixture()
	unknown.UserType = "boomer"
	neutral := promptFixture()
	neutral.UserType = "neutral"

	if diff := cmp.Diff(builder.BuildRAGPrompt(neutral), builder.BuildRAGPrompt(unknown)); diff != "" {
		t.Fatalf("unknown user type should render the neutral prompt (-neutral +unknown):\n%s", diff)
	}
}

func TestBuildRAGPromptPlaceholders(t *testing.T) {
	builder := NewPromptBuilder(testCatalog(), 10)
	prompt := builder.BuildRAGPrompt(PromptInput{Query: "what is dharma"})

	for _, want := range []string{"(no relevant passages were found)", "(none)", "(empty)"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected placeholder %q in prompt", want)
		}
	}
}

func TestRenderHistoryKeepsLastMessages(t *testing.T) {
	builder := NewPromptBuilder(testCatalog(), 2)
	history := make([]domain.HistoryMessage, 0, 5)
	for i := 1; i <= 5; i++ {
		history = append(history, domain.HistoryMessage{Role: "user", Content: fmt.Sprintf("message %d", i)})
	}

	got := builder.renderHistory(history)
	if diff := cmp.Diff("user: message 4\nuser: message 5", got); diff != "" {
		t.Fatalf("unexpected history (-want +got):\n%s", diff)
	}
	if len(history) != 5 {
		t.Fatalf("history must not be mutated, got len=%d", len(history))
	}
}

func TestRenderContextFormatsPassages(t *testing.T) {
	builder := NewPromptBuilder(testCatalog(), 10)
	passage := gitaPassage(2, 47, 0.9)
	passage.Transliteration = ""

	got := builder.RenderContext([]domain.Passage{passage, passage})
	want := "Scripture: Bhagavad Gita 2.47\n" +
		"Shloka (Sanskrit): shloka text\n" +
		"Transliteration: N/A\n" +
		"Meaning (English): The wise grieve neither for the living nor for the dead. They stay steady."
	if diff := cmp.Diff(want+passageSeparator+want, got); diff != "" {
		t.Fatalf("unexpected context (-want +got):\n%s", diff)
	}
	if builder.RenderContext(nil) != "" {
		t.Fatalf("expected empty context for no passages")
	}
}

func TestBuildSimplePrompt(t *testing.T) {
	builder := NewPromptBuilder(testCatalog(), 10)
	prompt := builder.BuildSimplePrompt(PromptInput{Query: "hi", UserType: "mature"})

	if !strings.Contains(prompt, `"hi"`) || !strings.Contains(prompt, toneDirectives[domain.UserTypeMature]) {
		t.Fatalf("unexpected simple prompt: %s", prompt)
	}
	if strings.Contains(prompt, "Scripture:") {
		t.Fatalf("simple prompt must not carry scripture context")
	}
}
