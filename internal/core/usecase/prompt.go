package usecase

import (
	"fmt"
	"strings"

	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/core/ports"
)

const (
	defaultHistoryLimit = 10
	passageSeparator    = "\n\n---\n\n"
	notAvailable        = "N/A"
)

var toneDirectives = map[domain.UserType]string{
	domain.UserTypeGenZ:    "Use Gen Z-friendly, casual and slightly witty language, something they would find relatable on Instagram or Discord, but still deep, with a few emojis.",
	domain.UserTypeMature:  "Use a respectful, thoughtful and slightly formal tone, as if guiding someone who appreciates depth and tradition.",
	domain.UserTypeNeutral: "Use a balanced tone: clear, warm and conversational. Assume the person is simply seeking clarity in life.",
}

type PromptInput struct {
	Query           string
	UserType        string
	History         []domain.HistoryMessage
	PreviousSummary string
	Passages        []domain.Passage
}

// PromptBuilder renders prompts as a pure function of its input.
type PromptBuilder struct {
	scriptureNames map[string]string
	historyLimit   int
}

func NewPromptBuilder(catalog ports.CorpusCatalog, historyLimit int) *PromptBuilder {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	names := make(map[string]string)
	if catalog != nil {
		for _, corpus := range catalog.Corpora() {
			names[corpus.ID] = corpus.DisplayName
		}
	}
	return &PromptBuilder{
		scriptureNames: names,
		historyLimit:   historyLimit,
	}
}

// RenderContext formats passages for the prompt and for observability.
func (b *PromptBuilder) RenderContext(passages []domain.Passage) string {
	blocks := make([]string, 0, len(passages))
	for _, passage := range passages {
		blocks = append(blocks, b.formatPassage(passage))
	}
	return strings.Join(blocks, passageSeparator)
}

func (b *PromptBuilder) BuildRAGPrompt(in PromptInput) string {
	userType := domain.NormalizeUserType(in.UserType)
	passageContext := b.RenderContext(in.Passages)
	if passageContext == "" {
		passageContext = "(no relevant passages were found)"
	}

	emotions := make([]string, 0, len(domain.Emotions))
	for _, emotion := range domain.Emotions {
		emotions = append(emotions, string(emotion))
	}

	return fmt.Sprintf(`IMPORTANT: Your entire reply MUST be exactly one JSON object and nothing else.
Do NOT add any text before or after the JSON object.
Do NOT wrap the JSON in markdown code fences.
Do NOT use markdown formatting such as ** or __ inside the JSON values.

You are DivineGPT, the embodiment of Lord Krishna's compassionate wisdom, speaking directly to a troubled friend seeking guidance.

The JSON object must have exactly these seven string fields:
{
  "shloka": "<the exact verse text from the context below that best addresses the question>",
  "meaning": "<a clear, concise translation of that verse>",
  "shloka_summary": "<a brief explanation of the verse in the context of the user's problem>",
  "response": "<your personal response as Krishna, speaking directly to the user, about 200 words>",
  "reflection": "<a gentle push to reflect or take action>",
  "emotion": "<the user's primary emotion, exactly one of: %s>",
  "new_summary": "<a compact summary of the whole conversation so far, including this turn>"
}

GUIDELINES:
- Choose the verse only from the context below; never invent verses.
- Make the answer specific to the user's situation; no placeholders or generic filler.
- Keep "new_summary" under 80 words and build on the previous summary.

TONE:
%s

CONTEXT (relevant scripture passages):
%s

PREVIOUS CONVERSATION SUMMARY:
%s

RECENT CONVERSATION:
%s

USER'S QUESTION:
"%s"

Respond now with ONLY the JSON object.
`,
		strings.Join(emotions, ", "),
		toneDirectives[userType],
		passageContext,
		renderSummary(in.PreviousSummary),
		b.renderHistory(in.History),
		strings.TrimSpace(in.Query),
	)
}

func (b *PromptBuilder) BuildSimplePrompt(in PromptInput) string {
	userType := domain.NormalizeUserType(in.UserType)

	return fmt.Sprintf(`You are DivineGPT, a warm companion inspired by Lord Krishna's wisdom.
The user is making small talk. Reply briefly and naturally in one to three sentences.
Reply in plain text. Do not use JSON, markdown or verse quotations.

TONE:
%s

PREVIOUS CONVERSATION SUMMARY:
%s

RECENT CONVERSATION:
%s

USER'S MESSAGE:
"%s"
`,
		toneDirectives[userType],
		renderSummary(in.PreviousSummary),
		b.renderHistory(in.History),
		strings.TrimSpace(in.Query),
	)
}

func (b *PromptBuilder) formatPassage(passage domain.Passage) string {
	name := b.scriptureNames[passage.Corpus]
	if name == "" {
		name = passage.Corpus
	}
	return fmt.Sprintf(`Scripture: %s %s
Shloka (Sanskrit): %s
Transliteration: %s
Meaning (English): %s`,
		name,
		passage.Locator.String(),
		orNotAvailable(passage.Text),
		orNotAvailable(passage.Transliteration),
		orNotAvailable(passage.Translation),
	)
}

func (b *PromptBuilder) renderHistory(history []domain.HistoryMessage) string {
	if len(history) > b.historyLimit {
		history = history[len(history)-b.historyLimit:]
	}
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		if role == "" {
			role = "user"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, content))
	}
	if len(lines) == 0 {
		return "(empty)"
	}
	return strings.Join(lines, "\n")
}

func renderSummary(summary string) string {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "(none)"
	}
	return summary
}

func orNotAvailable(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return notAvailable
	}
	return value
}
