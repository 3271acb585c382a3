package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/divinegpt/divinegpt/internal/config"
	"github.com/divinegpt/divinegpt/internal/core/domain"
)

type answerFake struct {
	err  error
	last domain.AnswerRequest
}

func (f *answerFake) Answer(_ context.Context, req domain.AnswerRequest) (*domain.AnswerResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AnswerResult{Answer: domain.StructuredAnswer{
		Response:   "Begin with the step that is yours.",
		Emotion:    domain.EmotionCalm,
		NewSummary: "User asked about fear of failure.",
	}}, nil
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = "ask_guidance"
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestAskGuidanceReturnsStructuredAnswer(t *testing.T) {
	answers := &answerFake{}
	tool := NewAskGuidanceTool(answers, config.DefaultCatalog())

	result, err := tool.Handle(context.Background(), callRequest(map[string]any{
		"query":            "I am afraid of failing",
		"user_type":        "genz",
		"corpus":           "ramayana",
		"previous_summary": "earlier",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var answer domain.StructuredAnswer
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &answer))
	require.Equal(t, domain.EmotionCalm, answer.Emotion)
	require.Equal(t, domain.AnswerRequest{
		Query:           "I am afraid of failing",
		UserType:        "genz",
		Corpus:          "ramayana",
		PreviousSummary: "earlier",
	}, answers.last)
}

func TestAskGuidanceDefaults(t *testing.T) {
	answers := &answerFake{}
	tool := NewAskGuidanceTool(answers, config.DefaultCatalog())

	_, err := tool.Handle(context.Background(), callRequest(map[string]any{"query": "hello"}))
	require.NoError(t, err)
	require.Equal(t, "neutral", answers.last.UserType)
	require.Equal(t, "gita", answers.last.Corpus)
}

func TestAskGuidanceRequiresQuery(t *testing.T) {
	tool := NewAskGuidanceTool(&answerFake{}, config.DefaultCatalog())

	result, err := tool.Handle(context.Background(), callRequest(map[string]any{"user_type": "genz"}))
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestAskGuidanceReportsRetrievalOutage(t *testing.T) {
	answers := &answerFake{err: domain.WrapError(domain.ErrRetrievalUnavailable, "search", errors.New("qdrant down"))}
	tool := NewAskGuidanceTool(answers, config.DefaultCatalog())

	result, err := tool.Handle(context.Background(), callRequest(map[string]any{"query": "what is dharma?"}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	require.NotContains(t, resultText(t, result), "qdrant")
}

func TestDefinitionListsCorpora(t *testing.T) {
	tool := NewAskGuidanceTool(&answerFake{}, config.DefaultCatalog())
	def := tool.Definition()

	require.Equal(t, "ask_guidance", def.Name)
	require.Contains(t, def.InputSchema.Required, "query")
	require.Equal(t, []string{"gita", "ramayana", "all"}, tool.corpora)
}

func TestNewServerRegistersTool(t *testing.T) {
	s := NewServer(&answerFake{}, config.DefaultCatalog(), "test")
	require.NotNil(t, s)
}
