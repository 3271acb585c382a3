// Package mcpadapter exposes the guidance core as Model Context Protocol tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/core/ports"
)

const serverName = "divinegpt"

func NewServer(answers ports.AnswerService, catalog ports.CorpusCatalog, version string) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	ask := NewAskGuidanceTool(answers, catalog)
	s.AddTool(ask.Definition(), ask.Handle)
	return s
}

type AskGuidanceTool struct {
	answers ports.AnswerService
	corpora []string
}

func NewAskGuidanceTool(answers ports.AnswerService, catalog ports.CorpusCatalog) *AskGuidanceTool {
	corpora := []string{}
	if catalog != nil {
		for _, corpus := range catalog.Corpora() {
			corpora = append(corpora, corpus.ID)
		}
	}
	corpora = append(corpora, string(domain.CorpusAll))
	return &AskGuidanceTool{answers: answers, corpora: corpora}
}

func (t *AskGuidanceTool) Definition() mcp.Tool {
	return mcp.NewTool("ask_guidance",
		mcp.WithDescription("Answer a life question with guidance grounded in scripture verses. "+
			"Returns the structured answer as JSON: shloka, meaning, shloka_summary, response, reflection, emotion, new_summary."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The question or message from the user."),
		),
		mcp.WithString("user_type",
			mcp.Description("Tone of the answer."),
			mcp.Enum(string(domain.UserTypeGenZ), string(domain.UserTypeMature), string(domain.UserTypeNeutral)),
		),
		mcp.WithString("corpus",
			mcp.Description("Scripture to search."),
			mcp.Enum(t.corpora...),
		),
		mcp.WithString("previous_summary",
			mcp.Description("new_summary from the previous turn, to keep the conversation going."),
		),
	)
}

func (t *AskGuidanceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	result, err := t.answers.Answer(ctx, domain.AnswerRequest{
		Query:           query,
		UserType:        req.GetString("user_type", string(domain.UserTypeNeutral)),
		Corpus:          req.GetString("corpus", string(domain.CorpusGita)),
		PreviousSummary: req.GetString("previous_summary", ""),
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrRetrievalUnavailable) {
			return mcp.NewToolResultError("scripture search is temporarily unavailable, please retry"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	encoded, err := json.Marshal(result.Answer)
	if err != nil {
		return nil, fmt.Errorf("encode answer: %w", err)
	}
	return mcp.NewToolResultText(string(encoded)), nil
}
