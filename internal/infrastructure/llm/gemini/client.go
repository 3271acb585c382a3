package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/infrastructure/resilience"
)

const (
	defaultGenModel   = "gemini-2.0-flash"
	defaultEmbedModel = "gemini-embedding-001"
)

type Config struct {
	APIKey      string
	GenModel    string
	EmbedModel  string
	Temperature float32
	MaxTokens   int32
}

type Client struct {
	models     *genai.Models
	genModel   string
	embedModel string
	gen        *genai.GenerateContentConfig
	executor   *resilience.Executor
}

func New(ctx context.Context, cfg Config, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "gemini client", errors.New("api key is required"))
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	genModel := strings.TrimSpace(cfg.GenModel)
	if genModel == "" {
		genModel = defaultGenModel
	}
	embedModel := strings.TrimSpace(cfg.EmbedModel)
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	return &Client{
		models:     client.Models,
		genModel:   genModel,
		embedModel: embedModel,
		gen: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(temperature),
			MaxOutputTokens: maxTokens,
		},
		executor: executor,
	}, nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	text, err := resilience.Do(ctx, g.client.executor, "gemini_generate", func(runCtx context.Context) (string, error) {
		resp, err := g.client.models.GenerateContent(runCtx, g.client.genModel, genai.Text(prompt), g.client.gen)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(resp.Text()), nil
	}, classifyGeminiError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("gemini generate", err)
	}
	return text, nil
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, texts, "RETRIEVAL_DOCUMENT")
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("empty embedding result")
	}
	return vectors[0], nil
}

func (e *Embedder) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	vectors, err := resilience.Do(ctx, e.client.executor, "gemini_embed", func(runCtx context.Context) ([][]float32, error) {
		resp, err := e.client.models.EmbedContent(runCtx, e.client.embedModel, contents, &genai.EmbedContentConfig{
			TaskType: taskType,
		})
		if err != nil {
			return nil, err
		}
		out := make([][]float32, 0, len(resp.Embeddings))
		for _, embedding := range resp.Embeddings {
			out = append(out, embedding.Values)
		}
		return out, nil
	}, classifyGeminiError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("gemini embed", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("gemini embed returned %d vectors for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}

func classifyGeminiError(err error) resilience.ErrorClassification {
	return resilience.Classify(err, func(err error) (bool, bool) {
		var apiErr genai.APIError
		if !errors.As(err, &apiErr) {
			return false, false
		}
		return resilience.RetryableStatus(apiErr.Code), true
	})
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	return resilience.WrapTemporary(operation, err, classifyGeminiError)
}
