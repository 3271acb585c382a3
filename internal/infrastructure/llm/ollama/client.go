package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/infrastructure/resilience"
)

// Options mirrors the sampling options sent with every generate call.
type Options struct {
	Temperature float64
	MaxTokens   int
	JSONFormat  bool
}

func DefaultOptions() Options {
	return Options{
		Temperature: 0.7,
		MaxTokens:   2048,
	}
}

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	options    Options
	httpClient *http.Client
	executor   *resilience.Executor
}

type ClientOption func(*Client)

func WithExecutor(executor *resilience.Executor) ClientOption {
	return func(c *Client) {
		c.executor = executor
	}
}

func WithOptions(options Options) ClientOption {
	return func(c *Client) {
		c.options = options
	}
}

func WithHTTPTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func New(baseURL, genModel, embedModel string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		options:    DefaultOptions(),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	vectors, err := resilience.Do(ctx, e.client.executor, "ollama_embed", func(runCtx context.Context) ([][]float32, error) {
		var response struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		if err := e.client.postJSON(runCtx, "/api/embed", request, &response, "embed"); err != nil {
			return nil, err
		}
		return response.Embeddings, nil
	}, classifyOllamaError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("ollama embed", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("ollama embed returned %d vectors for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("empty embedding result")
	}
	return vectors[0], nil
}

// Generator implements the core completion contract. Failures are returned
// as errors; llm.MarkerGenerator converts them to the in-band marker.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": g.client.options.Temperature,
			"num_predict": g.client.options.MaxTokens,
		},
	}
	if g.client.options.JSONFormat {
		reqBody["format"] = "json"
	}

	text, err := resilience.Do(ctx, g.client.executor, "ollama_generate", func(runCtx context.Context) (string, error) {
		var response struct {
			Response string `json:"response"`
		}
		if err := g.client.postJSON(runCtx, "/api/generate", reqBody, &response, "generate"); err != nil {
			return "", err
		}
		return strings.TrimSpace(response.Response), nil
	}, classifyOllamaError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama generate", err)
	}
	return text, nil
}

// Ping checks that the Ollama server answers, for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "ollama ping", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return domain.WrapError(domain.ErrTemporary, "ollama ping", formatOllamaHTTPError("ping", resp))
	}
	return nil
}
