package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/infrastructure/resilience"
)

// Client talks to the Qdrant REST API. Each corpus lives in its own
// collection, named by domain.Corpus.Collection.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu sync.Mutex
	ensured  map[string]int
}

type Option func(*Client)

func WithAPIKey(apiKey string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(apiKey)
	}
}

func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		ensured:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) IndexVerses(ctx context.Context, corpus domain.Corpus, verses []domain.Verse, vectors [][]float32) error {
	if len(verses) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(verses) != len(vectors) {
		return fmt.Errorf("verses/vectors mismatch: %d/%d", len(verses), len(vectors))
	}

	if err := c.ensureCollection(ctx, corpus.Collection, len(vectors[0])); err != nil {
		return err
	}

	points := make([]point, 0, len(verses))
	for i, verse := range verses {
		points = append(points, point{
			ID:      pointID(corpus, verse),
			Vector:  vectors[i],
			Payload: versePayload(corpus, verse),
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(corpus.Collection))
	err := c.executor.Execute(ctx, "qdrant_upsert", func(runCtx context.Context) error {
		return c.doJSON(runCtx, http.MethodPut, path, map[string]any{"points": points}, nil, "upsert")
	}, classifyQdrantError)
	if err != nil {
		return wrapTemporaryIfNeeded("qdrant upsert", err)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, queryVector []float32, corpus domain.Corpus, limit int) ([]domain.Passage, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(corpus.Collection))
	err := c.executor.Execute(ctx, "qdrant_search", func(runCtx context.Context) error {
		return c.doJSON(runCtx, http.MethodPost, path, reqBody, &searchResp, "search")
	}, classifyQdrantError)
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, domain.WrapError(domain.ErrCorpusNotFound, "qdrant search", err)
		}
		return nil, wrapTemporaryIfNeeded("qdrant search", err)
	}

	out := make([]domain.Passage, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		passage := passageFromPayload(corpus, r.Payload)
		passage.Score = r.Score
		out = append(out, passage)
	}
	return out, nil
}

// Ping checks that Qdrant answers, for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodGet, "/collections", nil, nil, "ping"); err != nil {
		return domain.WrapError(domain.ErrTemporary, "qdrant ping", err)
	}
	return nil
}

func (c *Client) ensureCollection(ctx context.Context, collection string, vectorSize int) error {
	c.ensureMu.Lock()
	if size, ok := c.ensured[collection]; ok && size == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	path := fmt.Sprintf("/collections/%s", url.PathEscape(collection))
	err := c.doJSON(ctx, http.MethodPut, path, reqBody, nil, "ensure collection")
	if err != nil {
		var statusErr *HTTPStatusError
		// 409 when the collection already exists (depends on version/config).
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusConflict {
			return err
		}
	}

	c.ensureMu.Lock()
	c.ensured[collection] = vectorSize
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any, operation string) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(msg)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
