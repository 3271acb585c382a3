package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/infrastructure/resilience"
)

func TestGeneratorSendsPromptAndOptions(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"  {\"response\":\"ok\"}  "}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "llama3", "nomic-embed-text"))
	text, err := gen.Complete(context.Background(), "question?")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != `{"response":"ok"}` {
		t.Fatalf("unexpected completion %q", text)
	}
	if payload["prompt"] != "question?" || payload["model"] != "llama3" || payload["stream"] != false {
		t.Fatalf("unexpected payload %+v", payload)
	}
	options, _ := payload["options"].(map[string]any)
	if options["temperature"] != 0.7 || options["num_predict"] != float64(2048) {
		t.Fatalf("unexpected options %+v", options)
	}
	if _, ok := payload["format"]; ok {
		t.Fatalf("format must not be sent by default")
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadRequest)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.Body != "model unavailable" {
		t.Fatalf("expected status error with body, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("400 must not be classified as temporary")
	}
}

func TestEmbedRetriesBadGateway(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	embedder := NewEmbedder(New(server.URL, "gen", "embed", WithExecutor(exec)))

	vector, err := embedder.EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 2 || calls.Load() != 2 {
		t.Fatalf("expected retry then success, got %v after %d calls", vector, calls.Load())
	}
}

func TestGeneratorMarksServerErrorsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewGenerator(New(server.URL, "gen", "embed")).Complete(context.Background(), "q")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}
