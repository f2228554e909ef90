package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
	"github.com/kirillkom/webpage-chat/internal/infrastructure/resilience"
)

func TestGeneratorSendsSingleUserMessage(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"  the answer \n"},"done":true}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "mistral", "mistral"))
	text, err := gen.Generate(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "prompt text"}})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "the answer" {
		t.Fatalf("unexpected answer %q", text)
	}
	if captured.Model != "mistral" || captured.Stream {
		t.Fatalf("unexpected request: %+v", captured)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" || captured.Messages[0].Content != "prompt text" {
		t.Fatalf("unexpected messages: %+v", captured.Messages)
	}
}

func TestGeneratorFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"message":`))
			},
		},
		{
			name: "empty content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"   "},"done":true}`))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			gen := NewGenerator(New(server.URL, "gen", "embed"))
			_, err := gen.Generate(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "q"}})
			if !domain.IsKind(err, domain.ErrGeneration) {
				t.Fatalf("expected generation error, got %v", err)
			}
		})
	}
}

func TestGeneratorUnavailableBackend(t *testing.T) {
	gen := NewGenerator(New("http://127.0.0.1:1", "gen", "embed"))
	_, err := gen.Generate(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "q"}})
	if !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if !domain.IsKind(err, domain.ErrEmbedding) {
		t.Fatalf("expected embedding error, got %v", err)
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestEmbedBatchesInputs(t *testing.T) {
	var batchSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload.Model != "embed" {
			t.Fatalf("unexpected model %q", payload.Model)
		}
		batchSizes = append(batchSizes, len(payload.Input))
		vectors := make([][]float32, len(payload.Input))
		for i := range vectors {
			vectors[i] = []float32{float32(i), 1, 0}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": vectors})
	}))
	defer server.Close()

	client := NewWithOptions(server.URL, "gen", "embed", Options{EmbedBatchSize: 2})
	vectors, err := NewEmbedder(client).Embed(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 5 {
		t.Fatalf("expected 5 vectors, got %d", len(vectors))
	}
	if len(batchSizes) != 3 || batchSizes[0] != 2 || batchSizes[2] != 1 {
		t.Fatalf("unexpected batches: %v", batchSizes)
	}
}

func TestEmbedRejectsInconsistentDimensions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2],[0.1,0.2,0.3]]}`))
	}))
	defer server.Close()

	_, err := NewEmbedder(New(server.URL, "gen", "embed")).Embed(context.Background(), []string{"a", "b"})
	if !domain.IsKind(err, domain.ErrEmbedding) {
		t.Fatalf("expected embedding error, got %v", err)
	}
}

func TestEmbedQueryReturnsFirstVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.5,0.25]]}`))
	}))
	defer server.Close()

	vector, err := NewEmbedder(New(server.URL, "gen", "embed")).EmbedQuery(context.Background(), "q")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 2 || vector[0] != 0.5 {
		t.Fatalf("unexpected vector %v", vector)
	}
}

func TestOpenCircuitSurfacesTemporaryError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		BreakerEnabled:      true,
		BreakerMinRequests:  1,
		BreakerFailureRatio: 0.5,
		BreakerOpenTimeout:  time.Minute,
	})
	gen := NewGenerator(NewWithOptions(server.URL, "gen", "embed", Options{ResilienceExecutor: executor}))
	messages := []domain.Message{{Role: domain.RoleUser, Content: "q"}}

	if _, err := gen.Generate(context.Background(), messages); !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("expected generation error first, got %v", err)
	}
	_, err := gen.Generate(context.Background(), messages)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error once the circuit is open, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single backend call, got %d", calls)
	}
}

func TestBadRequestDoesNotTripBreaker(t *testing.T) {
	class := classifyOllamaError(&HTTPStatusError{Operation: "chat", StatusCode: http.StatusBadRequest, Status: "400 Bad Request"})
	if class.RecordFailure {
		t.Fatalf("expected 400 to be ignored by the breaker")
	}
	class = classifyOllamaError(context.Canceled)
	if class.RecordFailure {
		t.Fatalf("expected cancellation to be ignored by the breaker")
	}
}
