package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
	"github.com/kirillkom/webpage-chat/internal/infrastructure/resilience"
)

const defaultEmbedBatchSize = 32

type Options struct {
	Timeout            time.Duration
	EmbedBatchSize     int
	ResilienceExecutor *resilience.Executor
}

type Client struct {
	baseURL        string
	chatModel      string
	embedModel     string
	embedBatchSize int
	httpClient     *http.Client
	executor       *resilience.Executor
}

func New(baseURL, chatModel, embedModel string) *Client {
	return NewWithOptions(baseURL, chatModel, embedModel, Options{})
}

func NewWithOptions(baseURL, chatModel, embedModel string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	batchSize := options.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		chatModel:      chatModel,
		embedModel:     embedModel,
		embedBatchSize: batchSize,
		httpClient:     &http.Client{Timeout: timeout},
		executor:       options.ResilienceExecutor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

// Embed returns one vector per text, all of the same dimension. Texts are sent
// in batches of the configured size.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.client.embedBatchSize {
		end := min(start+e.client.embedBatchSize, len(texts))
		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}

	dimension := len(out[0])
	for i, vector := range out {
		if len(vector) == 0 || len(vector) != dimension {
			return nil, domain.WrapError(domain.ErrEmbedding, "embed",
				fmt.Errorf("vector %d has dimension %d, expected %d", i, len(vector), dimension))
		}
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed query", errors.New("empty embedding result"))
	}
	return vectors[0], nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.call(ctx, "ollama.embed", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, wrapBackendError(domain.ErrEmbedding, "embed", err)
	}
	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed",
			fmt.Errorf("got %d vectors for %d texts", len(response.Embeddings), len(texts)))
	}
	return response.Embeddings, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Generate(ctx context.Context, messages []domain.Message) (string, error) {
	if len(messages) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "generate", errors.New("no messages"))
	}

	request := chatRequest{
		Model:    g.client.chatModel,
		Messages: make([]chatMessage, 0, len(messages)),
		Stream:   false,
	}
	for _, msg := range messages {
		request.Messages = append(request.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	var response chatResponse
	err := g.client.call(ctx, "ollama.chat", func(ctx context.Context) error {
		return g.client.postJSON(ctx, "/api/chat", request, &response, "chat")
	})
	if err != nil {
		return "", wrapBackendError(domain.ErrGeneration, "generate", err)
	}

	text := strings.TrimSpace(response.Message.Content)
	if text == "" {
		return "", domain.WrapError(domain.ErrGeneration, "generate", errors.New("empty response"))
	}
	return text, nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyOllamaError)
}
