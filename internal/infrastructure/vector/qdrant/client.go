package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
	"github.com/kirillkom/webpage-chat/internal/core/ports"
	"github.com/kirillkom/webpage-chat/internal/infrastructure/resilience"
)

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

// Client builds one Qdrant collection per indexed page. The collection lives
// until the owning session is cleared.
type Client struct {
	baseURL          string
	collectionPrefix string
	httpClient       *http.Client
	executor         *resilience.Executor
}

func New(baseURL, collectionPrefix string) *Client {
	return NewWithOptions(baseURL, collectionPrefix, Options{})
}

func NewWithOptions(baseURL, collectionPrefix string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	prefix := strings.TrimSpace(collectionPrefix)
	if prefix == "" {
		prefix = "webchat"
	}
	return &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		collectionPrefix: prefix,
		httpClient:       &http.Client{Timeout: timeout},
		executor:         options.ResilienceExecutor,
	}
}

func (c *Client) Build(ctx context.Context, doc *domain.Document, passages []domain.Passage, vectors [][]float32) (ports.VectorIndex, error) {
	if doc == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "build qdrant index", fmt.Errorf("document is nil"))
	}
	if len(passages) != len(vectors) {
		return nil, domain.WrapError(domain.ErrIndex, "build qdrant index",
			fmt.Errorf("%d passages but %d vectors", len(passages), len(vectors)))
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrIndex, "build qdrant index", fmt.Errorf("no vectors to index"))
	}

	col := &Collection{
		client:    c,
		name:      c.collectionPrefix + "_" + doc.ID,
		dimension: len(vectors[0]),
	}
	if err := c.call(ctx, "qdrant.create_collection", func(ctx context.Context) error {
		return col.create(ctx)
	}); err != nil {
		return nil, wrapIndexError("create qdrant collection", err)
	}

	err := c.call(ctx, "qdrant.upsert", func(ctx context.Context) error {
		return col.upsert(ctx, doc, passages, vectors)
	})
	if err != nil {
		if dropErr := col.Close(context.WithoutCancel(ctx)); dropErr != nil {
			slog.Warn("qdrant_collection_drop_failed", "collection", col.name, "error", dropErr)
		}
		return nil, wrapIndexError("upsert qdrant points", err)
	}
	return col, nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload any, operation string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s body: %w", operation, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	return resp, nil
}

// Collection is the VectorIndex of one page.
type Collection struct {
	client    *Client
	name      string
	dimension int
}

func (col *Collection) Name() string { return col.name }

func (col *Collection) create(ctx context.Context) error {
	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     col.dimension,
			"distance": "Cosine",
		},
	}
	resp, err := col.client.do(ctx, http.MethodPut, "/collections/"+col.name, reqBody, "create collection")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError("create collection", resp)
	}
	return nil
}

func (col *Collection) upsert(ctx context.Context, doc *domain.Document, passages []domain.Passage, vectors [][]float32) error {
	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(passages))
	for i := range passages {
		points = append(points, point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: map[string]any{
				"doc_id":   doc.ID,
				"url":      doc.URL,
				"position": passages[i].Position,
				"offset":   passages[i].Offset,
				"text":     passages[i].Text,
			},
		})
	}

	resp, err := col.client.do(ctx, http.MethodPut, "/collections/"+col.name+"/points?wait=true",
		map[string]any{"points": points}, "upsert")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError("upsert", resp)
	}
	return nil
}

func (col *Collection) Query(ctx context.Context, vector []float32, k int) ([]domain.RetrievedPassage, error) {
	if k <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "query qdrant index", fmt.Errorf("k must be positive, got %d", k))
	}
	if len(vector) != col.dimension {
		return nil, domain.WrapError(domain.ErrEmbedding, "query qdrant index",
			fmt.Errorf("query dimension %d does not match index dimension %d", len(vector), col.dimension))
	}

	var out []domain.RetrievedPassage
	err := col.client.call(ctx, "qdrant.search", func(ctx context.Context) error {
		var err error
		out, err = col.search(ctx, vector, k)
		return err
	})
	if err != nil {
		return nil, wrapIndexError("search qdrant", err)
	}
	return out, nil
}

func (col *Collection) search(ctx context.Context, vector []float32, k int) ([]domain.RetrievedPassage, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	resp, err := col.client.do(ctx, http.MethodPost, "/collections/"+col.name+"/points/search", reqBody, "search")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, statusError("search", resp)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.RetrievedPassage, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.RetrievedPassage{
			Passage: domain.Passage{
				Position: getIntPayload(r.Payload, "position"),
				Offset:   getIntPayload(r.Payload, "offset"),
				Text:     getStringPayload(r.Payload, "text"),
			},
			Score: r.Score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

// Close drops the collection. A collection that is already gone is not an error.
func (col *Collection) Close(ctx context.Context) error {
	resp, err := col.client.do(ctx, http.MethodDelete, "/collections/"+col.name, nil, "delete collection")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= 300 {
		return statusError("delete collection", resp)
	}
	return nil
}

func statusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("qdrant %s status: %s: %s", operation, resp.Status, msg)
	}
	return fmt.Errorf("qdrant %s status: %s", operation, resp.Status)
}

func wrapIndexError(operation string, err error) error {
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return domain.WrapError(domain.ErrIndex, operation, err)
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
