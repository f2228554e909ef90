package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
	"github.com/kirillkom/webpage-chat/internal/core/ports"
)

// Session is the state of one conversation: at most one indexed page and the
// messages exchanged about it. Actions on a session are serialised.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	document *domain.Document
	index    ports.VectorIndex
	passages int
	messages []domain.Message
}

func NewSession(id string) *Session {
	return &Session{ID: id, CreatedAt: time.Now().UTC()}
}

func (s *Session) state() domain.SessionState {
	switch {
	case s.index == nil:
		return domain.SessionEmpty
	case len(s.messages) == 0:
		return domain.SessionIndexed
	default:
		return domain.SessionIndexedWithHistory
	}
}

func (s *Session) snapshot() *domain.SessionSnapshot {
	out := &domain.SessionSnapshot{
		ID:        s.ID,
		State:     s.state(),
		Passages:  s.passages,
		Messages:  append([]domain.Message(nil), s.messages...),
		CreatedAt: s.CreatedAt,
	}
	if s.document != nil {
		out.URL = s.document.URL
		out.Title = s.document.Title
	}
	if out.Messages == nil {
		out.Messages = []domain.Message{}
	}
	return out
}

type ControllerOptions struct {
	TopK            int
	HistoryMessages int
}

// Controller runs the three session actions: submit a URL, ask a question and
// clear. Every action either completes fully or leaves the session unchanged.
type Controller struct {
	loader    ports.ContentLoader
	chunker   ports.Chunker
	embedder  ports.Embedder
	indexer   ports.VectorIndexBuilder
	generator ports.ChatGenerator
	events    ports.SessionEventPublisher

	retriever *Retriever
	formatter *PromptFormatter
	topK      int
}

func NewController(
	loader ports.ContentLoader,
	chunker ports.Chunker,
	embedder ports.Embedder,
	indexer ports.VectorIndexBuilder,
	generator ports.ChatGenerator,
	events ports.SessionEventPublisher,
	options ControllerOptions,
) *Controller {
	topK := options.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Controller{
		loader:    loader,
		chunker:   chunker,
		embedder:  embedder,
		indexer:   indexer,
		generator: generator,
		events:    events,
		retriever: NewRetriever(embedder),
		formatter: NewPromptFormatter(options.HistoryMessages),
		topK:      topK,
	}
}

// SubmitURL indexes the page when the session is empty. While a page is
// indexed the URL is ignored and the result says so.
func (c *Controller) SubmitURL(ctx context.Context, s *Session, rawURL string) (*domain.IndexResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		slog.Info("url_ignored", "session_id", s.ID, "url", strings.TrimSpace(rawURL), "indexed_url", s.document.URL)
		return &domain.IndexResult{
			URL:      s.document.URL,
			Title:    s.document.Title,
			Passages: s.passages,
			Ignored:  true,
			State:    s.state(),
		}, nil
	}

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit url", errors.New("url is required"))
	}

	start := time.Now()
	doc, err := c.loader.Load(ctx, rawURL)
	if err != nil {
		if !domain.IsKind(err, domain.ErrFetch) {
			err = domain.WrapError(domain.ErrFetch, "submit url", err)
		}
		return nil, err
	}

	passages := c.chunker.Split(doc.Content)
	if len(passages) == 0 {
		return nil, domain.WrapError(domain.ErrFetch, "submit url", errors.New("page has no readable text"))
	}

	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Text)
	}
	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, ensureKind(domain.ErrEmbedding, "embed passages", err)
	}
	if len(vectors) != len(passages) {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed passages",
			fmt.Errorf("got %d vectors for %d passages", len(vectors), len(passages)))
	}

	index, err := c.indexer.Build(ctx, doc, passages, vectors)
	if err != nil {
		return nil, ensureKind(domain.ErrIndex, "build index", err)
	}

	s.document = doc
	s.index = index
	s.passages = len(passages)

	slog.Info("url_indexed",
		"session_id", s.ID,
		"url", doc.URL,
		"title", doc.Title,
		"passages", len(passages),
		"dimension", len(vectors[0]),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	c.publish(ctx, domain.SessionEvent{
		Type:      domain.EventPageIndexed,
		SessionID: s.ID,
		URL:       doc.URL,
		Title:     doc.Title,
		Passages:  len(passages),
	})

	return &domain.IndexResult{
		URL:      doc.URL,
		Title:    doc.Title,
		Passages: len(passages),
		State:    s.state(),
	}, nil
}

// Ask answers a question about the indexed page. Without an index it returns
// the fixed guidance text and touches neither the embedder nor the LLM.
func (c *Controller) Ask(ctx context.Context, s *Session, question string) (*domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is required"))
	}

	answer, err := c.answer(ctx, s, question)
	if domain.IsKind(err, domain.ErrNoIndex) {
		return &domain.Answer{
			Text:    domain.GuidanceMessage,
			Mode:    domain.PromptModeGuidance,
			Sources: []domain.RetrievedPassage{},
			State:   s.state(),
		}, nil
	}
	return answer, err
}

func (c *Controller) answer(ctx context.Context, s *Session, question string) (*domain.Answer, error) {
	if s.index == nil {
		return nil, domain.WrapError(domain.ErrNoIndex, "ask", errors.New("session has no indexed page"))
	}

	start := time.Now()
	passages, err := c.retriever.Retrieve(ctx, s.index, question, c.topK)
	if err != nil {
		return nil, ensureKind(domain.ErrIndex, "retrieve passages", err)
	}

	prompt, mode := c.formatter.Format(question, passages, s.messages)
	text, err := c.generator.Generate(ctx, []domain.Message{{Role: domain.RoleUser, Content: prompt}})
	if err != nil {
		return nil, ensureKind(domain.ErrGeneration, "generate answer", err)
	}

	now := time.Now().UTC()
	s.messages = append(s.messages,
		domain.Message{Role: domain.RoleUser, Content: question, CreatedAt: now},
		domain.Message{Role: domain.RoleAssistant, Content: text, CreatedAt: now},
	)

	slog.Info("question_answered",
		"session_id", s.ID,
		"mode", mode,
		"sources", len(passages),
		"history_messages", len(s.messages),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)

	if passages == nil {
		passages = []domain.RetrievedPassage{}
	}
	return &domain.Answer{
		Text:    text,
		Mode:    mode,
		Sources: passages,
		State:   s.state(),
	}, nil
}

// Clear returns the session to the empty state. Releasing the old index is
// best effort: a failure is logged and the session stays cleared.
func (c *Controller) Clear(ctx context.Context, s *Session) *domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.index
	url := ""
	if s.document != nil {
		url = s.document.URL
	}

	s.document = nil
	s.index = nil
	s.passages = 0
	s.messages = nil

	if index != nil {
		if err := index.Close(ctx); err != nil {
			slog.Warn("vector_index_close_failed", "session_id", s.ID, "error", err)
		}
	}

	slog.Info("session_cleared", "session_id", s.ID, "url", url)
	c.publish(ctx, domain.SessionEvent{
		Type:      domain.EventSessionCleared,
		SessionID: s.ID,
		URL:       url,
	})
	return s.snapshot()
}

func (c *Controller) Snapshot(s *Session) *domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (c *Controller) publish(ctx context.Context, event domain.SessionEvent) {
	if c.events == nil {
		return
	}
	event.OccurredAt = time.Now().UTC()
	if err := c.events.Publish(ctx, event); err != nil {
		slog.Warn("session_event_publish_failed", "session_id", event.SessionID, "type", event.Type, "error", err)
	}
}

// ensureKind keeps an already typed error and tags anything else with kind.
func ensureKind(kind error, operation string, err error) error {
	for _, known := range []error{
		domain.ErrFetch,
		domain.ErrEmbedding,
		domain.ErrGeneration,
		domain.ErrIndex,
		domain.ErrInvalidInput,
		domain.ErrTemporary,
	} {
		if domain.IsKind(err, known) {
			return err
		}
	}
	return domain.WrapError(kind, operation, err)
}
