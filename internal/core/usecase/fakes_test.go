package usecase

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
	"github.com/kirillkom/webpage-chat/internal/core/ports"
)

type loaderFake struct {
	content string
	err     error
	calls   int
}

func (f *loaderFake) Load(_ context.Context, url string) (*domain.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: "doc-1", URL: url, Title: "Example", Content: f.content}, nil
}

// chunkerFake splits on "|" so tests control passages exactly.
type chunkerFake struct{}

func (chunkerFake) Split(text string) []domain.Passage {
	if text == "" {
		return nil
	}
	parts := strings.Split(text, "|")
	out := make([]domain.Passage, 0, len(parts))
	for i, part := range parts {
		out = append(out, domain.Passage{Position: i, Text: part})
	}
	return out
}

type embedderFake struct {
	embedCalls atomic.Int32
	queryCalls atomic.Int32
	err        error
	queryErr   error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.embedCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	f.queryCalls.Add(1)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []float32{0, 1}, nil
}

type indexFake struct {
	passages []domain.Passage
	closeErr error
	closed   bool
	lastK    int
}

func (f *indexFake) Query(_ context.Context, _ []float32, k int) ([]domain.RetrievedPassage, error) {
	f.lastK = k
	out := make([]domain.RetrievedPassage, 0, len(f.passages))
	for _, p := range f.passages {
		if len(out) == k {
			break
		}
		out = append(out, domain.RetrievedPassage{Passage: p, Score: 1})
	}
	return out, nil
}

func (f *indexFake) Close(context.Context) error {
	f.closed = true
	return f.closeErr
}

type builderFake struct {
	err      error
	calls    int
	closeErr error
	built    []*indexFake
}

func (f *builderFake) Build(_ context.Context, _ *domain.Document, passages []domain.Passage, _ [][]float32) (ports.VectorIndex, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	idx := &indexFake{passages: passages, closeErr: f.closeErr}
	f.built = append(f.built, idx)
	return idx, nil
}

type generatorFake struct {
	mu       sync.Mutex
	prompts  []string
	err      error
	inFlight atomic.Int32
	overlap  atomic.Bool
}

func (f *generatorFake) Generate(_ context.Context, messages []domain.Message) (string, error) {
	if f.inFlight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.inFlight.Add(-1)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	return "answer " + string(rune('A'+len(f.prompts)-1)), nil
}

func (f *generatorFake) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type eventsFake struct {
	mu     sync.Mutex
	events []domain.SessionEvent
	err    error
}

func (f *eventsFake) Publish(_ context.Context, event domain.SessionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type controllerFixture struct {
	loader    *loaderFake
	embedder  *embedderFake
	builder   *builderFake
	generator *generatorFake
	events    *eventsFake
	ctrl      *Controller
}

func newFixture(content string) *controllerFixture {
	f := &controllerFixture{
		loader:    &loaderFake{content: content},
		embedder:  &embedderFake{},
		builder:   &builderFake{},
		generator: &generatorFake{},
		events:    &eventsFake{},
	}
	f.ctrl = NewController(f.loader, chunkerFake{}, f.embedder, f.builder, f.generator, f.events, ControllerOptions{
		TopK:            5,
		HistoryMessages: 4,
	})
	return f
}
