package ports

import (
	"context"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
)

// ContentLoader fetches a webpage and returns its readable text.
type ContentLoader interface {
	Load(ctx context.Context, url string) (*domain.Document, error)
}

// Chunker splits page text into overlapping passages.
type Chunker interface {
	Split(text string) []domain.Passage
}

// Embedder builds vectors for passages and query text with one model.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndexBuilder creates a read-only index over one document's passages.
type VectorIndexBuilder interface {
	Build(ctx context.Context, doc *domain.Document, passages []domain.Passage, vectors [][]float32) (VectorIndex, error)
}

// VectorIndex answers nearest-neighbour queries until it is closed.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, k int) ([]domain.RetrievedPassage, error)
	Close(ctx context.Context) error
}

// ChatGenerator produces the assistant reply for a chat transcript.
type ChatGenerator interface {
	Generate(ctx context.Context, messages []domain.Message) (string, error)
}

// SessionEventPublisher announces session state changes.
type SessionEventPublisher interface {
	Publish(ctx context.Context, event domain.SessionEvent) error
}
