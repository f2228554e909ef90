package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
	"github.com/kirillkom/webpage-chat/internal/core/ports"
)

const DefaultTopK = 5

type Retriever struct {
	embedder ports.Embedder
}

func NewRetriever(embedder ports.Embedder) *Retriever {
	return &Retriever{embedder: embedder}
}

// Retrieve embeds the question with the indexing model and returns up to k
// passages nearest-first. A nil index yields no passages.
func (r *Retriever) Retrieve(ctx context.Context, index ports.VectorIndex, question string, k int) ([]domain.RetrievedPassage, error) {
	if index == nil {
		return []domain.RetrievedPassage{}, nil
	}
	if k <= 0 {
		k = DefaultTopK
	}

	vector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		if domain.IsKind(err, domain.ErrEmbedding) || domain.IsKind(err, domain.ErrTemporary) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrEmbedding, "embed question", err)
	}

	passages, err := index.Query(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}
	return passages, nil
}
