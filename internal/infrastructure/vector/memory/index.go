package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
	"github.com/kirillkom/webpage-chat/internal/core/ports"
)

// Builder creates in-process indexes scanned exhaustively on every query.
type Builder struct{}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) Build(_ context.Context, _ *domain.Document, passages []domain.Passage, vectors [][]float32) (ports.VectorIndex, error) {
	if len(passages) != len(vectors) {
		return nil, domain.WrapError(domain.ErrIndex, "build memory index",
			fmt.Errorf("%d passages but %d vectors", len(passages), len(vectors)))
	}

	idx := &Index{entries: make([]entry, 0, len(passages))}
	for i, vector := range vectors {
		if i == 0 {
			idx.dimension = len(vector)
		}
		if len(vector) == 0 || len(vector) != idx.dimension {
			return nil, domain.WrapError(domain.ErrIndex, "build memory index",
				fmt.Errorf("vector %d has dimension %d, expected %d", i, len(vector), idx.dimension))
		}
		idx.entries = append(idx.entries, entry{
			passage: passages[i],
			vector:  vector,
			norm:    norm(vector),
		})
	}
	return idx, nil
}

type entry struct {
	passage domain.Passage
	vector  []float32
	norm    float64
}

// Index ranks passages by cosine similarity. Equal scores keep insertion order.
type Index struct {
	mu        sync.RWMutex
	dimension int
	entries   []entry
	closed    bool
}

func (ix *Index) Query(_ context.Context, vector []float32, k int) ([]domain.RetrievedPassage, error) {
	if k <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "query memory index", fmt.Errorf("k must be positive, got %d", k))
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.closed {
		return nil, domain.WrapError(domain.ErrIndex, "query memory index", fmt.Errorf("index is closed"))
	}
	if len(ix.entries) == 0 {
		return []domain.RetrievedPassage{}, nil
	}
	if len(vector) != ix.dimension {
		return nil, domain.WrapError(domain.ErrEmbedding, "query memory index",
			fmt.Errorf("query dimension %d does not match index dimension %d", len(vector), ix.dimension))
	}

	queryNorm := norm(vector)
	scored := make([]domain.RetrievedPassage, 0, len(ix.entries))
	for _, e := range ix.entries {
		scored = append(scored, domain.RetrievedPassage{
			Passage: e.passage,
			Score:   cosine(e.vector, e.norm, vector, queryNorm),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

func (ix *Index) Close(context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = nil
	ix.closed = true
	return nil
}

func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}

func norm(v []float32) float64 {
	sum := 0.0
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
