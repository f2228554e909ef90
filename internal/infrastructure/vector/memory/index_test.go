package memory

import (
	"context"
	"testing"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
)

func passages(texts ...string) []domain.Passage {
	out := make([]domain.Passage, 0, len(texts))
	for i, text := range texts {
		out = append(out, domain.Passage{Position: i, Text: text})
	}
	return out
}

func TestQueryRanksNearestFirst(t *testing.T) {
	idx, err := NewBuilder().Build(context.Background(), &domain.Document{ID: "doc"},
		passages("east", "north", "north-east"),
		[][]float32{{1, 0}, {0, 1}, {1, 1}},
	)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got, err := idx.Query(context.Background(), []float32{0, 2}, 2)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 2 || got[0].Text != "north" || got[1].Text != "north-east" {
		t.Fatalf("unexpected ranking: %+v", got)
	}
	if got[0].Score < got[1].Score {
		t.Fatalf("expected non-increasing scores: %+v", got)
	}
}

func TestQueryBreaksTiesByInsertionOrder(t *testing.T) {
	idx, err := NewBuilder().Build(context.Background(), &domain.Document{ID: "doc"},
		passages("first", "second", "third"),
		[][]float32{{1, 0}, {2, 0}, {3, 0}},
	)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got, err := idx.Query(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected all 3 passages when k exceeds size, got %d", len(got))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Text != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, got[i].Text)
		}
	}
}

func TestQueryRejectsDimensionMismatch(t *testing.T) {
	idx, err := NewBuilder().Build(context.Background(), &domain.Document{ID: "doc"},
		passages("a"), [][]float32{{1, 0, 0}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	_, err = idx.Query(context.Background(), []float32{1, 0}, 1)
	if !domain.IsKind(err, domain.ErrEmbedding) {
		t.Fatalf("expected embedding error, got %v", err)
	}
}

func TestBuildRejectsMismatchedInput(t *testing.T) {
	_, err := NewBuilder().Build(context.Background(), &domain.Document{ID: "doc"},
		passages("a", "b"), [][]float32{{1, 0}})
	if !domain.IsKind(err, domain.ErrIndex) {
		t.Fatalf("expected index error, got %v", err)
	}

	_, err = NewBuilder().Build(context.Background(), &domain.Document{ID: "doc"},
		passages("a", "b"), [][]float32{{1, 0}, {1, 0, 0}})
	if !domain.IsKind(err, domain.ErrIndex) {
		t.Fatalf("expected index error for mixed dimensions, got %v", err)
	}
}

func TestEmptyIndexReturnsNoPassages(t *testing.T) {
	idx, err := NewBuilder().Build(context.Background(), &domain.Document{ID: "doc"}, nil, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	got, err := idx.Query(context.Background(), []float32{1}, 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v, %v", got, err)
	}
}

func TestClosedIndexRejectsQueries(t *testing.T) {
	built, err := NewBuilder().Build(context.Background(), &domain.Document{ID: "doc"}, passages("a"), [][]float32{{1}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	idx := built.(*Index)
	if err := idx.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if idx.Len() != 0 {
		t.Fatalf("expected entries to be released")
	}
	if _, err := idx.Query(context.Background(), []float32{1}, 1); !domain.IsKind(err, domain.ErrIndex) {
		t.Fatalf("expected index error after close, got %v", err)
	}
}
