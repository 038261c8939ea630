package rerank

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/domain"
)

type mockEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	v, ok := m.vectors[text]
	if !ok {
		return domain.EmbeddingResult{}, errors.New("no vector for " + text)
	}
	return domain.EmbeddingResult{Embedding: v}, nil
}

func hit(id string, vec []float32) domain.DishHit {
	return domain.DishHit{Dish: domain.DishRecord{ID: id}, Embedding: vec}
}

func TestRerank_SortsByCentroidSimilarityDescending(t *testing.T) {
	embed := &mockEmbedder{vectors: map[string][]float32{
		"pasta":     {1, 0},
		"spaghetti": {1, 0},
	}}
	svc := New(embed, 0.30, zap.NewNop())

	// Centroid is (1, 0). far is orthogonal, near is aligned.
	hits := []domain.DishHit{
		hit("mid", []float32{1, 1}),
		hit("far", []float32{0, 1}),
		hit("near", []float32{1, 0}),
	}

	out, err := svc.Rerank(context.Background(), hits, []string{"pasta", "spaghetti"})
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(out))
	}
	if out[0].Dish.ID != "near" || out[1].Dish.ID != "mid" {
		t.Errorf("order = [%s %s], want [near mid]", out[0].Dish.ID, out[1].Dish.ID)
	}
	for i := 1; i < len(out); i++ {
		if out[i].CentroidSimilarity > out[i-1].CentroidSimilarity {
			t.Errorf("centroid similarity not monotonically non-increasing at %d", i)
		}
	}
	for _, h := range out {
		if h.CentroidSimilarity <= 0.30 {
			t.Errorf("dish %s survived with similarity %f at or below threshold", h.Dish.ID, h.CentroidSimilarity)
		}
	}
}

func TestRerank_ZeroPositiveTermsReturnsInputUnchanged(t *testing.T) {
	svc := New(&mockEmbedder{}, 0.30, zap.NewNop())

	hits := []domain.DishHit{
		hit("a", []float32{1, 0}),
		hit("b", []float32{0, 1}),
	}

	out, err := svc.Rerank(context.Background(), hits, nil)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}
	if len(out) != 2 || out[0].Dish.ID != "a" || out[1].Dish.ID != "b" {
		t.Errorf("expected input order preserved, got %v", out)
	}
	for _, h := range out {
		if h.CentroidSimilarity != 0 {
			t.Errorf("expected no centroid similarity attached, got %f", h.CentroidSimilarity)
		}
	}
}

func TestRerank_EmptyHits(t *testing.T) {
	svc := New(&mockEmbedder{vectors: map[string][]float32{"pasta": {1, 0}}}, 0.30, zap.NewNop())

	out, err := svc.Rerank(context.Background(), nil, []string{"pasta"})
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty result, got %v", out)
	}
}

func TestRerank_EmbedFailurePropagates(t *testing.T) {
	svc := New(&mockEmbedder{err: errors.New("provider down")}, 0.30, zap.NewNop())

	_, err := svc.Rerank(context.Background(), []domain.DishHit{hit("a", []float32{1, 0})}, []string{"pasta"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRerank_ThresholdIsExclusive(t *testing.T) {
	embed := &mockEmbedder{vectors: map[string][]float32{"pasta": {1, 0}}}
	// threshold 1.0: even a perfectly aligned hit (similarity 1.0) must drop.
	svc := New(embed, 1.0, zap.NewNop())

	out, err := svc.Rerank(context.Background(), []domain.DishHit{hit("exact", []float32{2, 0})}, []string{"pasta"})
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("hit at threshold must be dropped, got %v", out)
	}
}
