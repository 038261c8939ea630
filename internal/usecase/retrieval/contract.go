package retrieval

import (
	"context"

	"github.com/safebites/menuquery/internal/domain"
)

// Embedder vectorizes search terms.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher queries the vector index within a restaurant partition.
type Searcher interface {
	Search(
		ctx context.Context, vector []float32, restaurantID string,
		topK int, minScore float64,
	) ([]domain.IndexHit, error)
}

// Catalog resolves dish ids to authoritative records.
type Catalog interface {
	Get(ctx context.Context, dishID string) (domain.DishRecord, error)
}

// Expander produces positive/negative intent terms for a sub-query.
type Expander interface {
	Expand(ctx context.Context, subquery string) domain.QueryIntent
}

// Reranker re-orders hits against the positive-term centroid.
type Reranker interface {
	Rerank(ctx context.Context, hits []domain.DishHit, positiveTerms []string) ([]domain.DishHit, error)
}
