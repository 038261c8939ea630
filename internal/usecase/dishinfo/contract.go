package dishinfo

import (
	"context"

	"github.com/safebites/menuquery/internal/domain"
)

// Oracle produces raw natural-language completions.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Retriever runs the full retrieval cycle for a sub-query.
type Retriever interface {
	SearchWithNegation(ctx context.Context, query, restaurantID string) ([]domain.DishHit, error)
}
