package pipeline

import (
	"context"

	"github.com/safebites/menuquery/internal/domain"
)

// Decomposer splits a raw query into intent-tagged sub-queries.
type Decomposer interface {
	Decompose(ctx context.Context, query string) domain.Decomposition
}

// Retriever runs the full retrieval cycle for one menu_search sub-query.
type Retriever interface {
	SearchWithNegation(ctx context.Context, query, restaurantID string) ([]domain.DishHit, error)
}

// Validator applies the dietary filter and relevance validation.
type Validator interface {
	Apply(filter domain.DishFilter, dishes []domain.DishRecord) ([]domain.DishValidationResult, error)
	ValidateRelevance(ctx context.Context, query string, dishes []domain.DishRecord) []domain.DishRecord
}

// InfoAnswerer resolves dish_info sub-queries.
type InfoAnswerer interface {
	Answer(ctx context.Context, query, restaurantID string, filter domain.DishFilter) (domain.InfoAnswer, []string, error)
}

// History persists chat states per session.
type History interface {
	Append(ctx context.Context, state domain.ChatState) error
	GetOrCreateSession(ctx context.Context, userID, restaurantID string) (string, error)
	RebuildContext(ctx context.Context, sessionID string, n int) ([]domain.SessionContext, error)
}
