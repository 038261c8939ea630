package decompose

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/domain"
	"github.com/safebites/menuquery/internal/metrics"
	"github.com/safebites/menuquery/internal/nlu"
)

// Service splits a raw user query into self-contained sub-queries tagged
// menu_search, dish_info, or irrelevant.
type Service struct {
	oracle Oracle
	logger *zap.Logger
}

// New creates a decomposition service.
func New(oracle Oracle, logger *zap.Logger) *Service {
	return &Service{oracle: oracle, logger: logger}
}

// Decompose classifies the query into the three intent buckets. It fails
// soft: any oracle or parse failure classifies the whole query as a single
// irrelevant intent, never an error to the caller.
func (s *Service) Decompose(ctx context.Context, query string) domain.Decomposition {
	raw, err := s.oracle.Complete(ctx, nlu.DecomposePrompt(query))
	if err != nil {
		s.logger.Warn("decompose oracle call failed, treating query as irrelevant",
			zap.Error(err))
		return s.fallback(query)
	}

	var resp nlu.DecompositionResponse
	if err := nlu.Decode(raw, &resp); err != nil {
		s.logger.Warn("decompose response unparsable, treating query as irrelevant",
			zap.Error(err))
		return s.fallback(query)
	}

	dec := domain.Decomposition{
		MenuSearch: trimNonEmpty(resp.MenuSearch),
		DishInfo:   trimNonEmpty(resp.DishInfo),
		Irrelevant: trimNonEmpty(resp.Irrelevant),
	}
	if dec.Empty() {
		// A structurally valid response with all three buckets empty is a
		// schema violation, not a classification.
		s.logger.Warn("decompose produced no sub-queries, treating query as irrelevant",
			zap.String("query", query))
		return s.fallback(query)
	}

	return dec
}

func (s *Service) fallback(query string) domain.Decomposition {
	metrics.OracleFallbacksTotal.WithLabelValues("decompose").Inc()
	return domain.Decomposition{Irrelevant: []string{query}}
}

func trimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
