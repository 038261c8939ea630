package expand

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/domain"
	"github.com/safebites/menuquery/internal/metrics"
	"github.com/safebites/menuquery/internal/nlu"
)

// Service expands one sub-query into positive and negative intent terms.
// Positive terms are semantically broadened; negative terms stay narrow.
type Service struct {
	oracle Oracle
	logger *zap.Logger
}

// New creates an intent expansion service.
func New(oracle Oracle, logger *zap.Logger) *Service {
	return &Service{oracle: oracle, logger: logger}
}

// Expand produces the positive/negative term lists for a sub-query. On any
// oracle or parse failure the fallback is exactly
// {positive: [subquery], negative: []}, so every sub-query still retrieves
// by its own text.
func (s *Service) Expand(ctx context.Context, subquery string) domain.QueryIntent {
	raw, err := s.oracle.Complete(ctx, nlu.ExpandPrompt(subquery))
	if err != nil {
		s.logger.Warn("expand oracle call failed, using literal sub-query",
			zap.Error(err))
		return s.fallback(subquery)
	}

	var resp nlu.ExpansionResponse
	if err := nlu.Decode(raw, &resp); err != nil {
		s.logger.Warn("expand response unparsable, using literal sub-query",
			zap.Error(err))
		return s.fallback(subquery)
	}

	positive := trimNonEmpty(resp.Positive)
	if len(positive) == 0 {
		// Without positives there is nothing to retrieve by; same fallback.
		s.logger.Warn("expand produced no positive terms, using literal sub-query",
			zap.String("subquery", subquery))
		return s.fallback(subquery)
	}

	return domain.QueryIntent{
		Positive: positive,
		Negative: trimNonEmpty(resp.Negative),
	}
}

func (s *Service) fallback(subquery string) domain.QueryIntent {
	metrics.OracleFallbacksTotal.WithLabelValues("expand").Inc()
	return domain.QueryIntent{Positive: []string{subquery}, Negative: []string{}}
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
