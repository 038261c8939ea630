package rerank

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/domain"
)

// Service re-ranks retrieval hits against the centroid of the positive
// intent terms. Hits at or below the acceptance threshold are dropped.
type Service struct {
	embed     Embedder
	threshold float64
	logger    *zap.Logger
}

// New creates a centroid re-ranker. threshold is the minimum (exclusive)
// centroid similarity a hit must reach to survive.
func New(embed Embedder, threshold float64, logger *zap.Logger) *Service {
	return &Service{embed: embed, threshold: threshold, logger: logger}
}

// Rerank embeds each positive term, builds their mean vector, scores every
// hit against it, drops hits at or below the threshold, and sorts survivors
// by centroid similarity descending. With zero positive terms the input is
// returned unchanged.
func (s *Service) Rerank(
	ctx context.Context, hits []domain.DishHit, positiveTerms []string,
) ([]domain.DishHit, error) {
	if len(positiveTerms) == 0 || len(hits) == 0 {
		return hits, nil
	}

	vecs := make([][]float32, 0, len(positiveTerms))
	for _, term := range positiveTerms {
		res, err := s.embed.Embed(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("embed positive term: %w", err)
		}
		vecs = append(vecs, res.Embedding)
	}

	centroid := domain.Centroid(vecs)
	if centroid == nil {
		return hits, nil
	}

	kept := make([]domain.DishHit, 0, len(hits))
	for _, h := range hits {
		sim := domain.Cosine(h.Embedding, centroid)
		if sim <= s.threshold {
			continue
		}
		h.CentroidSimilarity = sim
		kept = append(kept, h)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].CentroidSimilarity > kept[j].CentroidSimilarity
	})

	s.logger.Debug("centroid rerank",
		zap.Int("in", len(hits)),
		zap.Int("out", len(kept)),
		zap.Float64("threshold", s.threshold))

	return kept, nil
}
