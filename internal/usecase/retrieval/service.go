package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/domain"
	"github.com/safebites/menuquery/internal/obslog"
)

// Config holds the retrieval knobs.
type Config struct {
	TopK     int
	MinScore float64
}

// Service is the retrieval engine: embed a term, query the vector index,
// resolve hits against the catalog, and run the negation/dedup/rerank
// sequence for full sub-query searches.
type Service struct {
	embed    Embedder
	searcher Searcher
	catalog  Catalog
	expander Expander
	reranker Reranker
	recorder obslog.Recorder
	cfg      Config
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(
	embed Embedder, searcher Searcher, catalog Catalog,
	expander Expander, reranker Reranker, recorder obslog.Recorder,
	cfg Config, logger *zap.Logger,
) *Service {
	return &Service{
		embed:    embed,
		searcher: searcher,
		catalog:  catalog,
		expander: expander,
		reranker: reranker,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Retrieve embeds one term and returns the catalog-resolved hits within the
// restaurant partition. A hit whose dish id no longer resolves in the
// catalog is dropped silently; the catalog is the source of truth, not the
// index.
func (s *Service) Retrieve(
	ctx context.Context, term, restaurantID string,
) ([]domain.DishHit, error) {
	embRes, err := s.embed.Embed(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("embed term %q: %w", term, err)
	}

	idxHits, err := s.searcher.Search(
		ctx, embRes.Embedding, restaurantID, s.cfg.TopK, s.cfg.MinScore,
	)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	hits := make([]domain.DishHit, 0, len(idxHits))
	for _, ih := range idxHits {
		rec, err := s.catalog.Get(ctx, ih.DishID)
		if err != nil {
			if errors.Is(err, domain.ErrDishNotFound) {
				s.logger.Debug("index hit missing from catalog, dropped",
					zap.String("dish_id", ih.DishID))
				continue
			}
			return nil, fmt.Errorf("resolve dish %s: %w", ih.DishID, err)
		}
		hits = append(hits, domain.DishHit{
			Dish:      rec,
			Score:     ih.Score,
			Embedding: ih.Vector,
		})
	}

	return hits, nil
}

// SearchWithNegation runs the full retrieval cycle for one sub-query:
// expansion, a retrieval pass per positive and per negative term, negation
// filtering, order-preserving dedup, and centroid re-rank. One cycle record
// is appended to the observation log.
func (s *Service) SearchWithNegation(
	ctx context.Context, query, restaurantID string,
) ([]domain.DishHit, error) {
	qi := s.expander.Expand(ctx, query)

	positiveHits, err := s.retrieveAll(ctx, qi.Positive, restaurantID)
	if err != nil {
		return nil, err
	}
	negativeHits, err := s.retrieveAll(ctx, qi.Negative, restaurantID)
	if err != nil {
		return nil, err
	}

	filtered := FilterNegation(positiveHits, negativeHits)
	unique := Dedup(filtered)

	reranked, err := s.reranker.Rerank(ctx, unique, qi.Positive)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	s.recorder.Record(obslog.CycleRecord{
		Timestamp:      time.Now().UTC(),
		Query:          query,
		RestaurantID:   restaurantID,
		Intents:        append(append([]string{}, qi.Positive...), qi.Negative...),
		PositiveTerms:  qi.Positive,
		NegativeTerms:  qi.Negative,
		PositiveDishes: dishNames(positiveHits),
		NegativeDishes: dishNames(negativeHits),
		UniqueDishes:   dishNames(unique),
		RerankedDishes: dishNames(reranked),
		FilteredCount:  len(filtered),
	})

	s.logger.Info("retrieval cycle",
		zap.String("query", query),
		zap.String("restaurant_id", restaurantID),
		zap.Int("positive_hits", len(positiveHits)),
		zap.Int("negative_hits", len(negativeHits)),
		zap.Int("unique", len(unique)),
		zap.Int("reranked", len(reranked)))

	return reranked, nil
}

// retrieveAll runs one retrieval pass per term and concatenates the results
// in term order. A failed pass aborts the whole side.
func (s *Service) retrieveAll(
	ctx context.Context, terms []string, restaurantID string,
) ([]domain.DishHit, error) {
	var all []domain.DishHit
	for _, term := range terms {
		hits, err := s.Retrieve(ctx, term, restaurantID)
		if err != nil {
			return nil, err
		}
		all = append(all, hits...)
	}
	return all, nil
}

// FilterNegation drops every positive hit whose dish id also appears in the
// negative hits. Order is preserved.
func FilterNegation(positive, negative []domain.DishHit) []domain.DishHit {
	if len(negative) == 0 {
		return positive
	}
	excluded := make(map[string]struct{}, len(negative))
	for _, h := range negative {
		excluded[h.Dish.ID] = struct{}{}
	}
	out := make([]domain.DishHit, 0, len(positive))
	for _, h := range positive {
		if _, ok := excluded[h.Dish.ID]; ok {
			continue
		}
		out = append(out, h)
	}
	return out
}

// Dedup removes duplicate dish ids, keeping the first occurrence so the
// concatenation order of positive terms stays stable.
func Dedup(hits []domain.DishHit) []domain.DishHit {
	seen := make(map[string]struct{}, len(hits))
	out := make([]domain.DishHit, 0, len(hits))
	for _, h := range hits {
		if _, ok := seen[h.Dish.ID]; ok {
			continue
		}
		seen[h.Dish.ID] = struct{}{}
		out = append(out, h)
	}
	return out
}

func dishNames(hits []domain.DishHit) []string {
	names := make([]string, 0, len(hits))
	for _, h := range hits {
		names = append(names, h.Dish.Name)
	}
	return names
}
