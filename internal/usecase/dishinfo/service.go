package dishinfo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/domain"
	"github.com/safebites/menuquery/internal/nlu"
	"github.com/safebites/menuquery/internal/usecase/dishfilter"
)

// Validator post-filters retrieved dishes before answer synthesis.
type Validator interface {
	Apply(filter domain.DishFilter, dishes []domain.DishRecord) ([]domain.DishValidationResult, error)
	ValidateRelevance(ctx context.Context, query string, dishes []domain.DishRecord) []domain.DishRecord
}

// Messages surfaced when an answer cannot be produced.
const (
	msgUnparsableAnswer = "The assistant could not produce a readable answer for this question."
	msgNoMatchingDishes = "No matching dishes were found to answer this question."
)

// Service answers dish_info sub-queries. Conceptual questions are answered
// from general knowledge; menu-dependent ones go through retrieval first and
// are answered strictly from the retrieved dish data.
type Service struct {
	oracle    Oracle
	retriever Retriever
	validator Validator
	logger    *zap.Logger
}

// New creates a dish-info service.
func New(oracle Oracle, retriever Retriever, validator Validator, logger *zap.Logger) *Service {
	return &Service{oracle: oracle, retriever: retriever, validator: validator, logger: logger}
}

// Answer resolves one dish_info sub-query, returning the answer and the
// names of the dishes it was grounded on (empty for general knowledge).
func (s *Service) Answer(
	ctx context.Context, query, restaurantID string, filter domain.DishFilter,
) (domain.InfoAnswer, []string, error) {
	if s.requiresMenuData(ctx, query) {
		return s.answerFromMenu(ctx, query, restaurantID, filter)
	}
	return s.answerGeneral(ctx, query), nil, nil
}

// requiresMenuData classifies the sub-query. A classification that cannot
// be parsed defaults to the menu path: answering from retrieved data is
// grounded, answering from general knowledge without grounds fabricates.
func (s *Service) requiresMenuData(ctx context.Context, query string) bool {
	raw, err := s.oracle.Complete(ctx, nlu.ClassifyInfoPrompt(query))
	if err != nil {
		s.logger.Warn("dish info classification failed, defaulting to menu data",
			zap.Error(err))
		return true
	}

	var resp nlu.InfoClassResponse
	if err := nlu.Decode(raw, &resp); err != nil {
		s.logger.Warn("dish info classification unparsable, defaulting to menu data",
			zap.Error(err))
		return true
	}

	return resp.Type != nlu.InfoGeneralKnowledge
}

func (s *Service) answerGeneral(ctx context.Context, query string) domain.InfoAnswer {
	raw, err := s.oracle.Complete(ctx, nlu.GeneralAnswerPrompt(query))
	if err != nil {
		s.logger.Warn("general knowledge answer failed", zap.Error(err))
		return domain.InfoAnswer{Message: msgUnparsableAnswer}
	}

	var resp nlu.GeneralAnswerResponse
	if err := nlu.Decode(raw, &resp); err != nil || resp.Answer == "" {
		s.logger.Warn("general knowledge answer unparsable", zap.Error(err))
		return domain.InfoAnswer{Message: msgUnparsableAnswer}
	}

	return domain.InfoAnswer{Answer: resp.Answer}
}

func (s *Service) answerFromMenu(
	ctx context.Context, query, restaurantID string, filter domain.DishFilter,
) (domain.InfoAnswer, []string, error) {
	hits, err := s.retriever.SearchWithNegation(ctx, query, restaurantID)
	if err != nil {
		return domain.InfoAnswer{}, nil, fmt.Errorf("retrieve dishes for info query: %w", err)
	}

	dishes := make([]domain.DishRecord, 0, len(hits))
	for _, h := range hits {
		dishes = append(dishes, h.Dish)
	}

	results, err := s.validator.Apply(filter, dishes)
	if err != nil {
		return domain.InfoAnswer{}, nil, err
	}
	dishes = dishfilter.Surviving(dishes, results)
	dishes = s.validator.ValidateRelevance(ctx, query, dishes)

	if len(dishes) == 0 {
		return domain.InfoAnswer{Message: msgNoMatchingDishes}, nil, nil
	}

	names := make([]string, 0, len(dishes))
	for _, d := range dishes {
		names = append(names, d.Name)
	}

	raw, err := s.oracle.Complete(ctx, nlu.DishAnswerPrompt(query, nlu.DishContext(dishes)))
	if err != nil {
		s.logger.Warn("dish answer synthesis failed", zap.Error(err))
		return domain.InfoAnswer{Message: msgUnparsableAnswer}, names, nil
	}

	var resp nlu.DishAnswerResponse
	if err := nlu.Decode(raw, &resp); err != nil {
		s.logger.Warn("dish answer unparsable", zap.Error(err))
		return domain.InfoAnswer{Message: msgUnparsableAnswer}, names, nil
	}

	return domain.InfoAnswer{
		DishName:      resp.DishName,
		RequestedInfo: resp.RequestedInfo,
		SourceData:    resp.SourceData,
	}, names, nil
}
