package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/domain"
	"github.com/safebites/menuquery/internal/logger"
	"github.com/safebites/menuquery/internal/usecase/dishfilter"
)

// Config holds the orchestration knobs.
type Config struct {
	// StageTimeout bounds the oracle/embedding/index work of one sub-query.
	StageTimeout time.Duration
	// HistoryDepth is how many prior turns RebuildContext returns.
	HistoryDepth int
}

// Request is one conversational query against a restaurant's menu.
type Request struct {
	UserID       string
	SessionID    string
	RestaurantID string
	Query        string
	Filter       domain.DishFilter
}

// Fixed per-part messages.
const (
	msgCouldNotUnderstand = "Sorry, I could not understand this part of your request."
	msgPartFailed         = "This part of your request could not be completed. Please try again."
	msgNoMenuMatches      = "No dishes matched this request."
)

// Service orchestrates the full pipeline for one chat query: decomposition,
// per-sub-query processing, and unified response assembly. Sub-queries run
// concurrently; a failure in one never aborts the others.
type Service struct {
	decomposer Decomposer
	retriever  Retriever
	validator  Validator
	info       InfoAnswerer
	history    History
	cfg        Config
	logger     *zap.Logger
}

// New creates the pipeline orchestrator.
func New(
	decomposer Decomposer, retriever Retriever, validator Validator,
	info InfoAnswerer, history History, cfg Config, logger *zap.Logger,
) *Service {
	return &Service{
		decomposer: decomposer,
		retriever:  retriever,
		validator:  validator,
		info:       info,
		history:    history,
		cfg:        cfg,
		logger:     logger,
	}
}

// outcome is one sub-query's slot in the response. Each goroutine writes
// exactly one slot; slots are disjoint, so no locking is needed.
type outcome struct {
	info    domain.InformativeInfo
	results []domain.DishResult
	answer  *domain.InfoAnswer
	ok      bool
}

// Process runs one chat query end to end and returns the unified response.
// Missing user id, restaurant id, or query is a hard boundary error
// (domain.ErrInvalidRequest), as is a structurally broken filter
// (domain.ErrInvalidFilter); everything past that boundary fails soft
// per sub-query.
func (s *Service) Process(ctx context.Context, req Request) (domain.UnifiedResponse, error) {
	if err := validate(req); err != nil {
		return domain.UnifiedResponse{}, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		var err error
		sessionID, err = s.history.GetOrCreateSession(ctx, req.UserID, req.RestaurantID)
		if err != nil {
			return domain.UnifiedResponse{}, fmt.Errorf("bootstrap session: %w", err)
		}
	}

	state := domain.ChatState{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		SessionID:    sessionID,
		RestaurantID: req.RestaurantID,
		Query:        req.Query,
		MenuResults:  make(map[string][]domain.DishResult),
		InfoResults:  make(map[string]domain.InfoAnswer),
		Status:       domain.StatusPending,
		Timestamp:    time.Now().UTC(),
	}

	dec := s.decomposer.Decompose(ctx, req.Query)
	state.QueryParts = dec.Parts()
	state.Intents = dec.Intents()

	outcomes := s.processIntents(ctx, state.Intents, req)

	resp := s.assemble(req, sessionID, state.Intents, outcomes, &state)

	if err := s.history.Append(ctx, state); err != nil {
		// The caller already has their answer; history is best effort here.
		logger.FromContext(ctx).Warn("append chat state failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	return resp, nil
}

// Context returns the reconstructed conversational context for a session.
func (s *Service) Context(ctx context.Context, sessionID string) ([]domain.SessionContext, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidRequest)
	}
	return s.history.RebuildContext(ctx, sessionID, s.cfg.HistoryDepth)
}

func validate(req Request) error {
	switch {
	case strings.TrimSpace(req.UserID) == "":
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	case strings.TrimSpace(req.RestaurantID) == "":
		return fmt.Errorf("%w: restaurant id is required", domain.ErrInvalidRequest)
	case strings.TrimSpace(req.Query) == "":
		return fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if err := req.Filter.Validate(); err != nil {
		return fmt.Errorf("validate request filter: %w", err)
	}
	return nil
}

// processIntents runs every sub-query concurrently, one goroutine per
// intent, each writing its own slot.
func (s *Service) processIntents(
	ctx context.Context, intents []domain.Intent, req Request,
) []outcome {
	outcomes := make([]outcome, len(intents))

	var wg sync.WaitGroup
	for i, intent := range intents {
		wg.Add(1)
		go func(slot int, intent domain.Intent) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("sub-query panicked",
						zap.String("query", intent.Query), zap.Any("panic", r))
					outcomes[slot] = failedOutcome(intent)
				}
			}()

			cctx := ctx
			if s.cfg.StageTimeout > 0 {
				var cancel context.CancelFunc
				cctx, cancel = context.WithTimeout(ctx, s.cfg.StageTimeout)
				defer cancel()
			}

			outcomes[slot] = s.processIntent(cctx, intent, req)
		}(i, intent)
	}
	wg.Wait()

	return outcomes
}

func (s *Service) processIntent(
	ctx context.Context, intent domain.Intent, req Request,
) outcome {
	switch intent.Type {
	case domain.IntentMenuSearch:
		return s.processMenuSearch(ctx, intent, req)
	case domain.IntentDishInfo:
		return s.processDishInfo(ctx, intent, req)
	default:
		return outcome{info: domain.InformativeInfo{
			Type:        domain.IntentIrrelevant,
			Query:       intent.Query,
			Description: msgCouldNotUnderstand,
		}}
	}
}

func (s *Service) processMenuSearch(
	ctx context.Context, intent domain.Intent, req Request,
) outcome {
	hits, err := s.retriever.SearchWithNegation(ctx, intent.Query, req.RestaurantID)
	if err != nil {
		s.logger.Warn("menu search sub-query failed",
			zap.String("query", intent.Query), zap.Error(err))
		return failedOutcome(intent)
	}

	dishes := make([]domain.DishRecord, 0, len(hits))
	for _, h := range hits {
		dishes = append(dishes, h.Dish)
	}

	valResults, err := s.validator.Apply(req.Filter, dishes)
	if err != nil {
		s.logger.Warn("dish filter failed",
			zap.String("query", intent.Query), zap.Error(err))
		return failedOutcome(intent)
	}
	dishes = dishfilter.Surviving(dishes, valResults)
	dishes = s.validator.ValidateRelevance(ctx, intent.Query, dishes)

	results := make([]domain.DishResult, 0, len(dishes))
	names := make([]string, 0, len(dishes))
	for _, d := range dishes {
		results = append(results, domain.NewDishResult(d))
		names = append(names, d.Name)
	}

	desc := msgNoMenuMatches
	if len(results) > 0 {
		desc = fmt.Sprintf("Found %d matching dishes.", len(results))
	}

	return outcome{
		results: results,
		ok:      len(results) > 0,
		info: domain.InformativeInfo{
			Type:           domain.IntentMenuSearch,
			Query:          intent.Query,
			Description:    desc,
			RelevantDishes: names,
		},
	}
}

func (s *Service) processDishInfo(
	ctx context.Context, intent domain.Intent, req Request,
) outcome {
	answer, names, err := s.info.Answer(ctx, intent.Query, req.RestaurantID, req.Filter)
	if err != nil {
		s.logger.Warn("dish info sub-query failed",
			zap.String("query", intent.Query), zap.Error(err))
		return failedOutcome(intent)
	}

	return outcome{
		answer: &answer,
		ok:     answer.Answer != "" || answer.DishName != "",
		info: domain.InformativeInfo{
			Type:           domain.IntentDishInfo,
			Query:          intent.Query,
			Description:    describeAnswer(answer),
			RelevantDishes: names,
		},
	}
}

func (s *Service) assemble(
	req Request, sessionID string, intents []domain.Intent,
	outcomes []outcome, state *domain.ChatState,
) domain.UnifiedResponse {
	resp := domain.UnifiedResponse{
		Intent:          primaryIntent(intents),
		Query:           req.Query,
		SessionID:       sessionID,
		Status:          domain.StatusFailed,
		Results:         []domain.DishResult{},
		InformativeInfo: make([]domain.InformativeInfo, 0, len(outcomes)),
	}

	for i, o := range outcomes {
		resp.InformativeInfo = append(resp.InformativeInfo, o.info)
		if len(o.results) > 0 {
			resp.Results = append(resp.Results, o.results...)
			state.MenuResults[intents[i].Query] = o.results
		}
		if o.answer != nil {
			state.InfoResults[intents[i].Query] = *o.answer
		}
		if o.ok {
			resp.Status = domain.StatusSuccess
		}
	}

	resp.UIHints = uiHints(resp)
	state.Status = resp.Status
	state.Response = summarize(resp)

	return resp
}

func failedOutcome(intent domain.Intent) outcome {
	return outcome{info: domain.InformativeInfo{
		Type:        intent.Type,
		Query:       intent.Query,
		Description: msgPartFailed,
	}}
}

func describeAnswer(a domain.InfoAnswer) string {
	switch {
	case a.Answer != "":
		return a.Answer
	case a.DishName != "":
		return fmt.Sprintf("%s (%s): %s", a.DishName, a.RequestedInfo, a.SourceData)
	default:
		return a.Message
	}
}

// primaryIntent labels the response with the dominant intent: menu_search
// wins over dish_info, which wins over irrelevant.
func primaryIntent(intents []domain.Intent) string {
	primary := domain.IntentIrrelevant
	for _, it := range intents {
		switch it.Type {
		case domain.IntentMenuSearch:
			return domain.IntentMenuSearch
		case domain.IntentDishInfo:
			primary = domain.IntentDishInfo
		}
	}
	return primary
}

func uiHints(resp domain.UnifiedResponse) domain.UIHints {
	if len(resp.Results) > 0 {
		return domain.UIHints{Component: "dish_list", HighlightField: "name"}
	}
	return domain.UIHints{Component: "text"}
}

func summarize(resp domain.UnifiedResponse) string {
	return fmt.Sprintf("%d dishes, %d parts, status %s",
		len(resp.Results), len(resp.InformativeInfo), resp.Status)
}
