// Package menuquery embeds the conversational menu-search pipeline as a
// library: same engine as the API server, no HTTP in between.
package menuquery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/db"
	dbRedis "github.com/safebites/menuquery/internal/db/redis"
	"github.com/safebites/menuquery/internal/domain"
	"github.com/safebites/menuquery/internal/index"
	"github.com/safebites/menuquery/internal/metrics"
	"github.com/safebites/menuquery/internal/obslog"
	catalogrepo "github.com/safebites/menuquery/internal/repository/catalog"
	"github.com/safebites/menuquery/internal/repository/embcache"
	historyrepo "github.com/safebites/menuquery/internal/repository/history"
	openaiProv "github.com/safebites/menuquery/internal/transport/openai"
	decomposeuc "github.com/safebites/menuquery/internal/usecase/decompose"
	dishfilteruc "github.com/safebites/menuquery/internal/usecase/dishfilter"
	dishinfouc "github.com/safebites/menuquery/internal/usecase/dishinfo"
	expanduc "github.com/safebites/menuquery/internal/usecase/expand"
	pipelineuc "github.com/safebites/menuquery/internal/usecase/pipeline"
	reranku "github.com/safebites/menuquery/internal/usecase/rerank"
	retrievaluc "github.com/safebites/menuquery/internal/usecase/retrieval"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the menuquery SDK entry point.
type Client struct {
	store     db.Store
	pipeline  *pipelineuc.Service
	history   *historyrepo.Repo
	catalog   *catalogrepo.Repo
	rebuilder *index.Rebuilder
	handle    *index.Handle
}

// ChatRequest is one conversational query against a restaurant menu.
type ChatRequest struct {
	UserID       string
	SessionID    string // empty = bootstrap a new session
	RestaurantID string
	Query        string
	Filter       *Filter
}

// New creates a menuquery Client and connects to the database.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		embeddingModel:    "text-embedding-3-small",
		chatModel:         "gpt-4o-mini",
		topK:              20,
		minScore:          0.35,
		centroidThreshold: 0.30,
		historyDepth:      5,
		logger:            zap.NewNop(),
	}
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("menuquery: database address required (use WithValkey or WithRedis)")
	}
	if cfg.openAIKey == "" {
		return nil, errors.New("menuquery: API key required (use WithOpenAI)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("menuquery: database not ready: %w", err)
	}

	return wireClient(store, cfg), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	// rueidis speaks both wire protocols
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("menuquery: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("menuquery: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig) *Client {
	logger := cfg.logger
	metrics.RegisterProviderMetrics()

	var embedder domain.Embedder = openaiProv.NewEmbedder(&openaiProv.EmbedderConfig{
		APIKey:     cfg.openAIKey,
		BaseURL:    cfg.openAIBaseURL,
		Model:      cfg.embeddingModel,
		Dimensions: cfg.dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	embedder = embcache.New(embedder, store, metrics.EmbeddingCacheTotal, logger)

	oracle := openaiProv.NewOracle(&openaiProv.OracleConfig{
		APIKey:      cfg.openAIKey,
		BaseURL:     cfg.openAIBaseURL,
		Model:       cfg.chatModel,
		Temperature: cfg.temperature,
		Provider:    "openai",
		Logger:      logger,
	})

	catalog := catalogrepo.New(store)
	history := historyrepo.New(store)

	handle := index.NewHandle()
	rebuilder := index.NewRebuilder(catalog, embedder, handle, logger)

	decomposeSvc := decomposeuc.New(oracle, logger)
	expandSvc := expanduc.New(oracle, logger)
	rerankSvc := reranku.New(embedder, cfg.centroidThreshold, logger)
	retrievalSvc := retrievaluc.New(
		embedder, handle, catalog, expandSvc, rerankSvc, obslog.Nop{},
		retrievaluc.Config{TopK: cfg.topK, MinScore: cfg.minScore},
		logger,
	)
	filterSvc := dishfilteruc.New(oracle, logger)
	infoSvc := dishinfouc.New(oracle, retrievalSvc, filterSvc, logger)
	pipelineSvc := pipelineuc.New(
		decomposeSvc, retrievalSvc, filterSvc, infoSvc, history,
		pipelineuc.Config{
			StageTimeout: cfg.stageTimeout,
			HistoryDepth: cfg.historyDepth,
		},
		logger,
	)

	return &Client{
		store:     store,
		pipeline:  pipelineSvc,
		history:   history,
		catalog:   catalog,
		rebuilder: rebuilder,
		handle:    handle,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Chat runs one conversational query end to end.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (Response, error) {
	resp, err := c.pipeline.Process(ctx, pipelineuc.Request{
		UserID:       req.UserID,
		SessionID:    req.SessionID,
		RestaurantID: req.RestaurantID,
		Query:        req.Query,
		Filter:       req.Filter.toDomain(),
	})
	if err != nil {
		return Response{}, fmt.Errorf("chat: %w", err)
	}
	return fromResponse(resp), nil
}

// History reconstructs the last n turns of a session.
func (c *Client) History(ctx context.Context, sessionID string, n int) ([]HistoryEntry, error) {
	entries, err := c.history.RebuildContext(ctx, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return fromContext(entries), nil
}

// AddDish stores a dish in the catalog. The index picks it up on the next
// RebuildIndex.
func (c *Client) AddDish(ctx context.Context, d Dish, restaurantID string) error {
	rec := domain.DishRecord{
		ID:             d.DishID,
		RestaurantID:   restaurantID,
		Name:           d.Name,
		Description:    d.Description,
		Price:          d.Price,
		Ingredients:    d.Ingredients,
		ServingSize:    d.ServingSize,
		Availability:   d.Availability,
		NutritionFacts: d.NutritionFacts,
	}
	for _, a := range d.Allergens {
		rec.Allergens = append(rec.Allergens, domain.Allergen{Allergen: a})
	}
	if err := c.catalog.Put(ctx, rec); err != nil {
		return fmt.Errorf("add dish: %w", err)
	}
	return nil
}

// RemoveDish deletes a dish from the catalog. The index drops it on the
// next RebuildIndex.
func (c *Client) RemoveDish(ctx context.Context, dishID string) error {
	if err := c.catalog.Delete(ctx, dishID); err != nil {
		return fmt.Errorf("remove dish: %w", err)
	}
	return nil
}

// RebuildIndex re-embeds the catalog and swaps the vector index in,
// synchronously.
func (c *Client) RebuildIndex(ctx context.Context) error {
	if err := c.rebuilder.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	return nil
}

// IndexReady reports whether the vector index has been built at least once.
func (c *Client) IndexReady() bool { return c.handle.Ready() }

// IndexSize returns the number of indexed dishes.
func (c *Client) IndexSize() int { return c.handle.Len() }
