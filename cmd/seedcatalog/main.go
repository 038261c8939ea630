// Command seedcatalog loads a JSON dish file into the catalog and builds
// the vector index once, synchronously. Meant for local setup and demo data.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/config"
	dbRedis "github.com/safebites/menuquery/internal/db/redis"
	"github.com/safebites/menuquery/internal/domain"
	"github.com/safebites/menuquery/internal/index"
	logpkg "github.com/safebites/menuquery/internal/logger"
	"github.com/safebites/menuquery/internal/metrics"
	catalogrepo "github.com/safebites/menuquery/internal/repository/catalog"
	"github.com/safebites/menuquery/internal/repository/embcache"
	openaiProv "github.com/safebites/menuquery/internal/transport/openai"
)

type seedAllergen struct {
	Allergen   string  `json:"allergen"`
	Confidence float64 `json:"confidence"`
	Why        string  `json:"why"`
}

type seedDish struct {
	ID             string             `json:"id"`
	RestaurantID   string             `json:"restaurant_id"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	Price          float64            `json:"price"`
	Ingredients    []string           `json:"ingredients"`
	ServingSize    string             `json:"serving_size"`
	Availability   bool               `json:"availability"`
	Allergens      []seedAllergen     `json:"allergens"`
	NutritionFacts map[string]float64 `json:"nutrition_facts"`
}

func main() {
	var (
		file      = flag.String("file", "dishes.json", "path to the JSON dish file")
		skipIndex = flag.Bool("skip-index", false, "load the catalog without building the index")
	)
	flag.Parse()

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, *file, *skipIndex, logger); err != nil {
		logger.Fatal("Seed failed", zap.Error(err))
	}
}

func run(cfg config.Config, file string, skipIndex bool, logger *zap.Logger) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read dish file: %w", err)
	}

	var dishes []seedDish
	if err := json.Unmarshal(data, &dishes); err != nil {
		return fmt.Errorf("parse dish file: %w", err)
	}
	if len(dishes) == 0 {
		return fmt.Errorf("dish file %s contains no dishes", file)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	catalog := catalogrepo.New(store)
	for _, d := range dishes {
		if err := catalog.Put(ctx, toRecord(d)); err != nil {
			return fmt.Errorf("store dish %s: %w", d.ID, err)
		}
	}
	logger.Info("Catalog loaded", zap.Int("dishes", len(dishes)), zap.String("file", file))

	if skipIndex {
		return nil
	}

	// The index itself dies with this process; the point of building it here
	// is warming the embedding cache so the server's startup build is free.
	metrics.RegisterProviderMetrics()
	var embedder domain.Embedder = openaiProv.NewEmbedder(&openaiProv.EmbedderConfig{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.EmbeddingModel,
		Dimensions: cfg.OpenAI.Dimensions,
		Provider:   cfg.OpenAI.Provider,
		Logger:     logger,
	})
	embedder = embcache.New(embedder, store, metrics.EmbeddingCacheTotal, logger)

	handle := index.NewHandle()
	rebuilder := index.NewRebuilder(catalog, embedder, handle, logger)
	if err := rebuilder.Rebuild(ctx); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	logger.Info("Index built", zap.Int("entries", handle.Len()))
	return nil
}

func toRecord(d seedDish) domain.DishRecord {
	allergens := make([]domain.Allergen, 0, len(d.Allergens))
	for _, a := range d.Allergens {
		allergens = append(allergens, domain.Allergen{
			Allergen:   a.Allergen,
			Confidence: a.Confidence,
			Why:        a.Why,
		})
	}
	return domain.DishRecord{
		ID:             d.ID,
		RestaurantID:   d.RestaurantID,
		Name:           d.Name,
		Description:    d.Description,
		Price:          d.Price,
		Ingredients:    d.Ingredients,
		ServingSize:    d.ServingSize,
		Availability:   d.Availability,
		Allergens:      allergens,
		NutritionFacts: d.NutritionFacts,
	}
}
