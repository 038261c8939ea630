package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/config"
	"github.com/safebites/menuquery/internal/db"
	dbRedis "github.com/safebites/menuquery/internal/db/redis"
	"github.com/safebites/menuquery/internal/domain"
	"github.com/safebites/menuquery/internal/index"
	logpkg "github.com/safebites/menuquery/internal/logger"
	"github.com/safebites/menuquery/internal/metrics"
	"github.com/safebites/menuquery/internal/obslog"
	catalogrepo "github.com/safebites/menuquery/internal/repository/catalog"
	"github.com/safebites/menuquery/internal/repository/embcache"
	historyrepo "github.com/safebites/menuquery/internal/repository/history"
	chiTransport "github.com/safebites/menuquery/internal/transport/chi"
	openaiProv "github.com/safebites/menuquery/internal/transport/openai"
	decomposeuc "github.com/safebites/menuquery/internal/usecase/decompose"
	dishfilteruc "github.com/safebites/menuquery/internal/usecase/dishfilter"
	dishinfouc "github.com/safebites/menuquery/internal/usecase/dishinfo"
	embeddinguc "github.com/safebites/menuquery/internal/usecase/embedding"
	expanduc "github.com/safebites/menuquery/internal/usecase/expand"
	pipelineuc "github.com/safebites/menuquery/internal/usecase/pipeline"
	reranku "github.com/safebites/menuquery/internal/usecase/rerank"
	retrievaluc "github.com/safebites/menuquery/internal/usecase/retrieval"
	"github.com/safebites/menuquery/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting menuquery API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// rueidis speaks to both valkey and redis
	var store db.Store
	switch cfg.Database.Driver {
	case "valkey", "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register provider metrics explicitly (no init())
	metrics.RegisterProviderMetrics()

	// Embedder chain: OpenAI -> Budgeted -> Cached. Cache sits outermost so
	// hits consume no budget.
	var embedder domain.Embedder = openaiProv.NewEmbedder(&openaiProv.EmbedderConfig{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.EmbeddingModel,
		Dimensions: cfg.OpenAI.Dimensions,
		Provider:   cfg.OpenAI.Provider,
		Logger:     logger,
	})
	budget := embeddinguc.NewBudgetTracker(
		cfg.OpenAI.Provider,
		cfg.OpenAI.DailyTokenLimit,
		cfg.OpenAI.MonthlyTokenLimit,
		embeddinguc.BudgetAction(cfg.OpenAI.BudgetAction),
		logger,
	).WithStore(ctx, store)
	embedder = embeddinguc.NewBudgetedEmbedder(
		embedder, cfg.OpenAI.Provider, cfg.OpenAI.EmbeddingModel, budget, logger,
	)
	embedder = embcache.New(embedder, store, metrics.EmbeddingCacheTotal, logger)

	oracle := openaiProv.NewOracle(&openaiProv.OracleConfig{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.ChatModel,
		Temperature: cfg.OpenAI.ChatTemperature,
		Provider:    cfg.OpenAI.Provider,
		Logger:      logger,
	})
	logger.Info("Providers created",
		zap.String("provider", cfg.OpenAI.Provider),
		zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
		zap.String("chat_model", cfg.OpenAI.ChatModel),
	)

	// Repositories
	catalog := catalogrepo.New(store)
	history := historyrepo.New(store)

	// Vector index: empty handle now, first build in the background below.
	handle := index.NewHandle()
	rebuilder := index.NewRebuilder(catalog, embedder, handle, logger)

	// Observation log for retrieval cycles
	var recorder obslog.Recorder = obslog.Nop{}
	if cfg.Obslog.Enabled {
		fileRec, err := obslog.NewFileRecorder(cfg.Obslog.Path, logger)
		if err != nil {
			logger.Fatal("Failed to open observation log", zap.Error(err))
		}
		defer fileRec.Close()
		recorder = fileRec
	}

	// Use case services
	decomposeSvc := decomposeuc.New(oracle, logger)
	expandSvc := expanduc.New(oracle, logger)
	rerankSvc := reranku.New(embedder, cfg.Retrieval.CentroidThreshold, logger)
	retrievalSvc := retrievaluc.New(
		embedder, handle, catalog, expandSvc, rerankSvc, recorder,
		retrievaluc.Config{
			TopK:     cfg.Retrieval.TopK,
			MinScore: cfg.Retrieval.MinScore,
		},
		logger,
	)
	filterSvc := dishfilteruc.New(oracle, logger)
	infoSvc := dishinfouc.New(oracle, retrievalSvc, filterSvc, logger)
	pipelineSvc := pipelineuc.New(
		decomposeSvc, retrievalSvc, filterSvc, infoSvc, history,
		pipelineuc.Config{
			StageTimeout: time.Duration(cfg.Retrieval.StageTimeoutSec) * time.Second,
			HistoryDepth: cfg.Retrieval.HistoryDepth,
		},
		logger,
	)

	// First index build runs in the background; queries against an unbuilt
	// index fail soft per sub-query until the swap lands.
	if done, err := rebuilder.Trigger(ctx); err != nil {
		logger.Warn("Startup index build not started", zap.Error(err))
	} else {
		go func() {
			if err := <-done; err != nil {
				logger.Error("Startup index build failed", zap.Error(err))
				return
			}
			logger.Info("Startup index build complete", zap.Int("entries", handle.Len()))
		}()
	}

	server := chiTransport.NewServer(
		pipelineSvc, history, rebuilder, handle, store, cfg.Retrieval.HistoryDepth, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
