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

	"github.com/casafind/casafind/internal/config"
	dbRedis "github.com/casafind/casafind/internal/db/redis"
	"github.com/casafind/casafind/internal/domain"
	logpkg "github.com/casafind/casafind/internal/logger"
	"github.com/casafind/casafind/internal/metrics"
	listingrepo "github.com/casafind/casafind/internal/repository/listing"
	vectorrepo "github.com/casafind/casafind/internal/repository/vector"
	chiTransport "github.com/casafind/casafind/internal/transport/chi"
	openaiTransport "github.com/casafind/casafind/internal/transport/openai"
	extractuc "github.com/casafind/casafind/internal/usecase/extract"
	healthuc "github.com/casafind/casafind/internal/usecase/health"
	searchuc "github.com/casafind/casafind/internal/usecase/search"
	"github.com/casafind/casafind/internal/version"
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

	logger.Info("Starting casafind API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
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

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	// Query embedder. The instruction prefix must match what the ingestion
	// side used, or similarity scores are garbage.
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	var queryEmbedder searchuc.Embedder = baseEmbedder
	if cfg.Embedding.QueryInstruction != "" {
		queryEmbedder = domain.NewInstructionEmbedder(baseEmbedder, cfg.Embedding.QueryInstruction)
	}
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Criteria extraction: LLM provider behind a deadline and a breaker.
	extractProvider := openaiTransport.NewExtractor(&openaiTransport.ExtractorConfig{
		APIKey:  cfg.Extraction.APIKey,
		BaseURL: cfg.Extraction.BaseURL,
		Model:   cfg.Extraction.Model,
		Logger:  logger,
	})
	extractSvc := extractuc.New(extractProvider, extractuc.Config{
		Timeout:             time.Duration(cfg.Extraction.TimeoutSec) * time.Second,
		BreakerFailureRatio: cfg.Extraction.BreakerFailureRatio,
		BreakerCooldown:     time.Duration(cfg.Extraction.BreakerCooldownSec) * time.Second,
	}, logger)

	// Repositories
	listingRepo := listingrepo.New(store, listingrepo.Config{
		KeyPrefix:   cfg.Storage.KeyPrefix,
		VectorDim:   cfg.Embedding.Dimensions,
		HNSWM:       cfg.Search.HNSWM,
		HNSWEFConst: cfg.Search.HNSWEFConstruct,
	})
	if err := listingRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure listing index", zap.Error(err))
	}

	vectorRepo, err := vectorrepo.New(store, vectorrepo.Config{
		KeyPrefix: cfg.Storage.KeyPrefix,
		Workers:   cfg.Search.ScoringWorkers,
	})
	if err != nil {
		logger.Fatal("Failed to create vector repository", zap.Error(err))
	}
	defer vectorRepo.Release()

	// Use case services
	searchSvc := searchuc.New(listingRepo, vectorRepo, queryEmbedder, extractSvc, searchuc.Config{
		MaxCandidates:    cfg.Search.MaxCandidates,
		DefaultLimit:     cfg.Search.DefaultLimit,
		MaxLimit:         cfg.Search.MaxLimit,
		RelaxationBudget: cfg.Search.RelaxationBudget,
		SemanticWeight:   cfg.Search.SemanticWeight,
		FilterTimeout:    time.Duration(cfg.Search.FilterTimeoutSec) * time.Second,
		RankTimeout:      time.Duration(cfg.Search.RankTimeoutSec) * time.Second,
	}, logger)

	healthSvc := healthuc.New(store, baseEmbedder)

	// Create chi server
	server := chiTransport.NewServer(searchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Use(chiMiddleware.Throttle(cfg.HTTP.MaxInFlight))
	server.Register(r)

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

			// Canonical log line — one line per request
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
