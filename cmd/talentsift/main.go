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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/talentsift/talentsift/internal/chunker"
	"github.com/talentsift/talentsift/internal/config"
	dbRedis "github.com/talentsift/talentsift/internal/db/redis"
	"github.com/talentsift/talentsift/internal/domain"
	"github.com/talentsift/talentsift/internal/extract"
	logpkg "github.com/talentsift/talentsift/internal/logger"
	"github.com/talentsift/talentsift/internal/metrics"
	"github.com/talentsift/talentsift/internal/repository/chunkindex"
	chiTransport "github.com/talentsift/talentsift/internal/transport/chi"
	openaiTransport "github.com/talentsift/talentsift/internal/transport/openai"
	"github.com/talentsift/talentsift/internal/usecase/ask"
	"github.com/talentsift/talentsift/internal/usecase/ingest"
	"github.com/talentsift/talentsift/internal/version"
)

// chunkIndex is the full index surface the composition root wires up.
// The usecases depend on narrower slices of it.
type chunkIndex interface {
	EnsureReady(ctx context.Context) error
	Ping(ctx context.Context) error
	Upsert(ctx context.Context, entries []domain.Entry) error
	Query(ctx context.Context, vector []float32, k int) ([]domain.Retrieved, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

func main() {
	// Local development credentials come from .env; absence is fine.
	_ = godotenv.Load()

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

	logger.Info("Starting talentsift server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_driver", cfg.Index.Driver),
		zap.String("ingest_policy", string(cfg.Index.IngestPolicy)),
	)

	ctx := context.Background()

	// Select the vector index backend. The memory index is ephemeral:
	// every restart begins empty and résumés must be re-uploaded. The
	// redis index is durable across restarts.
	var index chunkIndex
	switch cfg.Index.Driver {
	case "memory":
		index = chunkindex.NewMemory()
	case "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Index.Addrs,
			Password: cfg.Index.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Index.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}

		index = chunkindex.NewRedis(store, cfg.Index.KeyPrefix, cfg.Index.Name, cfg.Embedding.Dimensions).
			WithHNSW(chunkindex.HNSWConfig{
				M:           cfg.Index.HNSWM,
				EFConstruct: cfg.Index.HNSWEFConstruct,
			})
	default:
		logger.Fatal("Unknown index driver", zap.String("driver", cfg.Index.Driver))
	}

	if err := index.EnsureReady(ctx); err != nil {
		logger.Fatal("Failed to prepare vector index", zap.Error(err))
	}
	logger.Info("Vector index ready", zap.String("driver", cfg.Index.Driver))

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.Chat.APIKey,
		BaseURL:     cfg.Chat.BaseURL,
		Model:       cfg.Chat.Model,
		Temperature: cfg.Chat.Temperature,
		MaxAttempts: cfg.Chat.MaxAttempts,
		Timeout:     time.Duration(cfg.Chat.TimeoutSec) * time.Second,
		Logger:      logger,
	})

	extractor := extract.New(logger)
	splitter := chunker.New(
		chunker.WithSize(cfg.Ingest.ChunkSize),
		chunker.WithOverlap(cfg.Ingest.ChunkOverlap),
	)

	ingestSvc := ingest.New(extractor, splitter, embedder, index, logger).
		WithPolicy(ingest.Policy(cfg.Index.IngestPolicy))
	askSvc := ask.New(embedder, index, generator, logger).
		WithTopK(cfg.Retrieval.TopK)

	server := chiTransport.NewServer(ingestSvc, askSvc, index, logger).
		WithMaxUploadBytes(int64(cfg.Ingest.MaxUploadMB) << 20).
		WithReadinessChecks(
			chiTransport.ReadinessCheck{Name: "index", Check: index.Ping},
			chiTransport.ReadinessCheck{Name: "embedding", Check: embedder.HealthCheck},
		)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
