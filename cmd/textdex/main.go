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

	"github.com/textdex-cloud/textdex/internal/analysis"
	"github.com/textdex-cloud/textdex/internal/config"
	dbRedis "github.com/textdex-cloud/textdex/internal/db/redis"
	"github.com/textdex-cloud/textdex/internal/index"
	logpkg "github.com/textdex-cloud/textdex/internal/logger"
	"github.com/textdex-cloud/textdex/internal/metrics"
	"github.com/textdex-cloud/textdex/internal/repository/reqcache"
	chiTransport "github.com/textdex-cloud/textdex/internal/transport/chi"
	documentuc "github.com/textdex-cloud/textdex/internal/usecase/document"
	healthuc "github.com/textdex-cloud/textdex/internal/usecase/health"
	indicesuc "github.com/textdex-cloud/textdex/internal/usecase/indices"
	searchuc "github.com/textdex-cloud/textdex/internal/usecase/search"
	statsuc "github.com/textdex-cloud/textdex/internal/usecase/stats"
	"github.com/textdex-cloud/textdex/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting textdex node",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Int("default_shards", cfg.Index.DefaultShards),
		zap.Bool("request_cache", cfg.Search.RequestCacheEnabled),
	)

	metrics.RegisterSearchMetrics()
	metrics.RegisterIndexMetrics()

	registry := index.NewRegistry()
	analyzers := analysis.NewRegistry()
	tracker := statsuc.NewTracker()

	// Request cache is optional. Without Redis the node just recomputes
	// every count.
	var requestCache searchuc.RequestCache
	var cachePinger healthuc.CachePinger
	if cfg.Search.RequestCacheEnabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		ctx := context.Background()
		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to request cache", zap.Strings("addrs", cfg.Cache.Addrs))

		requestCache = reqcache.New(
			store,
			cfg.Cache.KeyPrefix,
			time.Duration(cfg.Search.RequestCacheTTLSec)*time.Second,
			metrics.RequestCacheTotal,
			logger,
		)
		cachePinger = store
	}

	pits := searchuc.NewPITStore(time.Duration(cfg.Search.PITKeepAliveMaxSec) * time.Second)

	indexSvc := indicesuc.New(registry, analyzers, cfg.Index.DefaultShards, cfg.Index.MaxShards).
		WithTracker(tracker)
	docSvc := documentuc.New(registry, cfg.Index.MaxBulkSize).
		WithTracker(tracker)
	searchSvc := searchuc.New(registry, analyzers, pits, cfg.Search.MaxConcurrent, cfg.Search.TrackTotalHitsUpTo).
		WithTracker(tracker).
		WithMaxClauses(cfg.Search.MaxClauses).
		WithDefaultTimeout(time.Duration(cfg.Search.DefaultTimeoutMs) * time.Millisecond)
	if requestCache != nil {
		searchSvc = searchSvc.WithRequestCache(requestCache)
	}
	statsSvc := statsuc.New(registry, tracker)
	healthSvc := healthuc.New(cachePinger)

	stop := make(chan struct{})
	defer close(stop)
	go pits.Sweep(30*time.Second, stop)

	if cfg.Index.RefreshIntervalSec > 0 {
		go refreshLoop(indexSvc, registry, time.Duration(cfg.Index.RefreshIntervalSec)*time.Second, stop, logger)
	}

	server := chiTransport.NewServer(indexSvc, docSvc, searchSvc, statsSvc, healthSvc, logger)

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

// refreshLoop makes buffered writes searchable on a fixed interval, the way
// an index refresh_interval setting does.
func refreshLoop(svc *indicesuc.Service, registry *index.Registry, interval time.Duration, stop <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, name := range registry.List() {
				if _, err := svc.Refresh(context.Background(), name); err != nil {
					logger.Warn("Periodic refresh failed", zap.String("index", name), zap.Error(err))
				}
			}
		case <-stop:
			return
		}
	}
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
			ctx := logpkg.ContextWith(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

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
