package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinedex/internal/config"
	"github.com/kailas-cloud/cinedex/internal/db"
	dbElastic "github.com/kailas-cloud/cinedex/internal/db/elastic"
	dbRedis "github.com/kailas-cloud/cinedex/internal/db/redis"
	"github.com/kailas-cloud/cinedex/internal/domain/entity"
	logpkg "github.com/kailas-cloud/cinedex/internal/logger"
	"github.com/kailas-cloud/cinedex/internal/metrics"
	"github.com/kailas-cloud/cinedex/internal/repository/pagecache"
	searchrepo "github.com/kailas-cloud/cinedex/internal/repository/search"
	chiTransport "github.com/kailas-cloud/cinedex/internal/transport/chi"
	healthuc "github.com/kailas-cloud/cinedex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/cinedex/internal/usecase/search"
	"github.com/kailas-cloud/cinedex/internal/version"
)

// indexBackend is what main needs from an index driver beyond the search adapter.
type indexBackend interface {
	db.Pinger
	db.IndexInspector
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

func main() {
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

	logger.Info("Starting cinedex API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
		zap.String("index_driver", cfg.Index.Driver),
		zap.Strings("index_addrs", cfg.Index.Addrs),
	)

	metrics.RegisterSearchMetrics(prometheus.DefaultRegisterer)
	metrics.RegisterHTTPMetrics(prometheus.DefaultRegisterer)

	ctx := context.Background()

	// Cache store. Valkey speaks the same protocol, so both drivers share the rueidis store.
	cacheStore, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Cache.Addrs,
		Username:   cfg.Cache.Username,
		Password:   cfg.Cache.Password,
		DB:         cfg.Cache.DB,
		Standalone: cfg.Cache.Standalone,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer cacheStore.Close()

	// A cold cache only costs latency, so the API starts without it.
	if err := cacheStore.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Warn("Cache not ready, serving from index only", zap.Error(err))
	} else {
		logger.Info("Connected to cache")
	}

	indexes := indexNames(cfg.Index.Names)

	var (
		index   searchuc.Searcher
		backend indexBackend
	)
	switch cfg.Index.Driver {
	case config.IndexDriverElasticsearch:
		client, err := dbElastic.NewClient(dbElastic.Config{
			Addrs:    cfg.Index.Addrs,
			Username: cfg.Index.Username,
			Password: cfg.Index.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create elasticsearch client", zap.Error(err))
		}
		index, backend = searchrepo.NewElastic(client, indexes), client
	case config.IndexDriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Index.Addrs,
			Username: cfg.Index.Username,
			Password: cfg.Index.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create redisearch store", zap.Error(err))
		}
		defer store.Close()
		index, backend = searchrepo.NewRediSearch(store, indexes), store
	default:
		logger.Fatal("Unknown index driver", zap.String("driver", cfg.Index.Driver))
	}

	if err := backend.WaitForReady(ctx, time.Duration(cfg.Index.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Index not ready", zap.Error(err))
	}
	checkIndexes(ctx, backend, indexes, logger)
	logger.Info("Connected to index")

	cache := pagecache.New(cacheStore, cfg.Cache.Timeout(), metrics.CacheOperationsTotal, logger)

	searchSvc := searchuc.New(index, cache, searchuc.Config{
		KeyPrefix:       cfg.Cache.KeyPrefix,
		TTL:             cfg.Cache.TTL(),
		NegativeTTL:     cfg.Cache.NegativeTTL(),
		IndexTimeout:    cfg.Index.Timeout(),
		MaxPageSize:     cfg.Pagination.MaxPageSize,
		MaxResultWindow: cfg.Pagination.MaxResultWindow,
	}, searchuc.Metrics{
		CacheTotal:    metrics.SearchCacheTotal,
		FlightTotal:   metrics.SearchFlightTotal,
		IndexDuration: metrics.IndexRequestDuration,
	}, logger)

	healthSvc := healthuc.New(cacheStore, backend)

	server := chiTransport.NewServer(searchSvc, healthSvc, chiTransport.Options{
		DefaultPageSize: cfg.Pagination.DefaultPageSize,
		AdminKeys:       cfg.Access.AdminKeys,
		Authorizer:      chiTransport.AllowAll{},
	})

	r := chi.NewRouter()
	r.Use(chiTransport.Recoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.RequestLogger(logger))
	r.Use(metrics.Middleware())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"not_found","message":"route not found"}` + "\n"))
	})
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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

func indexNames(n config.IndexNames) map[entity.Type]string {
	return map[entity.Type]string{
		entity.Film:   n.Film,
		entity.Person: n.Person,
		entity.Genre:  n.Genre,
	}
}

// checkIndexes logs missing indexes. Queries against them fail with IndexQueryError
// until the indexer creates them, which must not block startup.
func checkIndexes(ctx context.Context, b indexBackend, indexes map[entity.Type]string, logger *zap.Logger) {
	for _, t := range entity.Types() {
		name := indexes[t]
		ok, err := b.IndexExists(ctx, name)
		switch {
		case err != nil:
			logger.Warn("Index check failed", zap.String("entity", string(t)), zap.String("index", name), zap.Error(err))
		case !ok:
			logger.Warn("Index does not exist", zap.String("entity", string(t)), zap.String("index", name))
		}
	}
}
