// Command server starts the Freight Price Movement Agent HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/fairyhunter13/freight-price-movement-agent/internal/adapter/httpserver"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/adapter/cache/rediscache"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/adapter/rates"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/adapter/render"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/analysis"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/app"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/config"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/connector"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/ingest"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/observability"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/resilience"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, connector, and job instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Infra: DB pool
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Repositories
	recordRepo := postgres.NewRecordRepo(pool)
	sourceRepo := postgres.NewSourceRepo(pool)
	jobRepo := postgres.NewJobRepo(pool)
	resultRepo := postgres.NewResultRepo(pool)

	// Redis-backed analysis result cache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer func() { _ = rdb.Close() }()
	resultCache := rediscache.New(rdb, cfg.CacheTTL())

	// Queue client (Redpanda producer)
	producer, err := redpanda.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue producer", slog.Any("error", err))
		}
	}()

	// Connectors share one breaker registry between the test-connection path
	// and the ingestion pipeline.
	factory := connector.NewFactory(connector.Options{
		RequestTimeout: cfg.APIRequestTimeout,
		ConnectTimeout: cfg.APIConnectionTimeout,
	})
	breakers := resilience.NewRegistry(cfg.BreakerFailureThreshold, cfg.BreakerResetTimeout)
	retry := resilience.RetryPolicy{
		MaxAttempts:   cfg.APIRetryMaxAttempts,
		BackoffFactor: cfg.APIRetryBackoffFactor,
	}

	// Currency conversion with an in-process daily rate cache.
	rateProvider := rates.NewCached(
		rates.NewClient(cfg.RatesAPIURL, cfg.RatesAPIKey, cfg.APIRequestTimeout),
		cfg.ExchangeRateTTL(),
	)

	pipeline := ingest.NewPipeline(sourceRepo, jobRepo, recordRepo, resultCache, factory, breakers, retry, cfg.IngestBatchSize)

	// Usecases
	sourceSvc := usecase.NewDataSourceService(sourceRepo, jobRepo, factory, breakers)
	ingestSvc := usecase.NewIngestionService(sourceRepo, jobRepo, producer, pipeline)
	analysisSvc := usecase.NewAnalysisService(
		analysis.NewEngine(recordRepo, rateProvider, cfg.DefaultCurrency),
		resultCache, resultRepo, render.New(),
	)

	// Readiness checks
	dbCheck, redisCheck, kafkaCheck := app.BuildReadinessChecks(pool, rdb, producer)

	// HTTP server
	srv := httpserver.NewServer(cfg, sourceSvc, ingestSvc, analysisSvc, dbCheck, redisCheck, kafkaCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
