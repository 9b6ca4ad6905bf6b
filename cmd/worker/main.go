// Command worker runs ingestion jobs from the Redpanda queue, the schedule
// ticker, the stuck-job sweeper, and the retention cleanup loop.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/adapter/cache/rediscache"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/adapter/repo/postgres"
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
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Expose job-queue and ingestion metrics on a dedicated port so
	// Prometheus can scrape the worker separately from the API.
	observability.InitMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:              ":9090",
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Database connection
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Repositories
	recordRepo := postgres.NewRecordRepo(pool)
	sourceRepo := postgres.NewSourceRepo(pool)
	jobRepo := postgres.NewJobRepo(pool)

	// Ingestion invalidates cached analyses whose window overlaps the new
	// records, so the worker needs the same Redis cache as the API.
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer func() { _ = rdb.Close() }()
	resultCache := rediscache.New(rdb, cfg.CacheTTL())

	factory := connector.NewFactory(connector.Options{
		RequestTimeout: cfg.APIRequestTimeout,
		ConnectTimeout: cfg.APIConnectionTimeout,
	})
	breakers := resilience.NewRegistry(cfg.BreakerFailureThreshold, cfg.BreakerResetTimeout)
	retry := resilience.RetryPolicy{
		MaxAttempts:   cfg.APIRetryMaxAttempts,
		BackoffFactor: cfg.APIRetryBackoffFactor,
	}
	pipeline := ingest.NewPipeline(sourceRepo, jobRepo, recordRepo, resultCache, factory, breakers, retry, cfg.IngestBatchSize)

	// Queue producer used by the scheduler to enqueue due ingestions. Use a
	// transactional ID distinct from the HTTP server's producer to avoid
	// transactional conflicts across processes.
	producer, err := redpanda.NewProducerWithTransactionalID(cfg.KafkaBrokers, "freight-agent-worker-producer")
	if err != nil {
		slog.Error("queue producer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue producer", slog.Any("error", err))
		}
	}()

	ingestSvc := usecase.NewIngestionService(sourceRepo, jobRepo, producer, pipeline)

	// Worker (Redpanda consumer)
	consumer, err := redpanda.NewConsumer(cfg.KafkaBrokers, "freight-agent-workers", pipeline, cfg.ConsumerMaxConcurrency)
	if err != nil {
		slog.Error("redpanda consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			slog.Error("failed to close consumer", slog.Any("error", err))
		}
	}()

	// Retention cleanup
	if cfg.DataRetentionDays > 0 {
		cleanup := postgres.NewCleanupService(postgres.PoolBeginner(pool), cfg.DataRetentionDays)
		go cleanup.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started",
			slog.Int("retention_days", cfg.DataRetentionDays),
			slog.Duration("interval", cfg.CleanupInterval))
	}

	// Fail jobs whose worker died mid-run so pollers see a terminal state.
	if sweeper := app.NewStuckJobSweeper(jobRepo, cfg.StuckJobMaxAge, cfg.StuckJobSweepInterval); sweeper != nil {
		go sweeper.Run(ctx)
	}

	// Enqueue ingestions for sources with a due "@every" schedule.
	go app.NewScheduler(ingestSvc, cfg.SchedulerInterval).Run(ctx)

	slog.Info("starting redpanda consumer")
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("consumer error", slog.Any("error", err))
		}
	}()

	<-ctx.Done()
	slog.Info("signal received, shutting down")
}
