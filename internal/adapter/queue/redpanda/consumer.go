package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/observability"
)

// IngestRunner executes one queued ingestion job. ingest.Pipeline satisfies
// it.
type IngestRunner interface {
	Run(ctx context.Context, jobID, sourceID string, params map[string]any) (domain.IngestionJob, error)
}

// Consumer pulls ingestion tasks from the topic and runs them on a bounded
// worker pool. Offsets are marked per record after the job finishes, so a
// crashed worker replays unfinished tasks; the record store's idempotent
// append keeps replays harmless.
type Consumer struct {
	client      *kgo.Client
	runner      IngestRunner
	groupID     string
	topic       string
	concurrency int
}

// NewConsumer constructs a Consumer joining the given group.
func NewConsumer(brokers []string, groupID string, runner IngestRunner, concurrency int) (*Consumer, error) {
	return newConsumerWithTopic(brokers, groupID, runner, concurrency, TopicIngest)
}

func newConsumerWithTopic(brokers []string, groupID string, runner IngestRunner, concurrency int, topic string) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if groupID == "" {
		return nil, fmt.Errorf("missing required group ID")
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	tempClient, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("temp client: %w", err)
	}
	if err := createTopicIfNotExists(context.Background(), tempClient, topic, 1, 1); err != nil {
		slog.Warn("failed to create topic",
			slog.String("topic", topic),
			slog.Any("error", err))
	}
	tempClient.Close()

	kotelService := kotel.NewKotel(kotel.WithTracer(
		kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider())),
	))

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.WithHooks(kotelService.Hooks()...),
		kgo.DialTimeout(10*time.Second),
		kgo.SessionTimeout(30*time.Second),
		kgo.HeartbeatInterval(3*time.Second),
		kgo.AutoCommitMarks(),
		kgo.AutoCommitInterval(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda consumer client: %w", err)
	}

	slog.Info("redpanda consumer created",
		slog.String("group_id", groupID),
		slog.String("topic", topic),
		slog.Int("concurrency", concurrency))
	return &Consumer{
		client:      client,
		runner:      runner,
		groupID:     groupID,
		topic:       topic,
		concurrency: concurrency,
	}, nil
}

// Start consumes until the context is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	slog.Info("starting redpanda consumer",
		slog.String("group_id", c.groupID),
		slog.String("topic", c.topic))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			break
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			slog.Error("fetch error",
				slog.String("topic", topic),
				slog.Int("partition", int(partition)),
				slog.Any("error", err))
		})
		fetches.EachRecord(func(rec *kgo.Record) {
			g.Go(func() error {
				c.handleRecord(gctx, rec)
				c.client.MarkCommitRecords(rec)
				return nil
			})
		})
	}

	err := g.Wait()
	slog.Info("redpanda consumer stopped", slog.String("group_id", c.groupID))
	if err != nil {
		return err
	}
	return ctx.Err()
}

// handleRecord decodes and runs one task. Failures are not re-queued here:
// the pipeline already persists the job as FAILED, and poison messages must
// not wedge the partition.
func (c *Consumer) handleRecord(ctx context.Context, rec *kgo.Record) {
	var payload domain.IngestTaskPayload
	if err := json.Unmarshal(rec.Value, &payload); err != nil {
		slog.Error("dropping malformed ingest task",
			slog.String("topic", rec.Topic),
			slog.Int64("offset", rec.Offset),
			slog.Any("error", err))
		return
	}
	if payload.RequestID != "" {
		ctx = observability.ContextWithRequestID(ctx, payload.RequestID)
	}

	lg := slog.With(
		slog.String("job_id", payload.JobID),
		slog.String("source_id", payload.SourceID))
	lg.Info("ingestion task dequeued")

	observability.StartProcessingJob("ingest")
	job, err := c.runner.Run(ctx, payload.JobID, payload.SourceID, payload.Params)
	if err != nil {
		observability.FailJob("ingest")
		lg.Error("ingestion task failed", slog.Any("error", err))
		return
	}
	observability.CompleteJob("ingest")
	lg.Info("ingestion task finished",
		slog.String("status", string(job.Status)),
		slog.Int("records_stored", job.RecordsStored))
}

// Close closes the consumer client.
func (c *Consumer) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}
