// Package redpanda moves ingestion work between the API and worker processes
// over a Redpanda/Kafka topic. Producing is transactional so an enqueue is
// either fully visible to the worker or not at all.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/observability"
)

// TopicIngest is the Kafka topic carrying ingestion tasks.
const TopicIngest = "ingest-jobs"

// Producer wraps a transactional Kafka producer and implements
// domain.IngestQueue.
type Producer struct {
	client *kgo.Client
	// Serializes transactions; franz-go allows one open transaction per
	// client.
	transactionChan chan struct{}
}

// NewProducer constructs a Producer with exactly-once semantics.
func NewProducer(brokers []string) (*Producer, error) {
	return NewProducerWithTransactionalID(brokers, "freight-agent-producer")
}

// NewProducerWithTransactionalID constructs a Producer with a custom
// transactional ID so tests can run several producers side by side.
func NewProducerWithTransactionalID(brokers []string, transactionalID string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	slog.Info("creating redpanda producer",
		slog.Any("brokers", brokers),
		slog.String("transactional_id", transactionalID))

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}

	if err := createTopicIfNotExists(context.Background(), client, TopicIngest, 1, 1); err != nil {
		// The topic usually exists already; the consumer also ensures it.
		slog.Warn("failed to create topic",
			slog.String("topic", TopicIngest),
			slog.Any("error", err))
	}

	return &Producer{
		client:          client,
		transactionChan: make(chan struct{}, 1),
	}, nil
}

// EnqueueIngest enqueues an ingestion task and returns the job id as the
// task id.
func (p *Producer) EnqueueIngest(ctx domain.Context, payload domain.IngestTaskPayload) (string, error) {
	return p.enqueueToTopic(ctx, payload, TopicIngest)
}

func (p *Producer) enqueueToTopic(ctx domain.Context, payload domain.IngestTaskPayload, topic string) (string, error) {
	select {
	case p.transactionChan <- struct{}{}:
		defer func() { <-p.transactionChan }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if err := p.client.BeginTransaction(); err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		p.abort(ctx)
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	record := &kgo.Record{
		Topic: topic,
		// Job id as key keeps per-job ordering on replays.
		Key:   []byte(payload.JobID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "job_id", Value: []byte(payload.JobID)},
			{Key: "source_id", Value: []byte(payload.SourceID)},
			{Key: "request_id", Value: []byte(payload.RequestID)},
		},
	}

	e := kgo.AbortingFirstErrPromise(p.client)
	p.client.Produce(ctx, record, e.Promise())
	if err := e.Err(); err != nil {
		p.abort(ctx)
		return "", fmt.Errorf("produce: %w", err)
	}

	if err := p.client.EndTransaction(ctx, kgo.TryCommit); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	observability.EnqueueJob("ingest")
	slog.Info("ingestion task enqueued",
		slog.String("topic", topic),
		slog.String("job_id", payload.JobID),
		slog.String("source_id", payload.SourceID))
	return payload.JobID, nil
}

func (p *Producer) abort(ctx context.Context) {
	if err := p.client.EndTransaction(ctx, kgo.TryAbort); err != nil {
		slog.Error("failed to abort transaction", slog.Any("error", err))
	}
}

// Ping checks broker reachability; the readiness probe uses it.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close closes the producer.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
