package ingest

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain/mocks"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/resilience"
)

// fakeStream yields canned raw records and can inject a failure at an index
// or fire a hook after one, which lets tests kill the caller's context
// mid-stream.
type fakeStream struct {
	raws    []map[string]any
	idx     int
	failAt  int
	err     error
	afterAt int
	after   func()
	closed  bool
}

func newFakeStream(raws ...map[string]any) *fakeStream {
	return &fakeStream{raws: raws, failAt: -1, afterAt: -1}
}

func (s *fakeStream) Next(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.failAt >= 0 && s.idx == s.failAt {
		return nil, s.err
	}
	if s.idx >= len(s.raws) {
		return nil, io.EOF
	}
	r := s.raws[s.idx]
	if s.idx == s.afterAt && s.after != nil {
		s.after()
	}
	s.idx++
	return r, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

func activeSource() domain.DataSourceConfig {
	return domain.DataSourceConfig{
		ID:         "src-1",
		Name:       "ocean quotes",
		SourceType: domain.SourceCSV,
		Status:     domain.SourceActive,
		ConnectionParams: map[string]any{
			"file_path": "/data/quotes.csv",
		},
		FieldMapping: map[string]string{
			"orig":  FieldOrigin,
			"dest":  FieldDestination,
			"price": FieldFreightCharge,
			"ccy":   FieldCurrencyCode,
			"date":  FieldRecordDate,
			"mode":  FieldTransportMode,
			"ref":   FieldRecordID,
		},
	}
}

func rawQuote(ref, date, price string) map[string]any {
	return map[string]any{
		"orig":  "Shanghai",
		"dest":  "Rotterdam",
		"price": price,
		"ccy":   "USD",
		"date":  date,
		"mode":  "OCEAN",
		"ref":   ref,
	}
}

type pipelineMocks struct {
	sources *mocks.SourceConfigRepository
	jobs    *mocks.IngestionJobRepository
	store   *mocks.RecordStore
	cache   *mocks.ResultCache
	factory *mocks.DataSourceFactory
	ds      *mocks.DataSource
}

func newPipelineMocks() pipelineMocks {
	return pipelineMocks{
		sources: &mocks.SourceConfigRepository{},
		jobs:    &mocks.IngestionJobRepository{},
		store:   &mocks.RecordStore{},
		cache:   &mocks.ResultCache{},
		factory: &mocks.DataSourceFactory{},
		ds:      &mocks.DataSource{},
	}
}

func (m pipelineMocks) pipeline(batchSize int, retry resilience.RetryPolicy) Pipeline {
	return NewPipeline(m.sources, m.jobs, m.store, m.cache, m.factory, resilience.NewRegistry(5, time.Minute), retry, batchSize)
}

func fastRetry(attempts int) resilience.RetryPolicy {
	return resilience.RetryPolicy{MaxAttempts: attempts, BackoffFactor: 0.001}
}

func TestPipelineRunSuccess(t *testing.T) {
	t.Parallel()
	m := newPipelineMocks()

	stream := newFakeStream(
		rawQuote("Q-1", "2024-03-01", "1500"),
		rawQuote("Q-2", "2024-03-02", "1600"),
	)
	minD := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	maxD := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	m.jobs.On("Create", mock.Anything, mock.MatchedBy(func(j domain.IngestionJob) bool {
		return j.Status == domain.JobRunning && j.SourceID == "src-1"
	})).Return("job-1", nil)
	m.sources.On("Get", mock.Anything, "src-1").Return(activeSource(), nil)
	m.factory.On("New", mock.Anything).Return(m.ds, nil)
	m.ds.On("Connect", mock.Anything).Return(nil)
	m.ds.On("Fetch", mock.Anything, mock.Anything).Return(stream, nil)
	m.ds.On("Disconnect", mock.Anything).Return(nil)
	m.store.On("Append", mock.Anything, mock.MatchedBy(func(b []domain.FreightRecord) bool {
		return len(b) == 2 && b[0].SourceSystem == "src-1"
	})).Return(domain.AppendResult{Stored: 2, MinDate: minD, MaxDate: maxD}, nil)
	m.cache.On("EvictOverlapping", mock.Anything, minD, maxD).Return(1, nil)
	m.sources.On("SetStatus", mock.Anything, "src-1", domain.SourceActive).Return(nil)
	m.sources.On("MarkIngested", mock.Anything, "src-1", mock.Anything).Return(nil)
	m.jobs.On("Update", mock.Anything, mock.MatchedBy(func(j domain.IngestionJob) bool {
		return j.Status == domain.JobSuccess
	})).Return(nil)

	p := m.pipeline(0, fastRetry(1))
	job, err := p.Run(context.Background(), "", "src-1", nil)
	require.NoError(t, err)

	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, domain.JobSuccess, job.Status)
	assert.Equal(t, 2, job.RecordsTotal)
	assert.Equal(t, 2, job.RecordsValid)
	assert.Equal(t, 2, job.RecordsStored)
	assert.Empty(t, job.Errors)
	assert.NotNil(t, job.FinishedAt)
	assert.True(t, stream.closed)

	m.jobs.AssertExpectations(t)
	m.sources.AssertExpectations(t)
	m.store.AssertExpectations(t)
	m.cache.AssertExpectations(t)
}

func TestPipelineRunPartialOnMixedQuality(t *testing.T) {
	t.Parallel()
	m := newPipelineMocks()

	warning := rawQuote("Q-2", "2024-03-02", "1600")
	warning["dest"] = "Shanghai"
	invalid := rawQuote("Q-3", "2024-03-03", "-50")
	structural := rawQuote("Q-4", "2024-03-04", "1700")
	delete(structural, "price")

	stream := newFakeStream(
		rawQuote("Q-1", "2024-03-01", "1500"),
		warning,
		invalid,
		structural,
	)
	minD := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	maxD := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	m.jobs.On("Create", mock.Anything, mock.Anything).Return("job-1", nil)
	m.sources.On("Get", mock.Anything, "src-1").Return(activeSource(), nil)
	m.factory.On("New", mock.Anything).Return(m.ds, nil)
	m.ds.On("Connect", mock.Anything).Return(nil)
	m.ds.On("Fetch", mock.Anything, mock.Anything).Return(stream, nil)
	m.ds.On("Disconnect", mock.Anything).Return(nil)
	// INVALID-flagged records are stored alongside usable ones; only
	// structurally broken rows are dropped.
	m.store.On("Append", mock.Anything, mock.MatchedBy(func(b []domain.FreightRecord) bool {
		return len(b) == 3
	})).Return(domain.AppendResult{Stored: 3, MinDate: minD, MaxDate: maxD}, nil)
	m.cache.On("EvictOverlapping", mock.Anything, minD, maxD).Return(0, nil)
	m.sources.On("SetStatus", mock.Anything, "src-1", domain.SourceActive).Return(nil)
	m.sources.On("MarkIngested", mock.Anything, "src-1", mock.Anything).Return(nil)
	m.jobs.On("Update", mock.Anything, mock.Anything).Return(nil)

	p := m.pipeline(0, fastRetry(1))
	job, err := p.Run(context.Background(), "", "src-1", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.JobPartial, job.Status)
	assert.Equal(t, 4, job.RecordsTotal)
	assert.Equal(t, 1, job.RecordsValid)
	assert.Equal(t, 1, job.RecordsWarning)
	assert.Equal(t, 2, job.RecordsInvalid)
	assert.Equal(t, 3, job.RecordsStored)
	require.Len(t, job.Warnings, 1)
	assert.Contains(t, job.Warnings[0], "origin and destination are the same")
	require.Len(t, job.Errors, 2)
	assert.Contains(t, job.Errors[0], "freight charge is not positive")
	assert.Contains(t, job.Errors[1], "freight_charge")

	m.store.AssertExpectations(t)
}

func TestPipelineRunConnectFailureMarksSourceError(t *testing.T) {
	t.Parallel()
	m := newPipelineMocks()

	connErr := domain.E(domain.KindDataSource, "connection refused")

	m.jobs.On("Create", mock.Anything, mock.Anything).Return("job-1", nil)
	m.sources.On("Get", mock.Anything, "src-1").Return(activeSource(), nil)
	m.factory.On("New", mock.Anything).Return(m.ds, nil)
	m.ds.On("Connect", mock.Anything).Return(connErr)
	m.ds.On("Disconnect", mock.Anything).Return(nil)
	m.sources.On("SetStatus", mock.Anything, "src-1", domain.SourceError).Return(nil)
	m.jobs.On("Update", mock.Anything, mock.MatchedBy(func(j domain.IngestionJob) bool {
		return j.Status == domain.JobFailed
	})).Return(nil)

	p := m.pipeline(0, fastRetry(2))
	job, err := p.Run(context.Background(), "", "src-1", nil)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindDataSource))

	assert.Equal(t, domain.JobFailed, job.Status)
	require.Len(t, job.Errors, 1)
	assert.Contains(t, job.Errors[0], "connection refused")
	// "connection" marks the failure transient, so the policy's second
	// attempt runs before giving up.
	m.ds.AssertNumberOfCalls(t, "Connect", 2)
	m.sources.AssertExpectations(t)
}

func TestPipelineRunInactiveSource(t *testing.T) {
	t.Parallel()
	m := newPipelineMocks()

	cfg := activeSource()
	cfg.Status = domain.SourceInactive

	m.jobs.On("Create", mock.Anything, mock.Anything).Return("job-1", nil)
	m.sources.On("Get", mock.Anything, "src-1").Return(cfg, nil)
	m.jobs.On("Update", mock.Anything, mock.MatchedBy(func(j domain.IngestionJob) bool {
		return j.Status == domain.JobFailed
	})).Return(nil)

	p := m.pipeline(0, fastRetry(1))
	job, err := p.Run(context.Background(), "", "src-1", nil)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConfiguration))
	assert.Equal(t, domain.JobFailed, job.Status)
	m.factory.AssertNotCalled(t, "New", mock.Anything)
}

func TestPipelineRunClaimsExistingJob(t *testing.T) {
	t.Parallel()
	m := newPipelineMocks()

	existing := domain.IngestionJob{ID: "job-9", SourceID: "src-1", Status: domain.JobPending}

	m.jobs.On("Get", mock.Anything, "job-9").Return(existing, nil)
	m.jobs.On("Update", mock.Anything, mock.MatchedBy(func(j domain.IngestionJob) bool {
		return j.ID == "job-9" && j.Status == domain.JobRunning
	})).Return(nil).Once()
	m.sources.On("Get", mock.Anything, "src-1").Return(activeSource(), nil)
	m.factory.On("New", mock.Anything).Return(m.ds, nil)
	m.ds.On("Connect", mock.Anything).Return(nil)
	m.ds.On("Fetch", mock.Anything, mock.Anything).Return(newFakeStream(), nil)
	m.ds.On("Disconnect", mock.Anything).Return(nil)
	m.sources.On("SetStatus", mock.Anything, "src-1", domain.SourceActive).Return(nil)
	m.sources.On("MarkIngested", mock.Anything, "src-1", mock.Anything).Return(nil)
	m.jobs.On("Update", mock.Anything, mock.MatchedBy(func(j domain.IngestionJob) bool {
		return j.ID == "job-9" && j.Status == domain.JobSuccess
	})).Return(nil).Once()

	p := m.pipeline(0, fastRetry(1))
	job, err := p.Run(context.Background(), "job-9", "src-1", nil)
	require.NoError(t, err)

	assert.Equal(t, "job-9", job.ID)
	assert.Equal(t, domain.JobSuccess, job.Status, "an empty source is a clean run")
	assert.Zero(t, job.RecordsTotal)
	m.store.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	m.cache.AssertNotCalled(t, "EvictOverlapping", mock.Anything, mock.Anything, mock.Anything)
	m.jobs.AssertExpectations(t)
}

func TestPipelineRunMidStreamFailureFlushesBuffer(t *testing.T) {
	t.Parallel()
	m := newPipelineMocks()

	stream := newFakeStream(rawQuote("Q-1", "2024-03-01", "1500"))
	stream.failAt = 1
	stream.err = domain.E(domain.KindDataSource, "connection reset by peer")
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	m.jobs.On("Create", mock.Anything, mock.Anything).Return("job-1", nil)
	m.sources.On("Get", mock.Anything, "src-1").Return(activeSource(), nil)
	m.factory.On("New", mock.Anything).Return(m.ds, nil)
	m.ds.On("Connect", mock.Anything).Return(nil)
	m.ds.On("Fetch", mock.Anything, mock.Anything).Return(stream, nil)
	m.ds.On("Disconnect", mock.Anything).Return(nil)
	m.store.On("Append", mock.Anything, mock.MatchedBy(func(b []domain.FreightRecord) bool {
		return len(b) == 1
	})).Return(domain.AppendResult{Stored: 1, MinDate: d, MaxDate: d}, nil)
	m.cache.On("EvictOverlapping", mock.Anything, d, d).Return(0, nil)
	m.jobs.On("Update", mock.Anything, mock.MatchedBy(func(j domain.IngestionJob) bool {
		return j.Status == domain.JobFailed
	})).Return(nil)

	p := m.pipeline(0, fastRetry(1))
	job, err := p.Run(context.Background(), "", "src-1", nil)
	require.Error(t, err)

	assert.Equal(t, domain.JobFailed, job.Status)
	assert.Equal(t, 1, job.RecordsStored, "validated records are flushed before failing")
	require.NotEmpty(t, job.Errors)
	assert.Contains(t, job.Errors[len(job.Errors)-1], "fetch stream")
	m.sources.AssertNotCalled(t, "MarkIngested", mock.Anything, mock.Anything, mock.Anything)
	m.store.AssertExpectations(t)
}

// Cancelling the caller's context mid-stream must not lose the records that
// already validated: the buffer is flushed on a detached context, the job
// lands as FAILED with the cancellation captured, and the connector is still
// disconnected.
func TestPipelineRunCancellationFlushesBuffer(t *testing.T) {
	t.Parallel()
	m := newPipelineMocks()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := newFakeStream(
		rawQuote("Q-1", "2024-03-01", "1500"),
		rawQuote("Q-2", "2024-03-02", "1600"),
	)
	stream.afterAt = 0
	stream.after = cancel
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	m.jobs.On("Create", mock.Anything, mock.Anything).Return("job-1", nil)
	m.sources.On("Get", mock.Anything, "src-1").Return(activeSource(), nil)
	m.factory.On("New", mock.Anything).Return(m.ds, nil)
	m.ds.On("Connect", mock.Anything).Return(nil)
	m.ds.On("Fetch", mock.Anything, mock.Anything).Return(stream, nil)
	m.ds.On("Disconnect", mock.Anything).Return(nil)
	m.store.On("Append", mock.Anything, mock.MatchedBy(func(b []domain.FreightRecord) bool {
		return len(b) == 1 && b[0].SourceRecordID == "Q-1"
	})).Return(domain.AppendResult{Stored: 1, MinDate: d, MaxDate: d}, nil).Once()
	m.cache.On("EvictOverlapping", mock.Anything, d, d).Return(0, nil)
	m.jobs.On("Update", mock.Anything, mock.MatchedBy(func(j domain.IngestionJob) bool {
		return j.Status == domain.JobFailed
	})).Return(nil)

	p := m.pipeline(0, fastRetry(1))
	job, err := p.Run(ctx, "", "src-1", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	assert.Equal(t, domain.JobFailed, job.Status)
	assert.Equal(t, 1, job.RecordsStored, "validated records survive the cancellation")
	require.NotEmpty(t, job.Errors)
	assert.Contains(t, job.Errors[len(job.Errors)-1], "context canceled")
	m.ds.AssertCalled(t, "Disconnect", mock.Anything)
	m.sources.AssertNotCalled(t, "MarkIngested", mock.Anything, mock.Anything, mock.Anything)
	m.store.AssertExpectations(t)
	m.jobs.AssertExpectations(t)
}

func TestPipelineRunFlushesInBatches(t *testing.T) {
	t.Parallel()
	m := newPipelineMocks()

	var raws []map[string]any
	for _, ref := range []string{"Q-1", "Q-2", "Q-3", "Q-4", "Q-5"} {
		raws = append(raws, rawQuote(ref, "2024-03-01", "1500"))
	}
	stream := newFakeStream(raws...)
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	m.jobs.On("Create", mock.Anything, mock.Anything).Return("job-1", nil)
	m.sources.On("Get", mock.Anything, "src-1").Return(activeSource(), nil)
	m.factory.On("New", mock.Anything).Return(m.ds, nil)
	m.ds.On("Connect", mock.Anything).Return(nil)
	m.ds.On("Fetch", mock.Anything, mock.Anything).Return(stream, nil)
	m.ds.On("Disconnect", mock.Anything).Return(nil)
	m.store.On("Append", mock.Anything, mock.MatchedBy(func(b []domain.FreightRecord) bool {
		return len(b) == 2
	})).Return(domain.AppendResult{Stored: 2, MinDate: d, MaxDate: d}, nil).Twice()
	m.store.On("Append", mock.Anything, mock.MatchedBy(func(b []domain.FreightRecord) bool {
		return len(b) == 1
	})).Return(domain.AppendResult{Stored: 1, MinDate: d, MaxDate: d}, nil).Once()
	m.cache.On("EvictOverlapping", mock.Anything, d, d).Return(0, nil)
	m.sources.On("SetStatus", mock.Anything, "src-1", domain.SourceActive).Return(nil)
	m.sources.On("MarkIngested", mock.Anything, "src-1", mock.Anything).Return(nil)
	m.jobs.On("Update", mock.Anything, mock.Anything).Return(nil)

	p := m.pipeline(2, fastRetry(1))
	job, err := p.Run(context.Background(), "", "src-1", nil)
	require.NoError(t, err)

	assert.Equal(t, 5, job.RecordsStored)
	m.store.AssertNumberOfCalls(t, "Append", 3)
}

func TestPipelineRunStoreFailure(t *testing.T) {
	t.Parallel()
	m := newPipelineMocks()

	stream := newFakeStream(
		rawQuote("Q-1", "2024-03-01", "1500"),
		rawQuote("Q-2", "2024-03-02", "1600"),
	)

	m.jobs.On("Create", mock.Anything, mock.Anything).Return("job-1", nil)
	m.sources.On("Get", mock.Anything, "src-1").Return(activeSource(), nil)
	m.factory.On("New", mock.Anything).Return(m.ds, nil)
	m.ds.On("Connect", mock.Anything).Return(nil)
	m.ds.On("Fetch", mock.Anything, mock.Anything).Return(stream, nil)
	m.ds.On("Disconnect", mock.Anything).Return(nil)
	m.store.On("Append", mock.Anything, mock.Anything).Return(domain.AppendResult{}, errors.New("db down")).Once()
	m.jobs.On("Update", mock.Anything, mock.MatchedBy(func(j domain.IngestionJob) bool {
		return j.Status == domain.JobFailed
	})).Return(nil)

	p := m.pipeline(2, fastRetry(1))
	job, err := p.Run(context.Background(), "", "src-1", nil)
	require.Error(t, err)

	assert.Equal(t, domain.JobFailed, job.Status)
	assert.Zero(t, job.RecordsStored)
	m.store.AssertNumberOfCalls(t, "Append", 1)
	m.cache.AssertNotCalled(t, "EvictOverlapping", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipelinePreview(t *testing.T) {
	t.Parallel()
	m := newPipelineMocks()

	stream := newFakeStream(
		rawQuote("Q-1", "2024-03-01", "1500"),
		rawQuote("Q-2", "2024-03-02", "-5"),
		rawQuote("Q-3", "2024-03-03", "1700"),
		rawQuote("Q-4", "2024-03-04", "1800"),
	)

	m.sources.On("Get", mock.Anything, "src-1").Return(activeSource(), nil)
	m.factory.On("New", mock.Anything).Return(m.ds, nil)
	m.ds.On("Connect", mock.Anything).Return(nil)
	m.ds.On("Fetch", mock.Anything, mock.MatchedBy(func(p map[string]any) bool {
		return p["limit"] == 3
	})).Return(stream, nil)
	m.ds.On("Disconnect", mock.Anything).Return(nil)

	p := m.pipeline(0, fastRetry(1))
	out, err := p.Preview(context.Background(), "src-1", nil, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 2, out.Valid)
	assert.Equal(t, 1, out.Invalid)
	assert.Len(t, out.Records, 3, "flagged records are returned for inspection")
	m.store.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	m.jobs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPipelinePreviewDefaultLimit(t *testing.T) {
	t.Parallel()
	m := newPipelineMocks()

	m.sources.On("Get", mock.Anything, "src-1").Return(activeSource(), nil)
	m.factory.On("New", mock.Anything).Return(m.ds, nil)
	m.ds.On("Connect", mock.Anything).Return(nil)
	m.ds.On("Fetch", mock.Anything, mock.MatchedBy(func(p map[string]any) bool {
		return p["limit"] == DefaultPreviewLimit
	})).Return(newFakeStream(rawQuote("Q-1", "2024-03-01", "1500")), nil)
	m.ds.On("Disconnect", mock.Anything).Return(nil)

	p := m.pipeline(0, fastRetry(1))
	out, err := p.Preview(context.Background(), "src-1", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Total)
}
