// Package connector implements the data source framework: one connector per
// source family, all speaking the same contract of test, connect, fetch as a
// record stream, and disconnect.
package connector

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// State tracks a connector's lifecycle.
type State int

const (
	// StateNew is the initial state before any connection attempt.
	StateNew State = iota
	// StateConnected indicates an established session ready to fetch.
	StateConnected
	// StateFetching indicates a record stream is currently open.
	StateFetching
	// StateDisconnected is terminal; a disconnected connector is not reused.
	StateDisconnected
	// StateError indicates the last connect or fetch failed; Connect may retry.
	StateError
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConnected:
		return "connected"
	case StateFetching:
		return "fetching"
	case StateDisconnected:
		return "disconnected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// requiredParams lists the connection parameters each source type must carry.
// An explicit connection_string stands in for the discrete credentials on the
// SQL-backed types.
var requiredParams = map[domain.SourceType][]string{
	domain.SourceCSV:         {"file_path"},
	domain.SourceDatabase:    {"host", "port", "database", "username", "password", "query"},
	domain.SourceREST:        {"api_url"},
	domain.SourceSOAP:        {"api_url"},
	domain.SourceGraphQL:     {"api_url"},
	domain.SourceTMSSAP:      {"api_url", "system_id", "client_number"},
	domain.SourceTMSOracle:   {"api_url", "instance_id"},
	domain.SourceTMSJDA:      {"api_url", "environment"},
	domain.SourceERPSAP:      {"ashost", "sysnr", "client", "user", "passwd"},
	domain.SourceERPOracle:   {"host", "port", "username", "password", "service_name", "query"},
	domain.SourceERPDynamics: {"api_url", "tenant_id", "client_id", "client_secret"},
}

// KnownType reports whether t has a registered connector.
func KnownType(t domain.SourceType) bool {
	_, ok := requiredParams[t]
	return ok
}

// RequiredParams returns the connection parameters required for t.
func RequiredParams(t domain.SourceType) []string {
	return requiredParams[t]
}

// dsnCoveredParams are the discrete credentials a connection_string replaces.
var dsnCoveredParams = map[string]bool{
	"host":     true,
	"port":     true,
	"database": true,
	"username": true,
	"password": true,
}

// MissingParams reports which required connection parameters are absent or
// blank in params.
func MissingParams(t domain.SourceType, params map[string]any) []string {
	hasDSN := strings.TrimSpace(strParam(params, "connection_string", "")) != ""
	var missing []string
	for _, key := range requiredParams[t] {
		if hasDSN && dsnCoveredParams[key] {
			continue
		}
		if v, ok := params[key]; !ok || strings.TrimSpace(fmt.Sprint(v)) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// base carries the shared lifecycle state machine. Connectors embed it and
// guard transitions through its helpers.
type base struct {
	mu       sync.Mutex
	state    State
	typ      domain.SourceType
	sourceID string
}

func (b *base) Type() domain.SourceType { return b.typ }

// StateName exposes the current lifecycle state for logging.
func (b *base) StateName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}

func (b *base) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// beginFetch validates the transition into FETCHING. Fetching from NEW or
// ERROR reports whether the caller must connect first.
func (b *base) beginFetch() (needConnect bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateConnected:
		b.state = StateFetching
		return false, nil
	case StateNew, StateError:
		return true, nil
	case StateFetching:
		return false, domain.Ef(domain.KindDataSource, "connector %s already has an open stream", b.sourceID).
			WithDetail("state", b.state.String())
	default:
		return false, domain.Ef(domain.KindDataSource, "connector %s is disconnected", b.sourceID).
			WithDetail("state", b.state.String())
	}
}

// endFetch returns the connector to CONNECTED once its stream is exhausted
// or closed.
func (b *base) endFetch() {
	b.mu.Lock()
	if b.state == StateFetching {
		b.state = StateConnected
	}
	b.mu.Unlock()
}

func (b *base) guardConnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateDisconnected {
		return domain.Ef(domain.KindDataSource, "connector %s is disconnected", b.sourceID)
	}
	return nil
}

// pageFunc fetches one page of raw records (pages start at 1) and reports
// whether more pages may follow.
type pageFunc func(ctx domain.Context, page int) (records []map[string]any, more bool, err error)

// pagedStream adapts page-based fetching to the pull-based RecordStream
// contract, applying the optional record limit.
type pagedStream struct {
	fetch   pageFunc
	limit   int
	onClose func()

	page    int
	buf     []map[string]any
	idx     int
	done    bool
	yielded int
	closed  bool
}

func newPagedStream(fetch pageFunc, limit int, onClose func()) *pagedStream {
	return &pagedStream{fetch: fetch, limit: limit, onClose: onClose, page: 1}
}

func (s *pagedStream) Next(ctx domain.Context) (map[string]any, error) {
	if s.closed {
		return nil, io.EOF
	}
	if s.limit > 0 && s.yielded >= s.limit {
		return nil, io.EOF
	}
	for s.idx >= len(s.buf) {
		if s.done {
			return nil, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, more, err := s.fetch(ctx, s.page)
		if err != nil {
			return nil, err
		}
		s.page++
		s.buf = records
		s.idx = 0
		if !more {
			s.done = true
		}
		if len(records) == 0 {
			s.done = true
		}
	}
	rec := s.buf[s.idx]
	s.idx++
	s.yielded++
	return rec, nil
}

func (s *pagedStream) Close() error {
	if !s.closed {
		s.closed = true
		if s.onClose != nil {
			s.onClose()
		}
	}
	return nil
}

// sliceStream yields an in-memory batch; connectors that read their whole
// payload at once wrap it in one of these.
type sliceStream struct {
	records []map[string]any
	idx     int
	limit   int
	onClose func()
	closed  bool
}

func newSliceStream(records []map[string]any, limit int, onClose func()) *sliceStream {
	return &sliceStream{records: records, limit: limit, onClose: onClose}
}

func (s *sliceStream) Next(ctx domain.Context) (map[string]any, error) {
	if s.closed || s.idx >= len(s.records) {
		return nil, io.EOF
	}
	if s.limit > 0 && s.idx >= s.limit {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec := s.records[s.idx]
	s.idx++
	return rec, nil
}

func (s *sliceStream) Close() error {
	if !s.closed {
		s.closed = true
		if s.onClose != nil {
			s.onClose()
		}
	}
	return nil
}

// Param helpers. Connection parameter maps come from JSON, so numbers may
// arrive as float64 and booleans as strings.

func strParam(p map[string]any, key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return def
	}
	return s
}

func intParam(p map[string]any, key string, def int) int {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return parsed
		}
	}
	return def
}

func boolParam(p map[string]any, key string, def bool) bool {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed
		}
	}
	return def
}

func mapParam(p map[string]any, key string) map[string]any {
	if v, ok := p[key].(map[string]any); ok {
		return v
	}
	return nil
}

// FetchLimit reads the record limit out of fetch params; zero means no limit.
func FetchLimit(params map[string]any) int {
	if params == nil {
		return 0
	}
	return intParam(params, "limit", 0)
}
