package connector

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // default driver for external SQL freight databases

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// dbConnector pulls freight records out of an external SQL database with a
// configured query. The driver name is a connection parameter so deployments
// can register vendor drivers; postgres is wired in by default.
type dbConnector struct {
	base
	driver         string
	dsn            string
	query          string
	serviceName    string
	connectTimeout time.Duration

	db *sqlx.DB
}

func newDatabase(cfg domain.DataSourceConfig, connectTimeout time.Duration) *dbConnector {
	params := cfg.ConnectionParams
	return &dbConnector{
		base:           base{typ: cfg.SourceType, sourceID: cfg.ID},
		driver:         strParam(params, "driver", "postgres"),
		dsn:            dsnFromParams(params),
		query:          strParam(params, "query", ""),
		serviceName:    strParam(params, "service_name", ""),
		connectTimeout: connectTimeout,
	}
}

// dsnFromParams honors an explicit connection_string and otherwise assembles
// a keyword DSN from the discrete credentials. Oracle-backed ERP sources name
// their schema through service_name instead of database.
func dsnFromParams(params map[string]any) string {
	if dsn := strParam(params, "connection_string", ""); dsn != "" {
		return dsn
	}
	dbname := strParam(params, "database", "")
	if dbname == "" {
		dbname = strParam(params, "service_name", "")
	}
	parts := []string{
		"host=" + strParam(params, "host", "localhost"),
		"port=" + strconv.Itoa(intParam(params, "port", 5432)),
		"dbname=" + dbname,
		"user=" + strParam(params, "username", ""),
		"password=" + strParam(params, "password", ""),
		"sslmode=" + strParam(params, "sslmode", "disable"),
	}
	return strings.Join(parts, " ")
}

func (c *dbConnector) TestConnection(ctx domain.Context) error {
	db, err := sqlx.Open(c.driver, c.dsn)
	if err != nil {
		return domain.Wrap(domain.KindConfiguration, "open database", err).
			WithDetail("driver", c.driver)
	}
	defer func() { _ = db.Close() }()
	return c.ping(ctx, db)
}

func (c *dbConnector) ping(ctx domain.Context, db *sqlx.DB) error {
	pingCtx, cancel := contextWithTimeout(ctx, c.connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return domain.Wrap(domain.KindDataSource, "database connection failed", err).
			WithDetail("driver", c.driver).
			WithDetail("service_name", c.serviceName)
	}
	return nil
}

func (c *dbConnector) Connect(ctx domain.Context) error {
	if err := c.guardConnect(); err != nil {
		return err
	}
	db, err := sqlx.Open(c.driver, c.dsn)
	if err != nil {
		c.setState(StateError)
		return domain.Wrap(domain.KindConfiguration, "open database", err).
			WithDetail("driver", c.driver)
	}
	if err := c.ping(ctx, db); err != nil {
		_ = db.Close()
		c.setState(StateError)
		return err
	}
	c.db = db
	c.setState(StateConnected)
	return nil
}

func (c *dbConnector) Disconnect(ctx domain.Context) error {
	if c.db != nil {
		_ = c.db.Close()
		c.db = nil
	}
	c.setState(StateDisconnected)
	return nil
}

func (c *dbConnector) Fetch(ctx domain.Context, params map[string]any) (domain.RecordStream, error) {
	needConnect, err := c.beginFetch()
	if err != nil {
		return nil, err
	}
	if needConnect {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
		if _, err := c.beginFetch(); err != nil {
			return nil, err
		}
	}
	query := strParam(params, "query", c.query)
	rows, err := c.db.QueryxContext(ctx, query)
	if err != nil {
		c.endFetch()
		c.setState(StateError)
		return nil, domain.Wrap(domain.KindDataSource, "query failed", err).
			WithDetail("driver", c.driver)
	}
	return &dbStream{rows: rows, limit: FetchLimit(params), onClose: c.endFetch}, nil
}

// dbStream adapts sqlx row iteration to the record stream contract,
// normalizing []byte columns into strings.
type dbStream struct {
	rows    *sqlx.Rows
	limit   int
	yielded int
	onClose func()
	closed  bool
}

func (s *dbStream) Next(ctx domain.Context) (map[string]any, error) {
	if s.closed {
		return nil, io.EOF
	}
	if s.limit > 0 && s.yielded >= s.limit {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, domain.Wrap(domain.KindDataSource, "row iteration failed", err)
		}
		return nil, io.EOF
	}
	record := map[string]any{}
	if err := s.rows.MapScan(record); err != nil {
		return nil, domain.Wrap(domain.KindDataSource, "scan row", err)
	}
	for k, v := range record {
		if b, ok := v.([]byte); ok {
			record[k] = string(b)
		}
	}
	s.yielded++
	return record, nil
}

func (s *dbStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.onClose != nil {
		s.onClose()
	}
	return s.rows.Close()
}

func contextWithTimeout(ctx domain.Context, d time.Duration) (domain.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
