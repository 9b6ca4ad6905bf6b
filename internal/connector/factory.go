package connector

import (
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// Options bound every connector's network behavior.
type Options struct {
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
}

// Factory builds connectors, sharing one traced HTTP client across the
// REST-family connectors.
type Factory struct {
	httpClient     *http.Client
	connectTimeout time.Duration
}

// NewFactory applies the configured timeouts: ConnectTimeout bounds dialing
// and TLS setup, RequestTimeout bounds whole requests.
func NewFactory(opts Options) *Factory {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: opts.RequestTimeout,
	}
	return &Factory{
		httpClient: &http.Client{
			Timeout:   opts.RequestTimeout,
			Transport: otelhttp.NewTransport(transport),
		},
		connectTimeout: opts.ConnectTimeout,
	}
}

// New builds the connector for cfg's source type.
func (f *Factory) New(cfg domain.DataSourceConfig) (domain.DataSource, error) {
	switch cfg.SourceType {
	case domain.SourceCSV:
		return newCSV(cfg)
	case domain.SourceDatabase, domain.SourceERPOracle:
		return newDatabase(cfg, f.connectTimeout), nil
	case domain.SourceREST:
		return newREST(cfg, f.httpClient)
	case domain.SourceSOAP:
		return newSOAP(cfg, f.httpClient)
	case domain.SourceGraphQL:
		return newGraphQL(cfg, f.httpClient)
	case domain.SourceTMSSAP:
		return newTMSSAP(cfg, f.httpClient)
	case domain.SourceTMSOracle:
		return newTMSOracle(cfg, f.httpClient)
	case domain.SourceTMSJDA:
		return newTMSJDA(cfg, f.httpClient)
	case domain.SourceERPSAP:
		return newERPSAP(cfg, f.httpClient)
	case domain.SourceERPDynamics:
		return newERPDynamics(cfg, f.httpClient)
	default:
		return nil, domain.Ef(domain.KindConfiguration, "no connector registered for source type %q", cfg.SourceType).
			WithDetail("source_type", string(cfg.SourceType))
	}
}
