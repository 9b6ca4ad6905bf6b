// Package rates resolves currency exchange rates from an exchangerate.host
// compatible HTTP API, with an in-process TTL cache layered on top.
package rates

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// Client fetches rates over HTTP. It implements domain.RateProvider.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewClient constructs a Client with a traced HTTP transport.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type ratesResponse struct {
	Rates map[string]json.Number `json:"rates"`
}

// Rate returns the conversion rate from one currency into another on the
// given day. A zero `on` asks for the latest published rate. Same-currency
// lookups short-circuit to 1 without touching the network.
func (c *Client) Rate(ctx domain.Context, from, to string, on time.Time) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	path := "latest"
	if !on.IsZero() {
		path = on.UTC().Format("2006-01-02")
	}
	q := url.Values{}
	q.Set("base", from)
	q.Set("symbols", to)
	if c.APIKey != "" {
		q.Set("access_key", c.APIKey)
	}
	reqURL := fmt.Sprintf("%s/%s?%s", c.BaseURL, path, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Decimal{}, domain.Wrap(domain.KindIntegration, "build rates request", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return decimal.Decimal{}, domain.Wrap(domain.KindIntegration, "rates api unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, domain.Ef(domain.KindIntegration, "rates api returned %d", resp.StatusCode).
			WithDetail("status_code", resp.StatusCode)
	}
	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Decimal{}, domain.Wrap(domain.KindIntegration, "decode rates response", err)
	}
	raw, ok := body.Rates[to]
	if !ok {
		return decimal.Decimal{}, domain.Ef(domain.KindIntegration, "rates api has no rate for %s", to).
			WithDetail("currency", to)
	}
	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Decimal{}, domain.Wrap(domain.KindIntegration, "parse rate", err)
	}
	if rate.Sign() <= 0 {
		return decimal.Decimal{}, domain.Ef(domain.KindIntegration, "non-positive rate %s for %s", rate, to)
	}
	return rate, nil
}
