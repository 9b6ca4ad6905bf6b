package connector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

const (
	defaultPageParam = "page"
	defaultSizeParam = "page_size"
	defaultPageSize  = 100
)

// restConnector speaks JSON-over-HTTP with page-number pagination. The TMS
// and Dynamics connectors are this connector with vendor headers, auth and
// envelope paths pre-bound.
type restConnector struct {
	base
	client *http.Client
	auth   authenticator

	url         string
	method      string
	headers     map[string]string
	dataKey     string
	nextPageKey string
	pageParam   string
	sizeParam   string
	pageSize    int
}

func newREST(cfg domain.DataSourceConfig, client *http.Client) (*restConnector, error) {
	params := cfg.ConnectionParams
	auth, err := authFromParams(params, client)
	if err != nil {
		return nil, err
	}
	rc := &restConnector{
		base:        base{typ: cfg.SourceType, sourceID: cfg.ID},
		client:      client,
		auth:        auth,
		url:         strParam(params, "api_url", ""),
		method:      strings.ToUpper(strParam(params, "method", http.MethodGet)),
		headers:     map[string]string{},
		dataKey:     strParam(params, "data_key", ""),
		nextPageKey: strParam(params, "next_page_key", ""),
		pageParam:   strParam(params, "page_param", defaultPageParam),
		sizeParam:   strParam(params, "page_size_param", defaultSizeParam),
		pageSize:    intParam(params, "page_size", defaultPageSize),
	}
	for k, v := range mapParam(params, "headers") {
		rc.headers[k] = fmt.Sprint(v)
	}
	return rc, nil
}

func (c *restConnector) TestConnection(ctx domain.Context) error {
	_, _, err := c.fetchPage(ctx, 1, 1)
	if err != nil {
		return fmt.Errorf("op=rest.test_connection: %w", err)
	}
	return nil
}

func (c *restConnector) Connect(ctx domain.Context) error {
	if err := c.guardConnect(); err != nil {
		return err
	}
	if _, err := url.ParseRequestURI(c.url); err != nil {
		c.setState(StateError)
		return domain.Wrap(domain.KindConfiguration, "invalid endpoint url", err).
			WithDetail("api_url", c.url)
	}
	c.setState(StateConnected)
	return nil
}

func (c *restConnector) Disconnect(ctx domain.Context) error {
	c.setState(StateDisconnected)
	return nil
}

func (c *restConnector) Fetch(ctx domain.Context, params map[string]any) (domain.RecordStream, error) {
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
	pageSize := c.pageSize
	if n := intParam(params, "page_size", 0); n > 0 {
		pageSize = n
	}
	fetch := func(ctx domain.Context, page int) ([]map[string]any, bool, error) {
		records, more, err := c.fetchPage(ctx, page, pageSize)
		if err != nil {
			c.setState(StateError)
			return nil, false, err
		}
		return records, more, nil
	}
	return newPagedStream(fetch, FetchLimit(params), c.endFetch), nil
}

// fetchPage performs one paged request and extracts the record array plus a
// more-pages hint from the response envelope.
func (c *restConnector) fetchPage(ctx domain.Context, page, pageSize int) ([]map[string]any, bool, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, false, domain.Wrap(domain.KindConfiguration, "invalid endpoint url", err)
	}
	q := u.Query()
	q.Set(c.pageParam, strconv.Itoa(page))
	q.Set(c.sizeParam, strconv.Itoa(pageSize))
	u.RawQuery = q.Encode()

	body, err := doJSON(ctx, c.client, c.auth, c.method, u.String(), c.headers, nil)
	if err != nil {
		return nil, false, err
	}

	records, err := extractRecords(body, c.dataKey)
	if err != nil {
		return nil, false, err
	}

	more := len(records) >= pageSize && pageSize > 0
	if c.nextPageKey != "" {
		if env, ok := body.(map[string]any); ok {
			more = truthy(env[c.nextPageKey])
		} else {
			more = false
		}
	}
	return records, more, nil
}

// doJSON sends one authenticated JSON request. A 401 invalidates cached
// credentials and retries exactly once.
func doJSON(ctx domain.Context, client *http.Client, auth authenticator, method, rawURL string, headers map[string]string, payload any) (any, error) {
	send := func() (*http.Response, error) {
		var body io.Reader
		if payload != nil {
			raw, err := json.Marshal(payload)
			if err != nil {
				return nil, domain.Wrap(domain.KindIntegration, "encode request payload", err)
			}
			body = bytes.NewReader(raw)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
		if err != nil {
			return nil, domain.Wrap(domain.KindConfiguration, "build request", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if err := auth.apply(ctx, req); err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, domain.Wrap(domain.KindDataSource, "request failed", err)
		}
		return resp, nil
	}

	resp, err := send()
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		auth.invalidate()
		if resp, err = send(); err != nil {
			return nil, err
		}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, domain.Wrap(domain.KindDataSource, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpError("fetch", resp.StatusCode)
	}

	var body any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, domain.Wrap(domain.KindDataSource, "malformed JSON response", err)
		}
	}
	return body, nil
}

// extractRecords locates the record array inside a response. A dot-separated
// dataKey walks nested objects; with no dataKey an array root is used as-is
// and common envelope keys are probed on objects.
func extractRecords(body any, dataKey string) ([]map[string]any, error) {
	node := body
	if dataKey != "" {
		for _, part := range strings.Split(dataKey, ".") {
			obj, ok := node.(map[string]any)
			if !ok {
				return nil, domain.Ef(domain.KindDataSource, "response has no object at %q", part).
					WithDetail("data_key", dataKey)
			}
			node = obj[part]
		}
	} else if obj, ok := node.(map[string]any); ok {
		for _, probe := range []string{"data", "results", "items", "records"} {
			if v, ok := obj[probe]; ok {
				node = v
				break
			}
		}
	}

	arr, ok := node.([]any)
	if !ok {
		if node == nil {
			return nil, nil
		}
		return nil, domain.Ef(domain.KindDataSource, "response carries no record array").
			WithDetail("data_key", dataKey)
	}
	records := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			records = append(records, m)
		}
	}
	return records, nil
}

// truthy mirrors loose JSON truthiness for next-page markers.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "0" && !strings.EqualFold(t, "false") && !strings.EqualFold(t, "null")
	case float64:
		return t != 0
	default:
		return true
	}
}
