package connector

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// defaultGraphQLQuery asks for the canonical freight fields when the source
// schema exposes the conventional freightRecords query.
const defaultGraphQLQuery = `query FreightRecords {
  freightRecords {
    record_id
    origin
    destination
    freight_charge
    currency_code
    record_date
    transport_mode
    carrier
  }
}`

// graphqlConnector runs one configured query and extracts the record array
// from the data envelope.
type graphqlConnector struct {
	base
	client *http.Client
	auth   authenticator

	url       string
	query     string
	variables map[string]any
	dataKey   string
	headers   map[string]string
}

func newGraphQL(cfg domain.DataSourceConfig, client *http.Client) (*graphqlConnector, error) {
	params := cfg.ConnectionParams
	auth, err := authFromParams(params, client)
	if err != nil {
		return nil, err
	}
	gc := &graphqlConnector{
		base:      base{typ: domain.SourceGraphQL, sourceID: cfg.ID},
		client:    client,
		auth:      auth,
		url:       strParam(params, "api_url", ""),
		query:     strParam(params, "graphql_query", defaultGraphQLQuery),
		variables: mapParam(params, "variables"),
		dataKey:   strParam(params, "data_key", ""),
		headers:   map[string]string{},
	}
	for k, v := range mapParam(params, "headers") {
		gc.headers[k] = fmt.Sprint(v)
	}
	return gc, nil
}

func (c *graphqlConnector) TestConnection(ctx domain.Context) error {
	// The standard introspection probe answers on every compliant endpoint
	// without touching domain data.
	_, err := c.post(ctx, "{ __typename }", nil)
	if err != nil {
		return fmt.Errorf("op=graphql.test_connection: %w", err)
	}
	return nil
}

func (c *graphqlConnector) Connect(ctx domain.Context) error {
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

func (c *graphqlConnector) Disconnect(ctx domain.Context) error {
	c.setState(StateDisconnected)
	return nil
}

func (c *graphqlConnector) Fetch(ctx domain.Context, params map[string]any) (domain.RecordStream, error) {
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

	variables := map[string]any{}
	for k, v := range c.variables {
		variables[k] = v
	}
	for k, v := range mapParam(params, "variables") {
		variables[k] = v
	}

	body, err := c.post(ctx, c.query, variables)
	if err != nil {
		c.endFetch()
		c.setState(StateError)
		return nil, err
	}
	records, err := c.extract(body)
	if err != nil {
		c.endFetch()
		c.setState(StateError)
		return nil, err
	}
	return newSliceStream(records, FetchLimit(params), c.endFetch), nil
}

func (c *graphqlConnector) post(ctx domain.Context, query string, variables map[string]any) (map[string]any, error) {
	payload := map[string]any{"query": query}
	if len(variables) > 0 {
		payload["variables"] = variables
	}
	body, err := doJSON(ctx, c.client, c.auth, http.MethodPost, c.url, c.headers, payload)
	if err != nil {
		return nil, err
	}
	envelope, ok := body.(map[string]any)
	if !ok {
		return nil, domain.E(domain.KindDataSource, "response is not a GraphQL envelope")
	}
	if errs, ok := envelope["errors"].([]any); ok && len(errs) > 0 {
		msg := "query failed"
		if first, ok := errs[0].(map[string]any); ok {
			if m, ok := first["message"].(string); ok && m != "" {
				msg = m
			}
		}
		return nil, domain.Ef(domain.KindDataSource, "graphql error: %s", msg).
			WithDetail("error_count", len(errs))
	}
	return envelope, nil
}

// extract walks data.<data_key>; with no data key a sole array field under
// data is used.
func (c *graphqlConnector) extract(envelope map[string]any) ([]map[string]any, error) {
	data, ok := envelope["data"].(map[string]any)
	if !ok {
		return nil, domain.E(domain.KindDataSource, "response carries no data object")
	}
	if c.dataKey != "" {
		return extractRecords(data, c.dataKey)
	}
	var arrays []string
	for k, v := range data {
		if _, ok := v.([]any); ok {
			arrays = append(arrays, k)
		}
	}
	if len(arrays) != 1 {
		return nil, domain.Ef(domain.KindDataSource, "data_key required: response has %d array fields", len(arrays))
	}
	return extractRecords(data, arrays[0])
}
