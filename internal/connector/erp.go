package connector

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

const (
	defaultRFCFunction = "Z_FPA_GET_FREIGHT_DATA"
	defaultResultTable = "ET_FREIGHT_DATA"
	rfcNamespace       = "urn:sap-com:document:sap:rfc:functions"
)

// erpSAPConnector invokes an RFC-enabled function module through the SAP
// SOAP runtime at /sap/bc/soap/rfc. Table rows come back as item elements
// under the export table.
type erpSAPConnector struct {
	base
	client *http.Client
	auth   authenticator

	url         string
	function    string
	resultTable string
}

func newERPSAP(cfg domain.DataSourceConfig, client *http.Client) (*erpSAPConnector, error) {
	params := cfg.ConnectionParams
	return &erpSAPConnector{
		base:   base{typ: domain.SourceERPSAP, sourceID: cfg.ID},
		client: client,
		auth: basicAuth{
			username: strParam(params, "user", ""),
			password: strParam(params, "passwd", ""),
		},
		url:         rfcEndpoint(params),
		function:    strParam(params, "function", defaultRFCFunction),
		resultTable: strParam(params, "result_table", defaultResultTable),
	}, nil
}

// rfcEndpoint derives the SOAP runtime URL from the application server host
// and system number, following the ICM 80NN/443NN port convention. The
// logon client rides along as the sap-client query parameter. A gateway_url
// param overrides the derivation for reverse-proxied systems.
func rfcEndpoint(params map[string]any) string {
	endpoint := strParam(params, "gateway_url", "")
	if endpoint == "" {
		sysnr := strParam(params, "sysnr", "00")
		if len(sysnr) == 1 {
			sysnr = "0" + sysnr
		}
		scheme, port := "http", "80"+sysnr
		if boolParam(params, "use_tls", false) {
			scheme, port = "https", "443"+sysnr
		}
		endpoint = fmt.Sprintf("%s://%s:%s/sap/bc/soap/rfc", scheme, strParam(params, "ashost", ""), port)
	}
	if client := strParam(params, "client", ""); client != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + "sap-client=" + url.QueryEscape(client)
	}
	return endpoint
}

// TestConnection invokes RFC_PING, the standard connectivity check module.
func (c *erpSAPConnector) TestConnection(ctx domain.Context) error {
	if _, err := c.call(ctx, "RFC_PING", nil); err != nil {
		return fmt.Errorf("op=erp_sap.test_connection: %w", err)
	}
	return nil
}

func (c *erpSAPConnector) Connect(ctx domain.Context) error {
	if err := c.guardConnect(); err != nil {
		return err
	}
	if _, err := url.ParseRequestURI(c.url); err != nil {
		c.setState(StateError)
		return domain.Wrap(domain.KindConfiguration, "invalid rfc endpoint", err).
			WithDetail("endpoint", c.url)
	}
	c.setState(StateConnected)
	return nil
}

func (c *erpSAPConnector) Disconnect(ctx domain.Context) error {
	c.setState(StateDisconnected)
	return nil
}

func (c *erpSAPConnector) Fetch(ctx domain.Context, params map[string]any) (domain.RecordStream, error) {
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

	callParams := map[string]any{}
	for k, v := range params {
		if k == "limit" {
			continue
		}
		callParams[k] = v
	}

	raw, err := c.call(ctx, c.function, callParams)
	if err != nil {
		c.endFetch()
		c.setState(StateError)
		return nil, err
	}
	records, err := parseRFCTable(bytes.NewReader(raw), c.resultTable)
	if err != nil {
		c.endFetch()
		c.setState(StateError)
		return nil, domain.Wrap(domain.KindDataSource, "malformed RFC response", err)
	}
	return newSliceStream(records, FetchLimit(params), c.endFetch), nil
}

// call posts one function invocation envelope and returns the raw response
// document after fault and status checks.
func (c *erpSAPConnector) call(ctx domain.Context, function string, params map[string]any) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(rfcEnvelope(function, params)))
	if err != nil {
		return nil, domain.Wrap(domain.KindConfiguration, "build request", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", rfcNamespace+":"+function)
	if err := c.auth.apply(ctx, req); err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.Wrap(domain.KindDataSource, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, domain.Wrap(domain.KindDataSource, "read response", err)
	}
	// Faults arrive with HTTP 500, so check the body before the status.
	if fault, ok := soapFault(raw); ok {
		return nil, domain.Ef(domain.KindDataSource, "rfc fault: %s", fault).
			WithDetail("function", function)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpError("rfc call", resp.StatusCode)
	}
	return raw, nil
}

// rfcEnvelope renders the request document for one function invocation.
// Parameter keys become child elements of the function element, in sorted
// order so envelopes are deterministic.
func rfcEnvelope(function string, params map[string]any) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	b.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:urn="` + rfcNamespace + `">`)
	b.WriteString(`<soapenv:Header/><soapenv:Body>`)
	b.WriteString("<urn:" + function + ">")
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("<" + k + ">")
		_ = xml.EscapeText(&b, []byte(fmt.Sprint(params[k])))
		b.WriteString("</" + k + ">")
	}
	b.WriteString("</urn:" + function + ">")
	b.WriteString(`</soapenv:Body></soapenv:Envelope>`)
	return b.String()
}

// soapFault extracts the faultstring when the response is a SOAP fault.
func soapFault(raw []byte) (string, bool) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", false
		}
		se, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(se.Name.Local, "Fault") {
			continue
		}
		rec, err := decodeXMLRecord(dec)
		if err != nil {
			return "", false
		}
		if s, ok := rec["faultstring"].(string); ok && s != "" {
			return s, true
		}
		return "unspecified fault", true
	}
}

// parseRFCTable decodes the item rows of the named export table. A response
// without the table yields no records.
func parseRFCTable(r io.Reader, table string) ([]map[string]any, error) {
	dec := xml.NewDecoder(r)
	depth := 0
	var records []map[string]any
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case depth == 0 && strings.EqualFold(t.Name.Local, table):
				depth = 1
			case depth > 0 && strings.EqualFold(t.Name.Local, "item"):
				rec, err := decodeXMLRecord(dec)
				if err != nil {
					return nil, err
				}
				records = append(records, rec)
			case depth > 0:
				depth++
			}
		case xml.EndElement:
			if depth > 0 {
				depth--
			}
		}
	}
}

// newERPDynamics targets Dynamics 365 OData endpoints: OAuth2 client
// credentials against the tenant's token endpoint, records under value.
func newERPDynamics(cfg domain.DataSourceConfig, client *http.Client) (*restConnector, error) {
	rc, err := newREST(cfg, client)
	if err != nil {
		return nil, err
	}
	params := cfg.ConnectionParams
	if _, isNoAuth := rc.auth.(noAuth); isNoAuth {
		tokenURL := strParam(params, "token_url", "")
		if tokenURL == "" {
			tokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token",
				strParam(params, "tenant_id", ""))
		}
		rc.auth = newOAuth2(
			tokenURL,
			strParam(params, "client_id", ""),
			strParam(params, "client_secret", ""),
			strParam(params, "scope", ""),
			client,
		)
	}
	if rc.dataKey == "" {
		rc.dataKey = "value"
	}
	return rc, nil
}
