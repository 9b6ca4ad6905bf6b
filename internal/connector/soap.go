package connector

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

const defaultEnvelope = `<?xml version="1.0" encoding="utf-8"?><soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body></soap:Body></soap:Envelope>`

// soapConnector posts a SOAP envelope and extracts record elements from the
// XML response by local element name. The TMS_JDA connector is this one with
// the vendor environment header pre-bound.
type soapConnector struct {
	base
	client *http.Client
	auth   authenticator

	url           string
	wsdlURL       string
	action        string
	envelope      string
	recordElement string
	headers       map[string]string
}

func newSOAP(cfg domain.DataSourceConfig, client *http.Client) (*soapConnector, error) {
	params := cfg.ConnectionParams
	auth, err := authFromParams(params, client)
	if err != nil {
		return nil, err
	}
	sc := &soapConnector{
		base:          base{typ: cfg.SourceType, sourceID: cfg.ID},
		client:        client,
		auth:          auth,
		url:           strParam(params, "api_url", ""),
		wsdlURL:       strParam(params, "wsdl_url", ""),
		action:        strParam(params, "action", ""),
		envelope:      strParam(params, "envelope", defaultEnvelope),
		recordElement: strParam(params, "record_element", "record"),
		headers:       map[string]string{},
	}
	for k, v := range mapParam(params, "headers") {
		sc.headers[k] = fmt.Sprint(v)
	}
	return sc, nil
}

// TestConnection fetches the WSDL when one is configured, otherwise it
// performs the configured SOAP call.
func (c *soapConnector) TestConnection(ctx domain.Context) error {
	if c.wsdlURL != "" {
		if err := c.probeWSDL(ctx); err != nil {
			return fmt.Errorf("op=soap.test_connection: %w", err)
		}
		return nil
	}
	if _, err := c.call(ctx); err != nil {
		return fmt.Errorf("op=soap.test_connection: %w", err)
	}
	return nil
}

func (c *soapConnector) probeWSDL(ctx domain.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.wsdlURL, nil)
	if err != nil {
		return domain.Wrap(domain.KindConfiguration, "build request", err)
	}
	if err := c.auth.apply(ctx, req); err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Wrap(domain.KindDataSource, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpError("fetch wsdl", resp.StatusCode)
	}
	return nil
}

func (c *soapConnector) Connect(ctx domain.Context) error {
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

func (c *soapConnector) Disconnect(ctx domain.Context) error {
	c.setState(StateDisconnected)
	return nil
}

func (c *soapConnector) Fetch(ctx domain.Context, params map[string]any) (domain.RecordStream, error) {
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
	records, err := c.call(ctx)
	if err != nil {
		c.endFetch()
		c.setState(StateError)
		return nil, err
	}
	return newSliceStream(records, FetchLimit(params), c.endFetch), nil
}

// call performs one SOAP round trip with the 401 refresh-and-retry rule.
func (c *soapConnector) call(ctx domain.Context) ([]map[string]any, error) {
	send := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(c.envelope))
		if err != nil {
			return nil, domain.Wrap(domain.KindConfiguration, "build request", err)
		}
		req.Header.Set("Content-Type", "text/xml; charset=utf-8")
		req.Header.Set("SOAPAction", c.action)
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}
		if err := c.auth.apply(ctx, req); err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
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
		c.auth.invalidate()
		if resp, err = send(); err != nil {
			return nil, err
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, httpError("soap call", resp.StatusCode)
	}
	records, err := parseXMLRecords(resp.Body, c.recordElement)
	if err != nil {
		return nil, domain.Wrap(domain.KindDataSource, "malformed SOAP response", err)
	}
	return records, nil
}

// parseXMLRecords walks the document and turns every element whose local
// name matches recordName into a map of its child elements' text.
func parseXMLRecords(r io.Reader, recordName string) ([]map[string]any, error) {
	dec := xml.NewDecoder(r)
	var records []map[string]any
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(se.Name.Local, recordName) {
			continue
		}
		rec, err := decodeXMLRecord(dec)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

func decodeXMLRecord(dec *xml.Decoder) (map[string]any, error) {
	record := map[string]any{}
	var field string
	var text strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				field = t.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if depth >= 1 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				return record, nil
			}
			if depth == 1 && field != "" {
				record[field] = strings.TrimSpace(text.String())
				field = ""
			}
			depth--
		}
	}
}
