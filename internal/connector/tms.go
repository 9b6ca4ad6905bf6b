package connector

import (
	"net/http"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// Vendor TMS connectors are the generic REST/SOAP connectors with the
// vendor's headers and response envelope pre-bound.

// newTMSSAP targets SAP TM OData endpoints: system headers plus the
// d.results envelope.
func newTMSSAP(cfg domain.DataSourceConfig, client *http.Client) (*restConnector, error) {
	rc, err := newREST(cfg, client)
	if err != nil {
		return nil, err
	}
	params := cfg.ConnectionParams
	rc.headers["x-sap-system-id"] = strParam(params, "system_id", "")
	rc.headers["x-sap-client"] = strParam(params, "client_number", "")
	if rc.dataKey == "" {
		rc.dataKey = "d.results"
	}
	return rc, nil
}

// newTMSOracle targets Oracle Transportation Management REST endpoints. The
// rate payload sits under RateList unless the config overrides data_key.
func newTMSOracle(cfg domain.DataSourceConfig, client *http.Client) (*restConnector, error) {
	rc, err := newREST(cfg, client)
	if err != nil {
		return nil, err
	}
	rc.headers["X-Instance-Id"] = strParam(cfg.ConnectionParams, "instance_id", "")
	if rc.dataKey == "" {
		rc.dataKey = "RateList"
	}
	return rc, nil
}

// newTMSJDA targets JDA/Blue Yonder SOAP services, which route on the
// X-JDA-Environment header.
func newTMSJDA(cfg domain.DataSourceConfig, client *http.Client) (*soapConnector, error) {
	sc, err := newSOAP(cfg, client)
	if err != nil {
		return nil, err
	}
	sc.headers["X-JDA-Environment"] = strParam(cfg.ConnectionParams, "environment", "")
	return sc, nil
}
