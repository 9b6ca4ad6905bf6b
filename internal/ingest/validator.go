// Package ingest holds record validation and the ingestion pipeline shared by
// the server (preview) and the worker (full runs).
package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/connector"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
	"github.com/fairyhunter13/freight-price-movement-agent/pkg/textx"
)

// Canonical field names every source must map onto.
const (
	FieldOrigin        = "origin"
	FieldDestination   = "destination"
	FieldFreightCharge = "freight_charge"
	FieldCurrencyCode  = "currency_code"
	FieldRecordDate    = "record_date"
	FieldTransportMode = "transport_mode"
	FieldCarrier       = "carrier"
	FieldRecordID      = "record_id"
)

// RequiredFields are the canonical fields a field mapping must cover.
var RequiredFields = []string{
	FieldOrigin,
	FieldDestination,
	FieldFreightCharge,
	FieldCurrencyCode,
	FieldRecordDate,
	FieldTransportMode,
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Charge thresholds behind the quality rules. Charges below one currency
// unit or above the ceiling are suspicious but usable; non-positive charges
// are unusable.
var (
	chargeWarnLow  = decimal.NewFromInt(1)
	chargeWarnHigh = decimal.NewFromInt(100000)
)

// dateLayouts are tried in order when no explicit date_format applies.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// Validator normalizes raw connector records into FreightRecords.
type Validator struct {
	mapping    map[string]string
	dateFormat string
	now        func() time.Time
}

// NewValidator builds a validator for one source's field mapping, which maps
// source field names to canonical ones. dateFormat optionally pins the
// record_date layout (Go reference layout) and wins over the built-in list.
func NewValidator(mapping map[string]string, dateFormat string) *Validator {
	return &Validator{mapping: mapping, dateFormat: dateFormat, now: time.Now}
}

// ValidateRecord maps, coerces and quality-checks one raw record.
// A non-nil error means the record is structurally unusable and must not be
// stored. A returned record always carries a quality flag; INVALID records
// are stored but excluded from analysis.
func (v *Validator) ValidateRecord(raw map[string]any) (domain.FreightRecord, error) {
	var rec domain.FreightRecord

	fields := make(map[string]any, len(v.mapping))
	for sourceKey, canonical := range v.mapping {
		if val, ok := raw[sourceKey]; ok {
			fields[canonical] = val
		}
	}

	for _, f := range RequiredFields {
		val, ok := fields[f]
		if !ok || val == nil || strings.TrimSpace(fmt.Sprint(val)) == "" {
			return rec, domain.Ef(domain.KindValidation, "required field %q is missing", f).
				WithDetail("field", f)
		}
	}

	// Feed exports smuggle control characters and CRLF into text columns.
	origin := textx.SanitizeField(fmt.Sprint(fields[FieldOrigin]))
	destination := textx.SanitizeField(fmt.Sprint(fields[FieldDestination]))
	currency := textx.NormalizeCode(fmt.Sprint(fields[FieldCurrencyCode]))

	charge, err := coerceDecimal(fields[FieldFreightCharge])
	if err != nil {
		return rec, domain.Wrap(domain.KindValidation, "freight_charge is not a number", err).
			WithDetail("field", FieldFreightCharge).
			WithDetail("value", fmt.Sprint(fields[FieldFreightCharge]))
	}

	recordDate, err := v.coerceDate(fields[FieldRecordDate])
	if err != nil {
		return rec, domain.Wrap(domain.KindValidation, "record_date is not a recognized date", err).
			WithDetail("field", FieldRecordDate).
			WithDetail("value", fmt.Sprint(fields[FieldRecordDate]))
	}

	mode, err := coerceMode(fields[FieldTransportMode])
	if err != nil {
		return rec, err
	}

	rec = domain.FreightRecord{
		RecordDate:    recordDate,
		Origin:        origin,
		Destination:   destination,
		FreightCharge: charge,
		CurrencyCode:  currency,
		TransportMode: mode,
	}
	if c, ok := fields[FieldCarrier]; ok && c != nil {
		rec.Carrier = textx.SanitizeField(fmt.Sprint(c))
	}
	if id, ok := fields[FieldRecordID]; ok && id != nil {
		rec.SourceRecordID = strings.TrimSpace(fmt.Sprint(id))
	}

	v.applyQualityRules(&rec)
	return rec, nil
}

// applyQualityRules flags the record. Any invalid reason wins over warnings.
func (v *Validator) applyQualityRules(rec *domain.FreightRecord) {
	var warnings, invalids []string

	if strings.EqualFold(rec.Origin, rec.Destination) {
		warnings = append(warnings, "origin and destination are the same")
	}
	switch {
	case rec.FreightCharge.Sign() <= 0:
		invalids = append(invalids, "freight charge is not positive")
	case rec.FreightCharge.LessThan(chargeWarnLow):
		warnings = append(warnings, "freight charge is below 1")
	case rec.FreightCharge.GreaterThan(chargeWarnHigh):
		warnings = append(warnings, "freight charge exceeds 100000")
	}
	if rec.RecordDate.After(v.now()) {
		invalids = append(invalids, "record date is in the future")
	}
	if !currencyPattern.MatchString(rec.CurrencyCode) {
		invalids = append(invalids, "currency code is not ISO 4217")
	}

	switch {
	case len(invalids) > 0:
		rec.QualityFlag = domain.QualityInvalid
		rec.QualityReasons = append(invalids, warnings...)
	case len(warnings) > 0:
		rec.QualityFlag = domain.QualityWarning
		rec.QualityReasons = warnings
	default:
		rec.QualityFlag = domain.QualityValid
	}
}

func coerceDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		return decimal.NewFromString(s)
	default:
		s := strings.ReplaceAll(strings.TrimSpace(fmt.Sprint(v)), ",", "")
		return decimal.NewFromString(s)
	}
}

func (v *Validator) coerceDate(val any) (time.Time, error) {
	if t, ok := val.(time.Time); ok {
		return t.UTC(), nil
	}
	s := strings.TrimSpace(fmt.Sprint(val))
	if v.dateFormat != "" {
		t, err := time.ParseInLocation(v.dateFormat, s, time.UTC)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("no layout matches %q", s)
}

func coerceMode(val any) (domain.TransportMode, error) {
	s := strings.ToUpper(strings.TrimSpace(fmt.Sprint(val)))
	switch s {
	case string(domain.ModeOcean), "SEA", "MARITIME":
		return domain.ModeOcean, nil
	case string(domain.ModeAir):
		return domain.ModeAir, nil
	case string(domain.ModeRoad), "TRUCK":
		return domain.ModeRoad, nil
	case string(domain.ModeRail):
		return domain.ModeRail, nil
	case string(domain.ModeMultimodal), "INTERMODAL":
		return domain.ModeMultimodal, nil
	default:
		return "", domain.Ef(domain.KindValidation, "transport_mode %q is not one of OCEAN, AIR, ROAD, RAIL, MULTIMODAL", s).
			WithDetail("field", FieldTransportMode).
			WithDetail("value", s)
	}
}

// ValidateConfig checks a data source configuration: identity, type,
// connector parameters, and field mapping coverage of the canonical schema.
func ValidateConfig(cfg domain.DataSourceConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return domain.E(domain.KindValidation, "source name is required").WithDetail("field", "name")
	}
	if !connector.KnownType(cfg.SourceType) {
		return domain.Ef(domain.KindValidation, "unknown source type %q", cfg.SourceType).
			WithDetail("field", "source_type")
	}
	if missing := connector.MissingParams(cfg.SourceType, cfg.ConnectionParams); len(missing) > 0 {
		return domain.Ef(domain.KindValidation, "connection parameter %q is required for %s sources", missing[0], cfg.SourceType).
			WithDetail("field", "connection_params."+missing[0])
	}
	covered := make(map[string]bool, len(cfg.FieldMapping))
	for _, canonical := range cfg.FieldMapping {
		covered[strings.TrimSpace(canonical)] = true
	}
	for _, f := range RequiredFields {
		if !covered[f] {
			return domain.Ef(domain.KindValidation, "field mapping must cover %q", f).
				WithDetail("field", "field_mapping."+f)
		}
	}
	return nil
}
