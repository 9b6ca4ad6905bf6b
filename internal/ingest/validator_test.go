package ingest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

func stdMapping() map[string]string {
	return map[string]string{
		"orig":    FieldOrigin,
		"dest":    FieldDestination,
		"price":   FieldFreightCharge,
		"ccy":     FieldCurrencyCode,
		"date":    FieldRecordDate,
		"mode":    FieldTransportMode,
		"carrier": FieldCarrier,
		"ref":     FieldRecordID,
	}
}

func stdRaw(overrides map[string]any) map[string]any {
	raw := map[string]any{
		"orig":    "Shanghai",
		"dest":    "Rotterdam",
		"price":   "1,250.50",
		"ccy":     "usd",
		"date":    "2024-03-01",
		"mode":    "Sea",
		"carrier": " Maersk ",
		"ref":     "Q-1001",
	}
	for k, v := range overrides {
		if v == nil {
			delete(raw, k)
			continue
		}
		raw[k] = v
	}
	return raw
}

func fixedValidator(mapping map[string]string, dateFormat string) *Validator {
	v := NewValidator(mapping, dateFormat)
	v.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return v
}

func TestValidateRecordHappyPath(t *testing.T) {
	t.Parallel()
	v := fixedValidator(stdMapping(), "")

	rec, err := v.ValidateRecord(stdRaw(nil))
	require.NoError(t, err)

	assert.Equal(t, "Shanghai", rec.Origin)
	assert.Equal(t, "Rotterdam", rec.Destination)
	assert.True(t, rec.FreightCharge.Equal(decimal.RequireFromString("1250.50")), "thousands separators are stripped")
	assert.Equal(t, "USD", rec.CurrencyCode, "currency is upper-cased")
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), rec.RecordDate)
	assert.Equal(t, domain.ModeOcean, rec.TransportMode, "SEA aliases to OCEAN")
	assert.Equal(t, "Maersk", rec.Carrier)
	assert.Equal(t, "Q-1001", rec.SourceRecordID)
	assert.Equal(t, domain.QualityValid, rec.QualityFlag)
	assert.Empty(t, rec.QualityReasons)
}

func TestValidateRecordStructuralErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		overrides map[string]any
		field     string
	}{
		{"missing origin", map[string]any{"orig": nil}, "origin"},
		{"blank destination", map[string]any{"dest": "   "}, "destination"},
		{"missing charge", map[string]any{"price": nil}, "freight_charge"},
		{"charge not a number", map[string]any{"price": "12 USD"}, "freight_charge"},
		{"unparseable date", map[string]any{"date": "March 1st"}, "record_date"},
		{"unknown transport mode", map[string]any{"mode": "PIGEON"}, "transport_mode"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v := fixedValidator(stdMapping(), "")
			_, err := v.ValidateRecord(stdRaw(tc.overrides))
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.KindValidation))
			field, ok := domain.Detail(err, "field")
			require.True(t, ok)
			assert.Equal(t, tc.field, field)
		})
	}
}

func TestValidateRecordQualityRules(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		overrides map[string]any
		flag      domain.QualityStatus
		reason    string
	}{
		{
			"same origin and destination",
			map[string]any{"dest": "shanghai"},
			domain.QualityWarning,
			"origin and destination are the same",
		},
		{
			"charge below one",
			map[string]any{"price": "0.42"},
			domain.QualityWarning,
			"freight charge is below 1",
		},
		{
			"charge above ceiling",
			map[string]any{"price": "250000"},
			domain.QualityWarning,
			"freight charge exceeds 100000",
		},
		{
			"zero charge",
			map[string]any{"price": "0"},
			domain.QualityInvalid,
			"freight charge is not positive",
		},
		{
			"negative charge",
			map[string]any{"price": "-15.00"},
			domain.QualityInvalid,
			"freight charge is not positive",
		},
		{
			"future date",
			map[string]any{"date": "2030-01-01"},
			domain.QualityInvalid,
			"record date is in the future",
		},
		{
			"currency not ISO 4217",
			map[string]any{"ccy": "US"},
			domain.QualityInvalid,
			"currency code is not ISO 4217",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v := fixedValidator(stdMapping(), "")
			rec, err := v.ValidateRecord(stdRaw(tc.overrides))
			require.NoError(t, err)
			assert.Equal(t, tc.flag, rec.QualityFlag)
			assert.Contains(t, rec.QualityReasons, tc.reason)
		})
	}
}

func TestValidateRecordInvalidOutranksWarning(t *testing.T) {
	t.Parallel()
	v := fixedValidator(stdMapping(), "")

	rec, err := v.ValidateRecord(stdRaw(map[string]any{
		"dest":  "Shanghai",
		"price": "-5",
	}))
	require.NoError(t, err)

	assert.Equal(t, domain.QualityInvalid, rec.QualityFlag)
	assert.Contains(t, rec.QualityReasons, "freight charge is not positive")
	assert.Contains(t, rec.QualityReasons, "origin and destination are the same",
		"warning reasons ride along for diagnostics")
}

func TestValidateRecordDateHandling(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		dateFormat string
		value      any
		want       time.Time
	}{
		{"rfc3339", "", "2024-03-01T08:30:00Z", time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)},
		{"datetime no zone", "", "2024-03-01 08:30:00", time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)},
		{"slash date", "", "2024/03/01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"pinned european format", "02/01/2006", "01/03/2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"native time value", "", time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600)), time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v := fixedValidator(stdMapping(), tc.dateFormat)
			rec, err := v.ValidateRecord(stdRaw(map[string]any{"date": tc.value}))
			require.NoError(t, err)
			assert.True(t, rec.RecordDate.Equal(tc.want), "got %s want %s", rec.RecordDate, tc.want)
		})
	}
}

func TestValidateRecordModeAliases(t *testing.T) {
	t.Parallel()
	tests := []struct {
		value string
		want  domain.TransportMode
	}{
		{"OCEAN", domain.ModeOcean},
		{"sea", domain.ModeOcean},
		{"Maritime", domain.ModeOcean},
		{"AIR", domain.ModeAir},
		{"truck", domain.ModeRoad},
		{"ROAD", domain.ModeRoad},
		{"rail", domain.ModeRail},
		{"MULTIMODAL", domain.ModeMultimodal},
		{"intermodal", domain.ModeMultimodal},
	}
	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			t.Parallel()
			v := fixedValidator(stdMapping(), "")
			rec, err := v.ValidateRecord(stdRaw(map[string]any{"date": "2024-03-01", "mode": tc.value}))
			require.NoError(t, err)
			assert.Equal(t, tc.want, rec.TransportMode)
		})
	}
}

func TestValidateRecordNumericCharge(t *testing.T) {
	t.Parallel()
	v := fixedValidator(stdMapping(), "")

	rec, err := v.ValidateRecord(stdRaw(map[string]any{"price": 1250.5}))
	require.NoError(t, err)
	assert.True(t, rec.FreightCharge.Equal(decimal.RequireFromString("1250.5")),
		"JSON numbers arrive as float64")
}

func validConfig() domain.DataSourceConfig {
	return domain.DataSourceConfig{
		Name:       "ocean quotes",
		SourceType: domain.SourceCSV,
		ConnectionParams: map[string]any{
			"file_path": "/data/quotes.csv",
		},
		FieldMapping: map[string]string{
			"orig":  FieldOrigin,
			"dest":  FieldDestination,
			"price": FieldFreightCharge,
			"ccy":   FieldCurrencyCode,
			"date":  FieldRecordDate,
			"mode":  FieldTransportMode,
		},
	}
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateConfig(validConfig()))

	tests := []struct {
		name   string
		mutate func(*domain.DataSourceConfig)
		field  string
	}{
		{
			"missing name",
			func(c *domain.DataSourceConfig) { c.Name = " " },
			"name",
		},
		{
			"unknown source type",
			func(c *domain.DataSourceConfig) { c.SourceType = "FTP" },
			"source_type",
		},
		{
			"missing connection param",
			func(c *domain.DataSourceConfig) { delete(c.ConnectionParams, "file_path") },
			"connection_params.file_path",
		},
		{
			"mapping misses record_date",
			func(c *domain.DataSourceConfig) { delete(c.FieldMapping, "date") },
			"field_mapping.record_date",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(&cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.KindValidation))
			field, ok := domain.Detail(err, "field")
			require.True(t, ok)
			assert.Equal(t, tc.field, field)
		})
	}
}
