package httpserver_test

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/ingest"
)

// pipelineStub suffices for handlers that never run ingestion synchronously.
func pipelineStub() ingest.Pipeline { return ingest.Pipeline{} }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func activeCSVSource(id string) domain.DataSourceConfig {
	return domain.DataSourceConfig{
		ID:         id,
		Name:       "spot rates file",
		SourceType: domain.SourceCSV,
		ConnectionParams: map[string]any{
			"file_path": "/data/rates.csv",
		},
		FieldMapping: map[string]string{
			"orig":  "origin",
			"dest":  "destination",
			"price": "freight_charge",
			"ccy":   "currency_code",
			"date":  "record_date",
			"mode":  "transport_mode",
		},
		Status: domain.SourceActive,
	}
}

func weeklyRecords() []domain.FreightRecord {
	mk := func(date time.Time, charge string) domain.FreightRecord {
		return domain.FreightRecord{
			RecordDate:    date,
			Origin:        "NYC",
			Destination:   "LAX",
			FreightCharge: decimal.RequireFromString(charge),
			CurrencyCode:  "USD",
			TransportMode: domain.ModeRoad,
		}
	}
	return []domain.FreightRecord{
		mk(day(2023, 1, 2), "1000"),
		mk(day(2023, 1, 9), "1100"),
	}
}
