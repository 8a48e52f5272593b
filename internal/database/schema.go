package database

// SQL schemas for all ClickHouse tables

const (
	// PumpPredictionsTableSQL creates the pump_predictions table
	PumpPredictionsTableSQL = `
		CREATE TABLE IF NOT EXISTS pump_predictions (
			timestamp DateTime64(3),
			request_id String,
			row_index UInt32,
			model_kind LowCardinality(String),
			pump_status UInt8,
			probability_on Nullable(Float64),
			features String
		) ENGINE = MergeTree()
		ORDER BY (timestamp, request_id, row_index)
		PARTITION BY toYYYYMM(timestamp)
		TTL toDateTime(timestamp) + INTERVAL 90 DAY
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		PumpPredictionsTableSQL,
	}
}
