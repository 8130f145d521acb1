package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "db_open_connections",
			Help: "Open connections to the telemetry database",
		},
		func() float64 {
			return float64(db.Stats().OpenConnections)
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "telemetry_day_rows",
			Help: "Completed day statistics available to reports",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM analytics_statistics WHERE time_type = 'DAY' AND is_completed")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
