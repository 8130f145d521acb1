package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	report "meterpay/internal/report/domain"
)

const defaultStatisticsTable = "analytics_statistics"

// SeriesSource reads completed DAY/MONTH statistics of one subject as report units.
type SeriesSource struct {
	db    *sql.DB
	table string
}

// SourceOption configures the source.
type SourceOption func(*SeriesSource)

// WithTable overrides the statistics table name.
func WithTable(table string) SourceOption {
	return func(s *SeriesSource) {
		if table != "" {
			s.table = table
		}
	}
}

// NewSeriesSource constructs a source.
func NewSeriesSource(db *sql.DB, opts ...SourceOption) (*SeriesSource, error) {
	if db == nil {
		return nil, errors.New("series source: nil db")
	}
	source := &SeriesSource{db: db, table: defaultStatisticsTable}
	for _, opt := range opts {
		opt(source)
	}
	return source, nil
}

// FetchSeries returns one value per sample slot; slots without a completed row stay 0.
func (s *SeriesSource) FetchSeries(ctx context.Context, subjectID string, period report.Period) ([]float64, error) {
	if subjectID == "" {
		return nil, report.ErrEmptySubject
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	timeType := "DAY"
	if period.Granularity == report.GranularityMonthly {
		timeType = "MONTH"
	}
	start, end := period.Range()

	query := fmt.Sprintf(`
SELECT period_start, charge_kwh
FROM %s
WHERE subject_id = $1 AND time_type = $2 AND is_completed = TRUE
	AND period_start >= $3 AND period_start < $4
ORDER BY period_start ASC`, s.table)

	rows, err := s.db.QueryContext(ctx, query, subjectID, timeType, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := make([]float64, period.Length())
	for rows.Next() {
		var periodStart time.Time
		var charge float64
		if err := rows.Scan(&periodStart, &charge); err != nil {
			return nil, err
		}
		idx := slot(period, periodStart.UTC())
		if idx < 0 || idx >= len(series) {
			continue
		}
		series[idx] = charge
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return series, nil
}

func slot(period report.Period, periodStart time.Time) int {
	if period.Granularity == report.GranularityMonthly {
		return int(periodStart.Month()) - 1
	}
	return periodStart.Day() - 1
}
