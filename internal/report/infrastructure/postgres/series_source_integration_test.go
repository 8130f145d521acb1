package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	report "meterpay/internal/report/domain"
)

func TestSeriesSourceReadsDayStatistics(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if !tableExists(db, defaultStatisticsTable) {
		t.Skip("analytics_statistics missing; run migrations")
	}

	ctx := context.Background()
	subjectID := "meter-report-001"
	monthStart := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	_, _ = db.ExecContext(ctx, "DELETE FROM analytics_statistics WHERE subject_id = $1", subjectID)

	for day, charge := range map[int]float64{1: 12.5, 15: 7.25, 31: 3} {
		periodStart := monthStart.AddDate(0, 0, day-1)
		if err := insertDayRow(ctx, db, subjectID, periodStart, charge); err != nil {
			t.Fatalf("seed day %d: %v", day, err)
		}
	}

	source, err := NewSeriesSource(db)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	series, err := source.FetchSeries(ctx, subjectID, report.DailyPeriod(2024, time.May))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(series) != 31 {
		t.Fatalf("expected 31 samples, got %d", len(series))
	}
	if series[0] != 12.5 || series[14] != 7.25 || series[30] != 3 || series[1] != 0 {
		t.Fatalf("unexpected series: %v", series)
	}

	other, err := source.FetchSeries(ctx, "meter-report-absent", report.DailyPeriod(2024, time.May))
	if err != nil {
		t.Fatalf("fetch other subject: %v", err)
	}
	for _, v := range other {
		if v != 0 {
			t.Fatalf("expected no rows for another subject, got %v", other)
		}
	}
}

func insertDayRow(ctx context.Context, db *sql.DB, subjectID string, periodStart time.Time, charge float64) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO analytics_statistics (
	subject_id,
	time_type,
	time_key,
	period_start,
	statistic_id,
	is_completed,
	completed_at,
	charge_kwh,
	discharge_kwh,
	earnings,
	carbon_reduction
) VALUES (
	$1, 'DAY', $2, $3, $4, TRUE, $5, $6, 0, 0, 0
)`, subjectID, periodStart.Format("2006-01-02"), periodStart, fmt.Sprintf("DAY-%s", periodStart.Format("20060102")), periodStart.Add(24*time.Hour), charge)
	return err
}

func tableExists(db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRow(`
SELECT EXISTS (
	SELECT 1
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name = $1
)`, table).Scan(&exists)
	if err != nil {
		return false
	}
	return exists
}
