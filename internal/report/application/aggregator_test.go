package application

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	report "meterpay/internal/report/domain"
)

type stubSource struct {
	series  []float64
	err     error
	calls   int
	subject string
}

func (s *stubSource) FetchSeries(_ context.Context, subjectID string, _ report.Period) ([]float64, error) {
	s.calls++
	s.subject = subjectID
	return s.series, s.err
}

type stubRate float64

func (r stubRate) Rate(context.Context) (float64, error) { return float64(r), nil }

func TestAggregatePadsToPeriodLength(t *testing.T) {
	source := &stubSource{series: []float64{12.5, 7.25}}
	agg, err := NewAggregator(source, stubRate(8))
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	got, err := agg.Aggregate(context.Background(), "site-1", report.DailyPeriod(2024, time.February))
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(got.Units) != 31 {
		t.Fatalf("expected 31 samples, got %d", len(got.Units))
	}
	if got.Units[2] != 0 || got.Amounts[0] != 100 || got.Amounts[1] != 58 {
		t.Fatalf("unexpected series: %v / %v", got.Units[:3], got.Amounts[:3])
	}
	if got.UnitsSummary.Maximum != 12.5 || got.AmountSummary.Maximum != 100 {
		t.Fatalf("unexpected summary: %+v %+v", got.UnitsSummary, got.AmountSummary)
	}
	if source.subject != "site-1" {
		t.Fatalf("expected subject to reach the source, got %q", source.subject)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	source := &stubSource{series: []float64{3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}}
	agg, err := NewAggregator(source, stubRate(7.5))
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	period := report.MonthlyPeriod(2024)
	first, err := agg.Aggregate(context.Background(), "site-1", period)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := agg.Aggregate(context.Background(), "site-1", period)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical reports")
	}
	if source.calls != 2 {
		t.Fatalf("expected recomputation, got %d calls", source.calls)
	}
}

func TestAggregateRejectsInvalidPeriod(t *testing.T) {
	source := &stubSource{}
	agg, _ := NewAggregator(source, stubRate(8))
	if _, err := agg.Aggregate(context.Background(), "site-1", report.Period{Granularity: report.GranularityDaily, Year: 2024}); !errors.Is(err, report.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	if _, err := agg.Aggregate(context.Background(), "", report.MonthlyPeriod(2024)); !errors.Is(err, report.ErrEmptySubject) || !IsInvalidRequest(err) {
		t.Fatalf("expected ErrEmptySubject, got %v", err)
	}
	if source.calls != 0 {
		t.Fatalf("source must not be called for invalid periods")
	}
}

func TestAggregateWrapsSourceError(t *testing.T) {
	boom := errors.New("boom")
	agg, _ := NewAggregator(&stubSource{err: boom}, stubRate(8))
	if _, err := agg.Aggregate(context.Background(), "site-1", report.MonthlyPeriod(2024)); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
}
