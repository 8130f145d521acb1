package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meterpay/internal/observability/metrics"
	report "meterpay/internal/report/domain"
)

// SeriesSource yields the units series of one subject (meter or site) for a period.
// Implementations must return identical series for identical subjects and periods.
type SeriesSource interface {
	FetchSeries(ctx context.Context, subjectID string, period report.Period) ([]float64, error)
}

// RateProvider yields the conversion rate from units to currency.
type RateProvider interface {
	Rate(ctx context.Context) (float64, error)
}

// Aggregator builds reports from an injected source.
type Aggregator struct {
	source SeriesSource
	rates  RateProvider
}

// NewAggregator constructs an aggregator.
func NewAggregator(source SeriesSource, rates RateProvider) (*Aggregator, error) {
	if source == nil {
		return nil, errors.New("report aggregator: nil series source")
	}
	if rates == nil {
		return nil, errors.New("report aggregator: nil rate provider")
	}
	return &Aggregator{source: source, rates: rates}, nil
}

// Aggregate fetches the subject's units for period and derives amounts and summaries.
func (a *Aggregator) Aggregate(ctx context.Context, subjectID string, period report.Period) (report.Report, error) {
	started := time.Now()
	result, err := a.aggregate(ctx, subjectID, period)
	outcome := metrics.ResultSuccess
	switch {
	case IsInvalidRequest(err):
		outcome = metrics.ResultInvalid
	case err != nil:
		outcome = metrics.ResultError
	}
	metrics.ObserveReportAggregate(string(period.Granularity), outcome, time.Since(started))
	return result, err
}

// IsInvalidRequest reports whether err stems from the caller's subject or period.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, report.ErrEmptySubject) ||
		errors.Is(err, report.ErrInvalidGranularity) ||
		errors.Is(err, report.ErrInvalidMonth) ||
		errors.Is(err, report.ErrInvalidYear)
}

func (a *Aggregator) aggregate(ctx context.Context, subjectID string, period report.Period) (report.Report, error) {
	if subjectID == "" {
		return report.Report{}, report.ErrEmptySubject
	}
	if err := period.Validate(); err != nil {
		return report.Report{}, err
	}
	units, err := a.source.FetchSeries(ctx, subjectID, period)
	if err != nil {
		return report.Report{}, fmt.Errorf("report aggregator: fetch series: %w", err)
	}
	rate, err := a.rates.Rate(ctx)
	if err != nil {
		return report.Report{}, fmt.Errorf("report aggregator: rate: %w", err)
	}
	return report.Build(period, units, rate)
}
