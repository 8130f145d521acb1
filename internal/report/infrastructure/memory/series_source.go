package memory

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"

	report "meterpay/internal/report/domain"
)

type seriesKey struct {
	subject string
	period  report.Period
}

// StaticSeriesSource serves fixed series keyed by subject and period, for demo/testing.
// Unknown keys yield an empty series.
type StaticSeriesSource struct {
	mu   sync.RWMutex
	data map[seriesKey][]float64
}

// NewStaticSeriesSource constructs an empty source.
func NewStaticSeriesSource() *StaticSeriesSource {
	return &StaticSeriesSource{data: make(map[seriesKey][]float64)}
}

// Set stores the series of subjectID for period.
func (s *StaticSeriesSource) Set(subjectID string, period report.Period, series []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[seriesKey{subject: subjectID, period: normalize(period)}] = append([]float64(nil), series...)
}

// FetchSeries returns a copy of the stored series.
func (s *StaticSeriesSource) FetchSeries(ctx context.Context, subjectID string, period report.Period) ([]float64, error) {
	_ = ctx
	if err := period.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]float64(nil), s.data[seriesKey{subject: subjectID, period: normalize(period)}]...), nil
}

// SeededSeriesSource synthesizes plausible consumption seeded by subject and period,
// so the same pair always yields the same series.
type SeededSeriesSource struct{}

// NewSeededSeriesSource constructs a source.
func NewSeededSeriesSource() *SeededSeriesSource {
	return &SeededSeriesSource{}
}

// FetchSeries returns Length() samples in kWh.
func (s *SeededSeriesSource) FetchSeries(ctx context.Context, subjectID string, period report.Period) ([]float64, error) {
	_ = ctx
	if err := period.Validate(); err != nil {
		return nil, err
	}
	period = normalize(period)
	h := fnv.New64a()
	_, _ = h.Write([]byte(subjectID))
	_, _ = h.Write([]byte(string(period.Granularity) + period.Slug()))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	low, span := 5.0, 20.0
	if period.Granularity == report.GranularityMonthly {
		low, span = 150.0, 600.0
	}
	series := make([]float64, period.Length())
	for i := range series {
		series[i] = report.Round2(low + rng.Float64()*span)
	}
	return series, nil
}

func normalize(period report.Period) report.Period {
	if period.Granularity == report.GranularityMonthly {
		period.Month = 0
	}
	return period
}
