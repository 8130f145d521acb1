package report

import (
	"math"

	"github.com/shopspring/decimal"
)

// Summary is the average and maximum of one series.
type Summary struct {
	Average float64
	Maximum float64
}

// Report is the aggregated view of a period: units and derived amounts, plus their summaries.
type Report struct {
	Period        Period
	Rate          float64
	Units         []float64
	Amounts       []float64
	UnitsSummary  Summary
	AmountSummary Summary
}

// Sample is one row of the per-sample block.
type Sample struct {
	Label  string
	Units  float64
	Amount float64
}

// Samples zips labels, units and amounts.
func (r Report) Samples() []Sample {
	labels := r.Period.SampleLabels()
	samples := make([]Sample, 0, len(r.Units))
	for i, units := range r.Units {
		sample := Sample{Units: units}
		if i < len(labels) {
			sample.Label = labels[i]
		}
		if i < len(r.Amounts) {
			sample.Amount = r.Amounts[i]
		}
		samples = append(samples, sample)
	}
	return samples
}

// Build derives amounts and summaries from units at rate.
func Build(period Period, units []float64, rate float64) (Report, error) {
	if err := period.Validate(); err != nil {
		return Report{}, err
	}
	if rate < 0 || !finite(rate) {
		return Report{}, ErrInvalidRate
	}
	series := make([]float64, period.Length())
	for i := range series {
		if i >= len(units) {
			break
		}
		if !finite(units[i]) {
			return Report{}, ErrInvalidSample
		}
		if units[i] < 0 {
			return Report{}, ErrNegativeSample
		}
		series[i] = Round2(units[i])
	}
	r := decimal.NewFromFloat(rate)
	amounts := make([]float64, len(series))
	for i, value := range series {
		amounts[i] = decimal.NewFromFloat(value).Mul(r).Round(2).InexactFloat64()
	}
	return Report{
		Period:        period,
		Rate:          rate,
		Units:         series,
		Amounts:       amounts,
		UnitsSummary:  Summarize(series),
		AmountSummary: Summarize(amounts),
	}, nil
}

// Summarize computes round2(mean) and round2(max). An empty series summarizes to zero.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sum := decimal.Zero
	max := values[0]
	for _, value := range values {
		sum = sum.Add(decimal.NewFromFloat(value))
		if value > max {
			max = value
		}
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(values))))
	return Summary{
		Average: avg.Round(2).InexactFloat64(),
		Maximum: Round2(max),
	}
}

// Round2 rounds half away from zero to two decimals.
func Round2(value float64) float64 {
	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}

func finite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
