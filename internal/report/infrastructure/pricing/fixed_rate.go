package pricing

import (
	"context"
	"errors"
	"math"
)

// FixedRateProvider returns one conversion rate per kWh.
type FixedRateProvider struct {
	rate float64
}

// NewFixedRateProvider constructs the provider.
func NewFixedRateProvider(rate float64) (*FixedRateProvider, error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, errors.New("rate provider: non-finite rate")
	}
	if rate < 0 {
		return nil, errors.New("rate provider: negative rate")
	}
	return &FixedRateProvider{rate: rate}, nil
}

// Rate returns the configured rate.
func (p *FixedRateProvider) Rate(ctx context.Context) (float64, error) {
	_ = ctx
	return p.rate, nil
}
