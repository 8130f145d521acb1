package pricing

import (
	"context"
	"math"
	"testing"
)

func TestFixedRateProvider(t *testing.T) {
	if _, err := NewFixedRateProvider(-1); err == nil {
		t.Fatalf("expected negative rate error")
	}
	for _, rate := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := NewFixedRateProvider(rate); err == nil {
			t.Fatalf("expected error for rate %v", rate)
		}
	}
	provider, err := NewFixedRateProvider(8.5)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	rate, err := provider.Rate(context.Background())
	if err != nil || rate != 8.5 {
		t.Fatalf("expected 8.5, got %v (%v)", rate, err)
	}
}
