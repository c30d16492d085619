package odds

import (
	"errors"
	"math"
	"testing"
)

func TestImpliedProbability(t *testing.T) {
	tests := []struct {
		name     string
		odds     float64
		expected float64
		delta    float64
	}{
		{"Even money +100", 100, 0.5, 1e-12},
		{"Even money -100", -100, 0.5, 1e-12},
		{"Favorite -150", -150, 0.6, 0.0001},
		{"Underdog +150", 150, 0.4, 0.0001},
		{"Standard -110", -110, 0.5238, 0.0001},
		{"Heavy favorite -1000", -1000, 0.9091, 0.0001},
		{"Long shot +2500", 2500, 0.0385, 0.0001},
		{"Sub-100 consensus +72", 72, 0.5814, 0.0001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ImpliedProbability(tt.odds)
			if math.Abs(result-tt.expected) > tt.delta {
				t.Errorf("ImpliedProbability(%v) = %v, want %v", tt.odds, result, tt.expected)
			}
		})
	}
}

func TestImpliedProbabilityInUnitInterval(t *testing.T) {
	for _, o := range []float64{-100000, -5000, -250, -101, -100, -1, 1, 100, 101, 250, 5000, 100000} {
		p := ImpliedProbability(o)
		if p <= 0 || p >= 1 {
			t.Errorf("ImpliedProbability(%v) = %v, want in (0,1)", o, p)
		}
	}
}

func TestToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		odds     float64
		expected float64
		delta    float64
	}{
		{"Underdog +150", 150, 2.5, 1e-12},
		{"Favorite -150", -150, 1.6667, 0.0001},
		{"Even +100", 100, 2.0, 1e-12},
		{"Even -100", -100, 2.0, 1e-12},
		{"Standard -110", -110, 1.9091, 0.0001},
		{"Underdog +120", 120, 2.2, 1e-12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToDecimal(tt.odds)
			if math.Abs(result-tt.expected) > tt.delta {
				t.Errorf("ToDecimal(%v) = %v, want %v", tt.odds, result, tt.expected)
			}
			if result <= 1 {
				t.Errorf("ToDecimal(%v) = %v, want > 1", tt.odds, result)
			}
		})
	}
}

func TestProfitUnitsPerStake(t *testing.T) {
	tests := []struct {
		odds     float64
		expected float64
	}{
		{150, 1.5},
		{-150, 0.6667},
		{100, 1},
		{-200, 0.5},
	}

	for _, tt := range tests {
		result := ProfitUnitsPerStake(tt.odds)
		if math.Abs(result-tt.expected) > 0.0001 {
			t.Errorf("ProfitUnitsPerStake(%v) = %v, want %v", tt.odds, result, tt.expected)
		}
		// Decimal odds are one plus the profit per unit.
		if math.Abs(ToDecimal(tt.odds)-1-result) > 1e-12 {
			t.Errorf("ToDecimal(%v)-1 != ProfitUnitsPerStake", tt.odds)
		}
	}
}

func TestValidateAmerican(t *testing.T) {
	if err := ValidateAmerican(0); !errors.Is(err, ErrMalformedQuote) {
		t.Errorf("ValidateAmerican(0) = %v, want ErrMalformedQuote", err)
	}
	for _, p := range []int{-110, 100, 250, -5} {
		if err := ValidateAmerican(p); err != nil {
			t.Errorf("ValidateAmerican(%d) = %v, want nil", p, err)
		}
	}
}
