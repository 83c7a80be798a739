package indicators

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name    string
		prices  []float64
		period  int
		wantMin float64
		wantMax float64
	}{
		{
			name:    "uptrending prices - high RSI",
			prices:  []float64{40, 41, 42, 43, 44, 45, 46, 47, 48, 49, 50, 51, 52, 53, 54, 55},
			period:  14,
			wantMin: 99.9,
			wantMax: 100,
		},
		{
			name:    "downtrending prices - low RSI",
			prices:  []float64{55, 54, 53, 52, 51, 50, 49, 48, 47, 46, 45, 44, 43, 42, 41, 40},
			period:  14,
			wantMin: 0,
			wantMax: 0.1,
		},
		{
			name:    "mixed prices - mid RSI",
			prices:  []float64{50, 51, 50, 52, 51, 53, 52, 54, 53, 55, 54, 56, 55, 57, 56, 58},
			period:  14,
			wantMin: 40,
			wantMax: 80,
		},
		{
			name:    "too few prices returns neutral",
			prices:  []float64{100, 101, 102},
			period:  14,
			wantMin: 50,
			wantMax: 50,
		},
		{
			name:    "flat prices resolve to 100 via zero-loss branch",
			prices:  []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100},
			period:  14,
			wantMin: 100,
			wantMax: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RSI(tt.prices, tt.period)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("RSI() = %v, want in [%v, %v]", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestRSI_Bounds(t *testing.T) {
	// RSI must stay in [0, 100] for arbitrary series.
	series := [][]float64{
		{1, 2, 1, 3, 1, 4, 1, 5, 1, 6, 1, 7, 1, 8, 1, 9, 1, 10},
		{100, 50, 100, 50, 100, 50, 100, 50, 100, 50, 100, 50, 100, 50, 100, 50},
		{0.001, 0.002, 0.0015, 0.003, 0.001, 0.004, 0.002, 0.005, 0.001, 0.006, 0.003, 0.002, 0.004, 0.001, 0.005, 0.002},
	}
	for _, prices := range series {
		got := RSI(prices, 14)
		if got < 0 || got > 100 {
			t.Errorf("RSI() = %v out of [0, 100] for %v", got, prices)
		}
	}
}

func TestWilderRSISeries(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}

	series := WilderRSISeries(prices, 14)
	if len(series) != len(prices) {
		t.Fatalf("series length = %d, want %d", len(series), len(prices))
	}

	// Warm-up indices carry the neutral default.
	for i := 0; i < 14; i++ {
		if series[i] != 50 {
			t.Errorf("series[%d] = %v, want 50 during warm-up", i, series[i])
		}
	}

	// Steady uptrend keeps Wilder RSI pinned at 100 (no losses).
	for i := 14; i < len(series); i++ {
		if series[i] != 100 {
			t.Errorf("series[%d] = %v, want 100 for pure uptrend", i, series[i])
		}
	}
}

func TestWilderRSISeries_Bounds(t *testing.T) {
	prices := make([]float64, 100)
	for i := range prices {
		// Deterministic zig-zag with drift.
		prices[i] = 100 + float64(i%7) - float64(i%3) + float64(i)*0.1
	}
	for i, v := range WilderRSISeries(prices, 14) {
		if v < 0 || v > 100 {
			t.Errorf("series[%d] = %v out of [0, 100]", i, v)
		}
	}
}

func TestSMA(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		period int
		want   float64
	}{
		{name: "simple 5-day SMA", prices: []float64{10, 20, 30, 40, 50}, period: 5, want: 30},
		{name: "3-day SMA from longer series", prices: []float64{10, 20, 30, 40, 50}, period: 3, want: 40},
		{name: "period too long returns last price", prices: []float64{10, 20}, period: 5, want: 20},
		{name: "empty series returns zero", prices: nil, period: 5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SMA(tt.prices, tt.period)
			if got != tt.want {
				t.Errorf("SMA() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEMASeries(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14}
	series := EMASeries(prices, 3)

	if len(series) != len(prices) {
		t.Fatalf("series length = %d, want %d", len(series), len(prices))
	}
	if series[0] != prices[0] {
		t.Errorf("series[0] = %v, want seed %v", series[0], prices[0])
	}

	// Manual recursion with multiplier 2/(3+1) = 0.5.
	want := 10.0
	for i := 1; i < len(prices); i++ {
		want = (prices[i]-want)*0.5 + want
		if !almostEqual(series[i], want, 1e-12) {
			t.Errorf("series[%d] = %v, want %v", i, series[i], want)
		}
	}
}

func TestMACD(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + float64(i)*0.5
	}

	line, signal, histogram := MACD(prices, 12, 26, 9)

	if line <= 0 {
		t.Errorf("MACD line = %v, want positive for an uptrend", line)
	}
	if !almostEqual(histogram, line-signal, 1e-12) {
		t.Errorf("histogram = %v, want line-signal = %v", histogram, line-signal)
	}

	// The signal line must come from a real EMA of the MACD series, so in
	// a steady trend it lags the line.
	if signal >= line {
		t.Errorf("signal %v should lag MACD line %v in steady uptrend", signal, line)
	}
}

func TestBollinger(t *testing.T) {
	prices := []float64{20, 21, 22, 21, 20, 22, 23, 21, 20, 22, 21, 23, 22, 21, 20, 22, 23, 22, 21, 20}

	upper, middle, lower := Bollinger(prices, 20, 2)

	if lower > middle || middle > upper {
		t.Errorf("band ordering violated: lower=%v middle=%v upper=%v", lower, middle, upper)
	}

	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	if !almostEqual(middle, sum/20, 1e-9) {
		t.Errorf("middle = %v, want SMA %v", middle, sum/20)
	}
}

func TestBollinger_ShortInput(t *testing.T) {
	upper, middle, lower := Bollinger([]float64{100, 102}, 20, 2)
	if middle != 102 || !almostEqual(upper, 102*1.02, 1e-9) || !almostEqual(lower, 102*0.98, 1e-9) {
		t.Errorf("short input defaults = (%v, %v, %v), want close ±2%%", upper, middle, lower)
	}
	if lower > middle || middle > upper {
		t.Errorf("band ordering violated on defaults")
	}
}

func TestStochastic(t *testing.T) {
	tests := []struct {
		name   string
		highs  []float64
		lows   []float64
		closes []float64
		wantK  float64
	}{
		{
			name:   "close at highest high",
			highs:  []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23},
			lows:   []float64{9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22},
			closes: []float64{9.5, 10.5, 11.5, 12.5, 13.5, 14.5, 15.5, 16.5, 17.5, 18.5, 19.5, 20.5, 21.5, 23},
			wantK:  100,
		},
		{
			name:   "close at lowest low",
			highs:  []float64{23, 22, 21, 20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10},
			lows:   []float64{22, 21, 20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10, 9},
			closes: []float64{22.5, 21.5, 20.5, 19.5, 18.5, 17.5, 16.5, 15.5, 14.5, 13.5, 12.5, 11.5, 10.5, 9},
			wantK:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, d := Stochastic(tt.highs, tt.lows, tt.closes, 14)
			if !almostEqual(k, tt.wantK, 1e-9) {
				t.Errorf("Stochastic() k = %v, want %v", k, tt.wantK)
			}
			if d != k {
				t.Errorf("Stochastic() d = %v, want raw k pass-through %v", d, k)
			}
		})
	}
}

func TestStochastic_Neutral(t *testing.T) {
	k, d := Stochastic([]float64{10, 11}, []float64{9, 10}, []float64{9.5, 10.5}, 14)
	if k != 50 || d != 50 {
		t.Errorf("short input = (%v, %v), want neutral 50/50", k, d)
	}
}

func TestATR(t *testing.T) {
	// Constant range of 2 per bar, no gaps: ATR equals 2.
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := range highs {
		highs[i] = 102
		lows[i] = 100
		closes[i] = 101
	}

	got := ATR(highs, lows, closes, 14)
	if !almostEqual(got, 2, 1e-9) {
		t.Errorf("ATR() = %v, want 2", got)
	}

	if got := ATR(highs[:5], lows[:5], closes[:5], 14); got != 0 {
		t.Errorf("ATR() short input = %v, want 0", got)
	}
}

func TestADX(t *testing.T) {
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := range highs {
		highs[i] = 100 + float64(i)
		lows[i] = 99 + float64(i)
		closes[i] = 99.5 + float64(i)
	}

	// Pure uptrend: all directional movement is positive, ratio is 100.
	got := ADX(highs, lows, closes, 14)
	if !almostEqual(got, 100, 1e-9) {
		t.Errorf("ADX() = %v, want 100 for pure uptrend", got)
	}

	// Flat bars produce no directional movement.
	for i := range highs {
		highs[i], lows[i], closes[i] = 101, 100, 100.5
	}
	if got := ADX(highs, lows, closes, 14); got != 0 {
		t.Errorf("ADX() flat = %v, want 0", got)
	}
}

func TestWilliamsR(t *testing.T) {
	n := 14
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := range highs {
		highs[i] = 110
		lows[i] = 100
		closes[i] = 105
	}

	// Close at the top of the range gives 0; at the bottom gives -100.
	closes[n-1] = 110
	if got := WilliamsR(highs, lows, closes, 14); !almostEqual(got, 0, 1e-9) {
		t.Errorf("WilliamsR() at high = %v, want 0", got)
	}
	closes[n-1] = 100
	if got := WilliamsR(highs, lows, closes, 14); !almostEqual(got, -100, 1e-9) {
		t.Errorf("WilliamsR() at low = %v, want -100", got)
	}

	if got := WilliamsR(highs[:3], lows[:3], closes[:3], 14); got != -50 {
		t.Errorf("WilliamsR() short input = %v, want -50", got)
	}
}

func TestRollingVolatility(t *testing.T) {
	returns := make([]float64, 25)
	for i := range returns {
		returns[i] = 0.01
	}

	// RMS of a constant is that constant.
	if got := RollingVolatility(returns, 20); !almostEqual(got, 0.01, 1e-12) {
		t.Errorf("RollingVolatility() = %v, want 0.01", got)
	}

	if got := RollingVolatility(returns[:10], 20); got != 0 {
		t.Errorf("RollingVolatility() short input = %v, want 0", got)
	}
}

func TestStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	// Known population standard deviation of this series is 2.
	if got := StdDev(values, 8); !almostEqual(got, 2, 1e-9) {
		t.Errorf("StdDev() = %v, want 2", got)
	}
	if got := StdDev(values, 20); got != 0 {
		t.Errorf("StdDev() short input = %v, want 0", got)
	}
}
