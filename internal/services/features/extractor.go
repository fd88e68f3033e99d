package features

import (
	"math"
)

// SMA returns the mean of the last period points, or 0 when there are fewer.
func SMA(data []float64, period int) float64 {
	if period <= 0 || len(data) < period {
		return 0
	}
	sum := 0.0
	for _, v := range data[len(data)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMA runs an exponential average over the whole series, seeded with data[0].
func EMA(data []float64, period int) float64 {
	if len(data) == 0 {
		return 0
	}
	k := 2 / float64(period+1)
	ema := data[0]
	for _, v := range data[1:] {
		ema = (v-ema)*k + ema
	}
	return ema
}

// LogReturns computes r_t = ln(P_t / P_{t-1}).
// It returns a slice of length len(prices)-1, or nil if insufficient data.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the last
// window returns using the provided number of bars per year.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for _, r := range logReturns[len(logReturns)-window:] {
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	// annualize
	return math.Sqrt(variance * barsPerYear)
}

// BarsPerYear returns the approximate number of bars per year for a sampling
// interval.
func BarsPerYear(interval string) float64 {
	switch interval {
	case "1h", "hourly":
		return 365 * 24
	case "5m":
		return 365 * 24 * 12
	default:
		return 365
	}
}

// PercentChange is the change from the first to the last price, in percent.
func PercentChange(prices []float64) float64 {
	if len(prices) < 2 || prices[0] == 0 {
		return 0
	}
	return (prices[len(prices)-1] - prices[0]) / prices[0] * 100
}

// VolumeRatio compares the mean of the last recent volumes with the mean of
// the baseline volumes before them. It returns 1 when either side is empty.
func VolumeRatio(volumes []float64, recent, baseline int) float64 {
	if recent <= 0 || baseline <= 0 || len(volumes) < recent+baseline {
		return 1
	}
	cur := SMA(volumes, recent)
	base := SMA(volumes[:len(volumes)-recent], baseline)
	if base <= 0 {
		return 1
	}
	return cur / base
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
