package features

import "CycleScope/internal/domain/models"

// FeePressure averages the three recommended fee tiers (sat/vB).
func FeePressure(fastest, halfHour, hour float64) float64 {
	return (fastest + halfHour + hour) / 3
}

// CongestionScore rates mempool load from 0 to 100 using transaction count,
// virtual size in bytes and the fastest recommended fee.
func CongestionScore(count int, vsize, fastestFee float64) float64 {
	score := 0.0

	switch {
	case count > 100_000:
		score += 40
	case count > 50_000:
		score += 30
	case count > 20_000:
		score += 20
	case count > 10_000:
		score += 10
	}

	vsizeMB := vsize / 1_000_000
	switch {
	case vsizeMB > 300:
		score += 30
	case vsizeMB > 150:
		score += 20
	case vsizeMB > 50:
		score += 10
	}

	switch {
	case fastestFee > 100:
		score += 30
	case fastestFee > 50:
		score += 20
	case fastestFee > 20:
		score += 10
	}

	if score > 100 {
		return 100
	}
	return score
}

// Congestion applies the congestion rule to CongestionScore: above 70 is
// bearish, below 30 bullish, neutral otherwise, always at confidence 60.
func Congestion(count int, vsize, fastestFee float64) Result {
	score := CongestionScore(count, vsize, fastestFee)
	res := Result{Value: score, Signal: models.SignalNeutral, Confidence: 60, Description: "moderate"}
	switch {
	case score > 70:
		res.Signal, res.Description = models.SignalBearish, "high"
	case score < 30:
		res.Signal, res.Description = models.SignalBullish, "low"
	case score <= 40:
		res.Description = "low"
	}
	return res
}

// Funding weights for the venues that report BTC perpetual funding.
const (
	BinanceFundingWeight = 0.6
	BybitFundingWeight   = 0.4
)

// WeightedFunding blends per-period funding rates and returns percent.
func WeightedFunding(binance, bybit float64) float64 {
	return (binance*BinanceFundingWeight + bybit*BybitFundingWeight) * 100
}
