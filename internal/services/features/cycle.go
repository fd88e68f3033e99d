package features

import (
	"fmt"
	"math"
	"time"

	"CycleScope/internal/domain/models"
)

// Result is a feature value together with the signal its own rule assigns.
type Result struct {
	Value       float64
	Signal      models.Signal
	Confidence  float64
	Description string
}

const (
	piShortWindow = 111
	piLongWindow  = 350

	// yearly issuance before the 2024 halving
	annualIssuance = 328500

	maxSupply = 21_000_000
)

var genesis = time.Date(2009, 1, 3, 0, 0, 0, 0, time.UTC)

// PiCycleTop compares the 111-day SMA with twice the 350-day SMA.
func PiCycleTop(prices []float64) Result {
	if len(prices) < piLongWindow {
		return Result{Signal: models.SignalNeutral, Description: "insufficient data for pi cycle"}
	}
	long := SMA(prices, piLongWindow) * 2
	if long == 0 {
		return Result{Signal: models.SignalNeutral, Description: "insufficient data for pi cycle"}
	}
	ratio := SMA(prices, piShortWindow) / long

	res := Result{Value: ratio, Description: fmt.Sprintf("111DMA vs 350DMAx2: %.2f%%", ratio*100)}
	switch {
	case ratio >= 0.98:
		res.Signal = models.ParseSignal("sell")
		res.Confidence = math.Min((ratio-0.98)*50, 100)
	case ratio <= 0.5:
		res.Signal = models.ParseSignal("buy")
		res.Confidence = math.Min((0.5-ratio)*100, 100)
	default:
		res.Signal = models.SignalNeutral
		res.Confidence = 50
	}
	return res
}

// DaysSinceGenesis counts whole days since the genesis block, never less than 1.
func DaysSinceGenesis(t time.Time) float64 {
	days := math.Floor(t.Sub(genesis).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// LogRegressionPrice is the rainbow regression line at t.
func LogRegressionPrice(t time.Time) float64 {
	return math.Pow(10, 2.66167*math.Log10(DaysSinceGenesis(t))-17.9184)
}

// RainbowZone is one band of the rainbow chart.
type RainbowZone struct {
	Name       string        `json:"name"`
	Multiplier float64       `json:"multiplier"`
	Signal     models.Signal `json:"signal"`
	Confidence float64       `json:"confidence"`
}

// RainbowZones are ordered from the top band down.
var RainbowZones = []RainbowZone{
	{"Maximum Bubble", 2.5, models.SignalBearish, 95},
	{"Sell Zone", 2.0, models.SignalBearish, 85},
	{"FOMO Zone", 1.5, models.SignalBearish, 70},
	{"Is This A Bubble?", 1.2, models.SignalNeutral, 60},
	{"HODL Zone", 1.0, models.SignalNeutral, 50},
	{"Still Cheap", 0.8, models.SignalBullish, 60},
	{"Accumulation Zone", 0.6, models.SignalBullish, 75},
	{"Buy Zone", 0.4, models.SignalBullish, 85},
	{"Fire Sale", 0.2, models.SignalBullish, 95},
}

// Rainbow is the position of a price within the rainbow bands.
type Rainbow struct {
	Zone            RainbowZone
	Ratio           float64
	RegressionPrice float64
	// Score is ratio/2.5 scaled to 0..100.
	Score float64
}

// Result converts r into the record shape used by sources.
func (r Rainbow) Result() Result {
	return Result{
		Value:       r.Score,
		Signal:      r.Zone.Signal,
		Confidence:  r.Zone.Confidence,
		Description: "Bitcoin is in the " + r.Zone.Name,
	}
}

// RainbowBand places price on the rainbow chart at t. The lowest band whose
// multiplier is at least the price ratio wins; above every band means the top.
func RainbowBand(price float64, t time.Time) Rainbow {
	reg := LogRegressionPrice(t)
	ratio := price / reg

	zone := RainbowZones[0]
	for i := len(RainbowZones) - 1; i >= 0; i-- {
		if ratio <= RainbowZones[i].Multiplier {
			zone = RainbowZones[i]
			break
		}
	}
	return Rainbow{
		Zone:            zone,
		Ratio:           ratio,
		RegressionPrice: reg,
		Score:           Clamp(ratio/RainbowZones[0].Multiplier*100, 0, 100),
	}
}

// MVRV is market cap over realized cap.
func MVRV(marketCap, realizedCap float64) float64 {
	if realizedCap <= 0 {
		return math.NaN()
	}
	return marketCap / realizedCap
}

// StockToFlow approximates the stock-to-flow ratio from circulating supply.
func StockToFlow(supply float64) float64 {
	return supply / annualIssuance
}

// StockToFlowRatio reports the supply-based ratio. The ratio on its own says
// nothing about over- or under-valuation, so its rule is always neutral/60.
func StockToFlowRatio(supply float64) Result {
	ratio := StockToFlow(supply)
	return Result{
		Value:       ratio,
		Signal:      models.SignalNeutral,
		Confidence:  60,
		Description: fmt.Sprintf("S2F ratio %.1f", ratio),
	}
}

// PuellMultiple is daily issuance value over its 365-day average.
func PuellMultiple(dailyIssuanceUSD, ma365IssuanceUSD float64) float64 {
	if ma365IssuanceUSD <= 0 {
		return math.NaN()
	}
	return dailyIssuanceUSD / ma365IssuanceUSD
}

// ATHDistance is how far price sits below the all-time high, in percent
// (0 at the high, negative below it).
func ATHDistance(price, ath float64) float64 {
	if ath <= 0 {
		return 0
	}
	return (price - ath) / ath * 100
}

// NVT is network value over daily on-chain volume. Without volume it
// reports 100.
func NVT(price, txVolumeUSD float64) float64 {
	if txVolumeUSD <= 0 {
		return 100
	}
	return price * maxSupply / txVolumeUSD
}
