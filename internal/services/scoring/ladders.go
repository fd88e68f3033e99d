package scoring

import "CycleScope/internal/domain/models"

const (
	bull    = models.SignalBullish
	bear    = models.SignalBearish
	neutral = models.SignalNeutral
)

// DefaultLadders returns a fresh copy of the built-in threshold ladders.
// Band order matters: the first matching band decides the signal.
func DefaultLadders() map[string]Ladder {
	return map[string]Ladder{
		IDFearGreed: {
			Bands: []Band{below(25, bull), above(75, bear), below(45, bull), above(55, bear)},
			Confidence: tieredConfidence(
				tier{20, 80, 90},
				tier{30, 70, 75},
				tier{40, 60, 60},
			),
		},
		IDMVRV: {
			Bands: []Band{below(0, bull), below(1, bull), above(7, bear), above(3.5, bear)},
			Confidence: tieredConfidence(
				tier{-0.5, 5, 90},
				tier{0.5, 3, 75},
				tier{1, 2, 60},
			),
		},
		IDNUPL: {
			Bands: []Band{below(0, bull), below(0.25, bull), above(0.75, bear), above(0.5, bear)},
			Confidence: tieredConfidence(
				tier{-0.25, 0.9, 90},
				tier{0, 0.75, 75},
				tier{0.25, 0.5, 60},
			),
		},
		// pi-cycle is a 111DMA / (2 x 350DMA) ratio; a ratio near zero means the
		// short average sits far below, which this ladder reads as bearish.
		IDPiCycle:     {Bands: []Band{below(0.1, bear), below(0.3, bear), above(2, bull)}},
		IDStockToFlow: {Bands: []Band{below(-50, bull), below(-20, bull), above(100, bear), above(50, bear)}},
		IDLTHSupply:   {Bands: []Band{above(80, bull), above(70, bull), below(55, bear)}},
		IDPuell:       {Bands: []Band{below(0.3, bull), below(0.5, bull), above(4, bear), above(2.5, bear)}},
		IDRHODL:       {Bands: []Band{below(350, bull), below(1000, bull), above(50000, bear), above(20000, bear)}},
		IDReserveRisk: {Bands: []Band{below(0.002, bull), below(0.01, bull), above(0.02, bear), above(0.01, bear)}},
		IDRainbow:     {Bands: []Band{below(3, bull), below(4, bull), above(8, bear), above(6, bear)}},
		IDETFFlows:    {Bands: []Band{above(100, bull), above(0, bull), below(-100, bear), below(0, bear)}},
		IDNVT:         {Bands: []Band{below(45, bull), below(65, bull), above(150, bear), above(100, bear)}},
		IDExchangeReserves: {Bands: []Band{
			below(2_000_000, bull), below(2_300_000, bull), above(2_800_000, bear), above(2_600_000, bear),
		}},
		IDATHDistance:     {Bands: []Band{below(-70, bull), below(-50, bull), above(-10, bear), above(-20, bear)}},
		IDMPI:             {Bands: []Band{below(0, bull), below(0.5, bull), above(2, bear), above(1, bear)}},
		IDBTCDominance:    {Bands: []Band{above(70, bull), above(60, bull), below(40, bear), below(50, bear)}},
		IDMomentum30d:     {Bands: []Band{above(20, bull), above(5, bull), below(-20, bear), below(-5, bear)}},
		IDFundingRates:    {Bands: []Band{below(-0.05, bull), below(0, bull), above(0.1, bear), above(0.05, bear)}},
		IDCoinbasePremium: {Bands: []Band{above(0.5, bull), above(0.1, bull), below(-0.5, bear), below(-0.1, bear)}},
		IDMarketDepth:     {Bands: []Band{above(1.5, bull), above(1.1, bull), below(0.7, bear), below(0.9, bear)}},
		IDVolumeTrend:     {Bands: []Band{above(1.5, bull), above(1.1, bull), below(0.7, bear), below(0.9, bear)}},
		IDNetworkCongestion: {Bands: []Band{
			below(50, bull), below(100, neutral), above(300, bear), above(200, bear),
		}},
		IDFeePressure: {Bands: []Band{below(10, bear), below(30, neutral), above(100, bull), above(50, bull)}},
		IDHashRibbons: {Bands: []Band{above(0.8, bull), above(0.5, bull), below(0.2, bear), below(0.4, bear)}},
		IDDifficultyAdjustment: {Bands: []Band{
			below(-10, bull), below(-5, bull), above(10, bear), above(5, neutral),
		}},
		IDLightningNetwork: {Bands: []Band{above(5000, bull), above(3000, bull), below(1000, bear)}},
		IDMinerRevenue:     {Bands: []Band{below(15, bull), below(25, bull), above(60, bear), above(40, bear)}},
	}
}
