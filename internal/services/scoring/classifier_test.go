package scoring

import (
	"errors"
	"math"
	"testing"

	"CycleScope/internal/domain/models"
)

type ladderCase struct {
	id    string
	value float64
	want  models.Signal
}

func TestClassifyLadders(t *testing.T) {
	cases := []ladderCase{
		{IDFearGreed, 24, bull}, {IDFearGreed, 44, bull}, {IDFearGreed, 45, neutral},
		{IDFearGreed, 50, neutral}, {IDFearGreed, 55, neutral}, {IDFearGreed, 56, bear}, {IDFearGreed, 76, bear},

		{IDMVRV, -1, bull}, {IDMVRV, 0.99, bull}, {IDMVRV, 1, neutral},
		{IDMVRV, 3.5, neutral}, {IDMVRV, 3.6, bear}, {IDMVRV, 8, bear},

		{IDPiCycle, 0.05, bear}, {IDPiCycle, 0.2, bear}, {IDPiCycle, 1, neutral}, {IDPiCycle, 2.5, bull},

		{IDStockToFlow, -60, bull}, {IDStockToFlow, -30, bull}, {IDStockToFlow, 0, neutral},
		{IDStockToFlow, 60, bear}, {IDStockToFlow, 150, bear},

		{IDLTHSupply, 85, bull}, {IDLTHSupply, 75, bull}, {IDLTHSupply, 60, neutral}, {IDLTHSupply, 50, bear},

		{IDPuell, 0.2, bull}, {IDPuell, 0.4, bull}, {IDPuell, 1, neutral}, {IDPuell, 3, bear}, {IDPuell, 5, bear},

		{IDNUPL, -0.1, bull}, {IDNUPL, 0.1, bull}, {IDNUPL, 0.4, neutral}, {IDNUPL, 0.6, bear}, {IDNUPL, 0.8, bear},

		{IDNetworkCongestion, 40, bull}, {IDNetworkCongestion, 80, neutral}, {IDNetworkCongestion, 150, neutral},
		{IDNetworkCongestion, 250, bear}, {IDNetworkCongestion, 350, bear},

		{IDFeePressure, 5, bear}, {IDFeePressure, 20, neutral}, {IDFeePressure, 40, neutral},
		{IDFeePressure, 60, bull}, {IDFeePressure, 120, bull},

		{IDDifficultyAdjustment, -12, bull}, {IDDifficultyAdjustment, -6, bull}, {IDDifficultyAdjustment, 0, neutral},
		{IDDifficultyAdjustment, 7, neutral}, {IDDifficultyAdjustment, 12, bear},

		{IDLightningNetwork, 6000, bull}, {IDLightningNetwork, 4000, bull},
		{IDLightningNetwork, 2000, neutral}, {IDLightningNetwork, 500, bear},

		{IDExchangeReserves, 1_900_000, bull}, {IDExchangeReserves, 2_500_000, neutral}, {IDExchangeReserves, 2_700_000, bear},

		{IDBTCDominance, 75, bull}, {IDBTCDominance, 55, neutral}, {IDBTCDominance, 45, bear},

		{IDRHODL, 349, bull}, {IDRHODL, 999, bull}, {IDRHODL, 1000, neutral}, {IDRHODL, 1001, neutral},
		{IDRHODL, 19999, neutral}, {IDRHODL, 20000, neutral}, {IDRHODL, 20001, bear}, {IDRHODL, 50001, bear},

		{IDReserveRisk, 0.001, bull}, {IDReserveRisk, 0.0099, bull}, {IDReserveRisk, 0.01, neutral},
		{IDReserveRisk, 0.0101, bear}, {IDReserveRisk, 0.03, bear},

		{IDRainbow, 2, bull}, {IDRainbow, 3.9, bull}, {IDRainbow, 4, neutral}, {IDRainbow, 4.1, neutral},
		{IDRainbow, 5.9, neutral}, {IDRainbow, 6, neutral}, {IDRainbow, 6.1, bear}, {IDRainbow, 9, bear},

		{IDETFFlows, 150, bull}, {IDETFFlows, 1, bull}, {IDETFFlows, 0, neutral},
		{IDETFFlows, -1, bear}, {IDETFFlows, -150, bear},

		{IDNVT, 40, bull}, {IDNVT, 64, bull}, {IDNVT, 65, neutral}, {IDNVT, 66, neutral},
		{IDNVT, 99, neutral}, {IDNVT, 100, neutral}, {IDNVT, 101, bear}, {IDNVT, 160, bear},

		{IDATHDistance, -80, bull}, {IDATHDistance, -51, bull}, {IDATHDistance, -50, neutral}, {IDATHDistance, -49, neutral},
		{IDATHDistance, -21, neutral}, {IDATHDistance, -20, neutral}, {IDATHDistance, -19, bear}, {IDATHDistance, -5, bear},

		{IDMPI, -0.1, bull}, {IDMPI, 0.49, bull}, {IDMPI, 0.5, neutral}, {IDMPI, 0.51, neutral},
		{IDMPI, 0.99, neutral}, {IDMPI, 1, neutral}, {IDMPI, 1.01, bear}, {IDMPI, 3, bear},

		{IDMomentum30d, 25, bull}, {IDMomentum30d, 6, bull}, {IDMomentum30d, 5, neutral}, {IDMomentum30d, 4, neutral},
		{IDMomentum30d, -4, neutral}, {IDMomentum30d, -5, neutral}, {IDMomentum30d, -6, bear}, {IDMomentum30d, -25, bear},

		{IDFundingRates, -0.1, bull}, {IDFundingRates, -0.01, bull}, {IDFundingRates, 0, neutral}, {IDFundingRates, 0.01, neutral},
		{IDFundingRates, 0.049, neutral}, {IDFundingRates, 0.05, neutral}, {IDFundingRates, 0.051, bear}, {IDFundingRates, 0.2, bear},

		{IDCoinbasePremium, 0.6, bull}, {IDCoinbasePremium, 0.11, bull}, {IDCoinbasePremium, 0.1, neutral}, {IDCoinbasePremium, 0.09, neutral},
		{IDCoinbasePremium, -0.09, neutral}, {IDCoinbasePremium, -0.1, neutral}, {IDCoinbasePremium, -0.11, bear}, {IDCoinbasePremium, -0.6, bear},

		{IDMarketDepth, 2, bull}, {IDMarketDepth, 1.11, bull}, {IDMarketDepth, 1.1, neutral}, {IDMarketDepth, 1.09, neutral},
		{IDMarketDepth, 0.91, neutral}, {IDMarketDepth, 0.9, neutral}, {IDMarketDepth, 0.89, bear}, {IDMarketDepth, 0.5, bear},

		{IDVolumeTrend, 2, bull}, {IDVolumeTrend, 1.11, bull}, {IDVolumeTrend, 1.1, neutral}, {IDVolumeTrend, 1.09, neutral},
		{IDVolumeTrend, 0.91, neutral}, {IDVolumeTrend, 0.9, neutral}, {IDVolumeTrend, 0.89, bear}, {IDVolumeTrend, 0.5, bear},

		{IDHashRibbons, 0.9, bull}, {IDHashRibbons, 0.51, bull}, {IDHashRibbons, 0.5, neutral}, {IDHashRibbons, 0.49, neutral},
		{IDHashRibbons, 0.41, neutral}, {IDHashRibbons, 0.4, neutral}, {IDHashRibbons, 0.39, bear}, {IDHashRibbons, 0.1, bear},

		{IDMinerRevenue, 10, bull}, {IDMinerRevenue, 24, bull}, {IDMinerRevenue, 25, neutral}, {IDMinerRevenue, 26, neutral},
		{IDMinerRevenue, 39, neutral}, {IDMinerRevenue, 40, neutral}, {IDMinerRevenue, 41, bear}, {IDMinerRevenue, 70, bear},
	}

	for _, c := range cases {
		got := CalculateIndicatorSignal(c.id, c.value)
		if got.Signal != c.want {
			t.Errorf("%s(%v): signal %q, want %q", c.id, c.value, got.Signal, c.want)
		}
	}
}

func TestClassifyFlatConfidence(t *testing.T) {
	cases := []struct {
		id    string
		value float64
		conf  float64
	}{
		{IDPuell, 0.2, 70},
		{IDPuell, 1, 50},
		{IDNetworkCongestion, 80, 50},
		{IDLightningNetwork, 500, 70},
		{IDMinerRevenue, 41, 70},
		{IDETFFlows, 0, 50},
		{IDCoinbasePremium, -0.11, 70},
	}
	for _, c := range cases {
		if got := CalculateIndicatorSignal(c.id, c.value).Confidence; got != c.conf {
			t.Errorf("%s(%v): confidence %v, want %v", c.id, c.value, got, c.conf)
		}
	}
}

func TestClassifyTieredConfidence(t *testing.T) {
	cases := []struct {
		id    string
		value float64
		conf  float64
	}{
		{IDFearGreed, 10, 90}, {IDFearGreed, 85, 90}, {IDFearGreed, 25, 75},
		{IDFearGreed, 80, 75}, {IDFearGreed, 65, 60}, {IDFearGreed, 50, 50},

		{IDMVRV, -1, 90}, {IDMVRV, 6, 90}, {IDMVRV, 0.4, 75}, {IDMVRV, 4, 75},
		{IDMVRV, 0.9, 60}, {IDMVRV, 2.5, 60}, {IDMVRV, 1.5, 50},

		{IDNUPL, -0.3, 90}, {IDNUPL, 0.95, 90}, {IDNUPL, -0.1, 75}, {IDNUPL, 0.8, 75},
		{IDNUPL, 0.1, 60}, {IDNUPL, 0.6, 60}, {IDNUPL, 0.4, 50},
	}
	for _, c := range cases {
		if got := CalculateIndicatorSignal(c.id, c.value).Confidence; got != c.conf {
			t.Errorf("%s(%v): confidence %v, want %v", c.id, c.value, got, c.conf)
		}
	}
}

func TestClassifyUnknownAndInvalid(t *testing.T) {
	got := CalculateIndicatorSignal("made-up", 42)
	if got.Signal != models.SignalNeutral || got.Confidence != 30 {
		t.Fatalf("unknown id: got %+v", got)
	}
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		got := CalculateIndicatorSignal(IDMVRV, v)
		if got.Signal != models.SignalNeutral || got.Confidence != 0 {
			t.Fatalf("value %v: got %+v", v, got)
		}
	}
	// invalid values win over unknown ids
	if got := CalculateIndicatorSignal("made-up", math.NaN()); got.Confidence != 0 {
		t.Fatalf("NaN on unknown id: got %+v", got)
	}
}

func TestClassifyString(t *testing.T) {
	c := DefaultClassifier()

	if got := c.ClassifyString(IDMVRV, " 0.5xyz"); got.Signal != models.SignalBullish || got.Confidence != 60 {
		t.Fatalf("mvrv: got %+v", got)
	}
	if got := c.ClassifyString(IDFearGreed, "85"); got.Signal != models.SignalBearish || got.Confidence != 90 {
		t.Fatalf("fear-greed: got %+v", got)
	}
	if got := c.ClassifyString(IDFearGreed, "abc"); got.Signal != models.SignalNeutral || got.Confidence != 0 {
		t.Fatalf("abc: got %+v", got)
	}
}

func TestClassifierIsDeterministic(t *testing.T) {
	c := DefaultClassifier()
	for _, id := range c.IDs() {
		for _, v := range []float64{-1e6, -1, 0, 0.5, 1, 42, 1e6} {
			a, b := c.Classify(id, v), c.Classify(id, v)
			if a != b {
				t.Fatalf("%s(%v) not deterministic: %+v vs %+v", id, v, a, b)
			}
			if a.Confidence < 0 || a.Confidence > 100 {
				t.Fatalf("%s(%v) confidence out of range: %v", id, v, a.Confidence)
			}
		}
	}
}

func TestClassifierCopiesLadders(t *testing.T) {
	ladders := map[string]Ladder{"x": {Bands: []Band{above(1, bear)}}}
	c := NewClassifier(ladders)
	ladders["x"].Bands[0] = below(1, bull)

	if got := c.Classify("x", 2); got.Signal != models.SignalBearish {
		t.Fatalf("ladder mutated through caller map: %+v", got)
	}
}

func TestClassifierApply(t *testing.T) {
	r := DefaultClassifier().Apply(models.IndicatorRecord{ID: IDFearGreed, Value: 85})
	if r.Signal != models.SignalBearish || r.Confidence != 90 {
		t.Fatalf("unexpected record %+v", r)
	}
}

func TestClassifierValidate(t *testing.T) {
	if err := DefaultClassifier().Validate(DefaultWeightTable()); err != nil {
		t.Fatalf("default table should be covered: %v", err)
	}

	table, err := BuildWeightTable([]WeightDeclaration{{ID: "mvrv", DeclaredWeight: 1}, {ID: "nope", DeclaredWeight: 1}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := DefaultClassifier().Validate(table); !errors.Is(err, ErrMissingLadder) {
		t.Fatalf("expected ErrMissingLadder, got %v", err)
	}
	if err := DefaultClassifier().Validate(nil); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
}

func TestClampConfidence(t *testing.T) {
	cases := map[float64]float64{-5: 0, 0: 0, 55: 55, 100: 100, 130: 100}
	for in, want := range cases {
		if got := ClampConfidence(in); got != want {
			t.Errorf("ClampConfidence(%v) = %v, want %v", in, got, want)
		}
	}
	if got := ClampConfidence(math.NaN()); got != 0 {
		t.Errorf("NaN clamped to %v", got)
	}
}
