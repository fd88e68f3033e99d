package scoring

import (
	"time"

	"CycleScope/internal/domain/models"
)

// SignalScore maps a signal onto the sell-pressure axis: bullish 0,
// neutral 0.5, bearish 1.
func SignalScore(s models.Signal) float64 {
	switch s.Canonical() {
	case models.SignalBullish:
		return 0
	case models.SignalBearish:
		return 1
	default:
		return 0.5
	}
}

// DiscretizeScore buckets an overall score. The extreme side of each
// boundary is inclusive.
func DiscretizeScore(overall float64) models.CompositeSignal {
	switch {
	case overall >= 80:
		return models.CompositeStrongSell
	case overall >= 65:
		return models.CompositeSell
	case overall <= 20:
		return models.CompositeStrongBuy
	case overall <= 35:
		return models.CompositeBuy
	default:
		return models.CompositeNeutral
	}
}

// CalculateCompositeScore blends the records in set that have a table entry.
// Each contributes signalScore * confidence/100 * weight; the sum is divided
// by the weight of the included entries only, so an absent indicator shifts
// the denominator instead of counting as neutral. With nothing included the
// score is 50. Record values and record weights are ignored.
func CalculateCompositeScore(set IndicatorSet, table *WeightTable, at time.Time) models.CompositeScore {
	weighted := make([]models.IndicatorRecord, 0, set.Len())
	var num, den float64

	if table != nil {
		for _, e := range table.entries {
			rec, ok := set.Get(e.ID)
			if !ok {
				continue
			}
			adjusted := SignalScore(rec.Signal) * (ClampConfidence(rec.Confidence) / 100)
			num += adjusted * e.Weight
			den += e.Weight
			weighted = append(weighted, rec.WithWeight(e.Weight))
		}
	}

	overall := 50.0
	if den > 0 {
		overall = num / den * 100
	}
	overall = ClampConfidence(overall)

	return models.CompositeScore{
		Overall:         overall,
		Signal:          DiscretizeScore(overall),
		PeakProbability: overall,
		WeightedScores:  weighted,
		LastUpdate:      at,
	}
}

// ScorerOption configures Scorer.
type ScorerOption func(*Scorer)

// WithClock overrides the time source stamped on each score.
func WithClock(now func() time.Time) ScorerOption {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// Scorer binds a weight table and a clock to CalculateCompositeScore.
type Scorer struct {
	table *WeightTable
	now   func() time.Time
}

// NewScorer creates a scorer over table.
func NewScorer(table *WeightTable, opts ...ScorerOption) *Scorer {
	s := &Scorer{table: table, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the composite for set.
func (s *Scorer) Score(set IndicatorSet) models.CompositeScore {
	return CalculateCompositeScore(set, s.table, s.now())
}

// Table returns the weight table the scorer uses.
func (s *Scorer) Table() *WeightTable { return s.table }
