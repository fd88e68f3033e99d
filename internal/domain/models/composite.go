package models

import "time"

// CompositeSignal is the five-level discretisation of a composite score.
type CompositeSignal string

const (
	CompositeStrongBuy  CompositeSignal = "strong-buy"
	CompositeBuy        CompositeSignal = "buy"
	CompositeNeutral    CompositeSignal = "neutral"
	CompositeSell       CompositeSignal = "sell"
	CompositeStrongSell CompositeSignal = "strong-sell"
)

// CompositeScore is the output of one scoring pass. Higher Overall means more
// sell pressure, i.e. closer to a cycle top.
type CompositeScore struct {
	ID              string            `json:"id,omitempty"`
	Overall         float64           `json:"overall"`
	Signal          CompositeSignal   `json:"signal"`
	PeakProbability float64           `json:"peak_probability"`
	WeightedScores  []IndicatorRecord `json:"weighted_scores"`
	LastUpdate      time.Time         `json:"last_update"`
}

// Included returns how many indicators took part in the pass.
func (s CompositeScore) Included() int { return len(s.WeightedScores) }

// Snapshot flattens s into a history row.
func (s CompositeScore) Snapshot() ScoreSnapshot {
	return ScoreSnapshot{
		ID:              s.ID,
		Overall:         s.Overall,
		Signal:          s.Signal,
		PeakProbability: s.PeakProbability,
		Included:        s.Included(),
		ComputedAt:      s.LastUpdate,
	}
}

// Readings flattens the weighted scores of s into persisted rows.
func (s CompositeScore) Readings() []IndicatorReading {
	out := make([]IndicatorReading, 0, len(s.WeightedScores))
	for _, r := range s.WeightedScores {
		out = append(out, IndicatorReading{
			ScoreID:    s.ID,
			ID:         r.ID,
			Value:      r.Value,
			Signal:     r.Signal,
			Confidence: r.Confidence,
			Weight:     r.AppliedWeight(),
			Source:     r.Source,
			ComputedAt: s.LastUpdate,
		})
	}
	return out
}

// ScoreSnapshot is the persisted summary of a CompositeScore.
type ScoreSnapshot struct {
	ID              string          `json:"id"`
	Overall         float64         `json:"overall"`
	Signal          CompositeSignal `json:"signal"`
	PeakProbability float64         `json:"peak_probability"`
	Included        int             `json:"included"`
	ComputedAt      time.Time       `json:"computed_at"`
}
