package scoring

import (
	"math"

	"CycleScope/internal/domain/models"
)

// Comparison selects which side of a band bound matches.
type Comparison int

const (
	Below Comparison = iota
	Above
)

// Band is one rung of a threshold ladder: values strictly below (or above)
// Bound classify as Signal.
type Band struct {
	Cmp    Comparison
	Bound  float64
	Signal models.Signal
}

func (b Band) matches(v float64) bool {
	if b.Cmp == Below {
		return v < b.Bound
	}
	return v > b.Bound
}

func below(bound float64, s models.Signal) Band { return Band{Cmp: Below, Bound: bound, Signal: s} }
func above(bound float64, s models.Signal) Band { return Band{Cmp: Above, Bound: bound, Signal: s} }

// ConfidenceFunc maps a raw value and the signal it produced to a confidence.
type ConfidenceFunc func(value float64, signal models.Signal) float64

// Ladder is an ordered list of bands evaluated first-match-wins, plus an
// optional confidence curve. A value matching no band is neutral.
type Ladder struct {
	Bands      []Band
	Confidence ConfidenceFunc
}

// Evaluate classifies v. The confidence is clamped to [0,100].
func (l Ladder) Evaluate(v float64) models.Classification {
	sig := models.SignalNeutral
	for _, b := range l.Bands {
		if b.matches(v) {
			sig = b.Signal
			break
		}
	}
	conf := l.Confidence
	if conf == nil {
		conf = flatConfidence
	}
	return models.Classification{Signal: sig, Confidence: ClampConfidence(conf(v, sig))}
}

func flatConfidence(_ float64, s models.Signal) float64 {
	if s != models.SignalNeutral {
		return 70
	}
	return 50
}

// tier is one step of a symmetric confidence curve: values under low or over
// high earn conf.
type tier struct {
	low, high, conf float64
}

// tieredConfidence checks tiers from the most extreme inwards and falls back
// to 50 inside the innermost band.
func tieredConfidence(tiers ...tier) ConfidenceFunc {
	return func(v float64, _ models.Signal) float64 {
		for _, t := range tiers {
			if v < t.low || v > t.high {
				return t.conf
			}
		}
		return 50
	}
}

// ClampConfidence bounds c to [0,100]; NaN becomes 0.
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 100:
		return 100
	default:
		return c
	}
}
