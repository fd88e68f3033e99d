package models

import "strings"

// Signal is the canonical direction of a single indicator.
type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalBearish Signal = "bearish"
	SignalNeutral Signal = "neutral"
)

// ParseSignal maps both vocabularies (bullish/bearish and buy/sell with their
// strong- variants) onto the canonical set. Anything unrecognised is neutral.
func ParseSignal(s string) Signal {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bullish", "buy", "strong-buy", "strong_buy":
		return SignalBullish
	case "bearish", "sell", "strong-sell", "strong_sell":
		return SignalBearish
	default:
		return SignalNeutral
	}
}

// Canonical returns s normalised through ParseSignal.
func (s Signal) Canonical() Signal { return ParseSignal(string(s)) }

// UnmarshalText normalises legacy producers at the decoding boundary.
func (s *Signal) UnmarshalText(b []byte) error {
	*s = ParseSignal(string(b))
	return nil
}

// Classification is the classifier output for one (id, value) pair.
type Classification struct {
	Signal     Signal  `json:"signal"`
	Confidence float64 `json:"confidence"`
}
