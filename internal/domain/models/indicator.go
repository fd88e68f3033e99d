package models

import "time"

// IndicatorRecord is the unit every source produces. Value is expressed in the
// indicator's own unit; only Signal and Confidence take part in scoring.
type IndicatorRecord struct {
	ID         string         `json:"id" validate:"required"`
	Value      float64        `json:"value"`
	Signal     Signal         `json:"signal"`
	Confidence float64        `json:"confidence"`
	Weight     *float64       `json:"weight,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Source     string         `json:"source,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// WithWeight returns a copy of r carrying weight w.
func (r IndicatorRecord) WithWeight(w float64) IndicatorRecord {
	r.Weight = &w
	return r
}

// AppliedWeight returns the weight carried by r, or 0 when none is set.
func (r IndicatorRecord) AppliedWeight() float64 {
	if r.Weight == nil {
		return 0
	}
	return *r.Weight
}

// IndicatorReading is one persisted row of a scored indicator.
type IndicatorReading struct {
	ScoreID    string    `json:"score_id"`
	ID         string    `json:"id"`
	Value      float64   `json:"value"`
	Signal     Signal    `json:"signal"`
	Confidence float64   `json:"confidence"`
	Weight     float64   `json:"weight"`
	Source     string    `json:"source"`
	ComputedAt time.Time `json:"computed_at"`
}
