package features

import (
	"math"
	"testing"

	"CycleScope/internal/domain/models"
)

func TestFeePressure(t *testing.T) {
	if got := FeePressure(30, 20, 10); got != 20 {
		t.Fatalf("FeePressure = %v", got)
	}
}

func TestCongestionScore(t *testing.T) {
	cases := []struct {
		count int
		vsize float64
		fee   float64
		want  float64
	}{
		{0, 0, 0, 0},
		{15_000, 60e6, 25, 30},
		{60_000, 200e6, 60, 70},
		{150_000, 400e6, 150, 100},
		{100_000, 300e6, 100, 70},
	}
	for _, c := range cases {
		if got := CongestionScore(c.count, c.vsize, c.fee); got != c.want {
			t.Errorf("CongestionScore(%d, %v, %v) = %v, want %v", c.count, c.vsize, c.fee, got, c.want)
		}
	}
}

func TestCongestion(t *testing.T) {
	cases := []struct {
		count  int
		vsize  float64
		fee    float64
		signal models.Signal
		level  string
	}{
		{0, 0, 0, models.SignalBullish, "low"},
		{15_000, 60e6, 25, models.SignalNeutral, "low"},
		{60_000, 200e6, 25, models.SignalNeutral, "moderate"},
		{60_000, 200e6, 60, models.SignalNeutral, "moderate"},
		{150_000, 400e6, 60, models.SignalBearish, "high"},
	}
	for _, c := range cases {
		got := Congestion(c.count, c.vsize, c.fee)
		if got.Signal != c.signal || got.Description != c.level || got.Confidence != 60 {
			t.Errorf("Congestion(%d, %v, %v) = %+v, want %s/%s", c.count, c.vsize, c.fee, got, c.signal, c.level)
		}
	}
}

func TestWeightedFunding(t *testing.T) {
	if got := WeightedFunding(0.0001, 0.0002); math.Abs(got-0.014) > 1e-12 {
		t.Fatalf("WeightedFunding = %v", got)
	}
}
