package features

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	if got := SMA(data, 2); got != 4.5 {
		t.Fatalf("SMA(2) = %v", got)
	}
	if got := SMA(data, 5); got != 3 {
		t.Fatalf("SMA(5) = %v", got)
	}
	if got := SMA(data, 6); got != 0 {
		t.Fatalf("SMA over short data = %v", got)
	}
}

func TestEMA(t *testing.T) {
	if got := EMA(nil, 10); got != 0 {
		t.Fatalf("EMA(nil) = %v", got)
	}
	if got := EMA([]float64{7}, 10); got != 7 {
		t.Fatalf("EMA seed = %v", got)
	}
	// k = 2/3: 1 -> 1 + (4-1)*2/3 = 3
	if got := EMA([]float64{1, 4}, 2); math.Abs(got-3) > 1e-12 {
		t.Fatalf("EMA = %v", got)
	}
}

func TestLogReturns(t *testing.T) {
	if LogReturns([]float64{1}) != nil {
		t.Fatal("expected nil for single price")
	}
	r := LogReturns([]float64{100, 110, 0, 121})
	if len(r) != 3 {
		t.Fatalf("len = %d", len(r))
	}
	if math.Abs(r[0]-math.Log(1.1)) > 1e-12 || r[1] != 0 || r[2] != 0 {
		t.Fatalf("unexpected returns %v", r)
	}
}

func TestRealizedVolatility(t *testing.T) {
	flat := []float64{0.01, 0.01, 0.01, 0.01}
	if got := RealizedVolatility(flat, 4, 365); got > 1e-9 {
		t.Fatalf("constant returns should have ~zero vol, got %v", got)
	}
	if got := RealizedVolatility(flat, 5, 365); got != 0 {
		t.Fatalf("window larger than data = %v", got)
	}
	if got := RealizedVolatility([]float64{0.01, -0.01, 0.01, -0.01}, 4, 365); got <= 0 {
		t.Fatalf("expected positive vol, got %v", got)
	}
}

func TestPercentChangeAndVolumeRatio(t *testing.T) {
	if got := PercentChange([]float64{100, 90, 125}); got != 25 {
		t.Fatalf("PercentChange = %v", got)
	}
	if got := PercentChange([]float64{0, 1}); got != 0 {
		t.Fatalf("PercentChange from zero = %v", got)
	}
	vols := []float64{10, 10, 10, 10, 20, 20}
	if got := VolumeRatio(vols, 2, 4); got != 2 {
		t.Fatalf("VolumeRatio = %v", got)
	}
	if got := VolumeRatio(vols, 4, 4); got != 1 {
		t.Fatalf("VolumeRatio with short data = %v", got)
	}
}

func TestBarsPerYear(t *testing.T) {
	cases := map[string]float64{"daily": 365, "": 365, "1h": 8760, "hourly": 8760, "5m": 105120}
	for interval, want := range cases {
		if got := BarsPerYear(interval); got != want {
			t.Errorf("BarsPerYear(%q) = %v, want %v", interval, got, want)
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-1, 0, 100) != 0 || Clamp(150, 0, 100) != 100 || Clamp(42, 0, 100) != 42 {
		t.Fatal("clamp out of bounds")
	}
}
