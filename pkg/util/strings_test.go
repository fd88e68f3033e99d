package util

import (
	"math"
	"testing"
)

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("", 7); got != 7 {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ParseIntDefault("x", 7); got != 7 {
		t.Fatalf("expected default on garbage, got %d", got)
	}
	if got := ParseIntDefault("42", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestParseFloatPrefix(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"0.5", 0.5, true},
		{"  85", 85, true},
		{"-1.25e2", -125, true},
		{"12.5px", 12.5, true},
		{"3e", 3, true},
		{".5", 0.5, true},
		{"5.", 5, true},
		{"abc", 0, false},
		{"", 0, false},
		{"-", 0, false},
		{".", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseFloatPrefix(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("ParseFloatPrefix(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseFloatPrefixInfinity(t *testing.T) {
	got, ok := ParseFloatPrefix("-Infinity")
	if !ok || !math.IsInf(got, -1) {
		t.Fatalf("expected -Inf, got %v %v", got, ok)
	}
}
