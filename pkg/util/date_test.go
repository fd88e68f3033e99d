package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDate(t *testing.T) {
	got, ok := ParseTime("2009-01-03")
	if !ok || got.Year() != 2009 || got.YearDay() != 3 {
		t.Fatalf("unexpected date %v %v", got, ok)
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestResolveRange(t *testing.T) {
	now := time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC)

	from, to := ResolveRange("", "", now, 24*time.Hour)
	if !to.Equal(now) || !from.Equal(now.Add(-24*time.Hour)) {
		t.Fatalf("defaults: %v %v", from, to)
	}

	from, to = ResolveRange("2024-10-10T12:00:00Z", "2024-10-01T00:00:00Z", now, time.Hour)
	if !from.Before(to) || to.Day() != 10 {
		t.Fatalf("reversed range not swapped: %v %v", from, to)
	}
}
