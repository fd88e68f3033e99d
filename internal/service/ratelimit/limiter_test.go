package ratelimit

import (
	"fmt"
	"testing"
	"time"
)

func TestLimiterBurstAndRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(0.5, 2, WithClock(func() time.Time { return now }))

	if !l.Allow("ip") || !l.Allow("ip") {
		t.Fatal("burst of two should be allowed")
	}
	if l.Allow("ip") {
		t.Fatal("third request should be limited")
	}
	if got := l.RetryAfter("ip"); got != 2*time.Second {
		t.Fatalf("RetryAfter = %v", got)
	}
	if !l.Allow("other") {
		t.Fatal("keys are independent")
	}

	now = now.Add(2 * time.Second)
	if !l.Allow("ip") {
		t.Fatal("one token should have refilled")
	}
	if l.Allow("ip") {
		t.Fatal("only one token refilled")
	}
}

func TestLimiterCapsAtBurst(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(10, 1, WithClock(func() time.Time { return now }))
	_ = l.Allow("k")
	now = now.Add(time.Hour)
	if !l.Allow("k") || l.Allow("k") {
		t.Fatal("bucket must not exceed its capacity")
	}
}

func TestLimiterSweepsRefilledBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 2, WithClock(func() time.Time { return now }))

	for i := 0; i < 50; i++ {
		l.Allow(fmt.Sprintf("10.0.0.%d", i))
	}
	if got := l.Len(); got != 50 {
		t.Fatalf("Len = %d", got)
	}

	now = now.Add(sweepInterval)
	l.Allow("10.0.1.1")
	if got := l.Len(); got != 1 {
		t.Fatalf("refilled buckets kept, Len = %d", got)
	}
}

func TestLimiterKeepsDrainedBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(0.01, 1, WithClock(func() time.Time { return now }))
	l.Allow("busy")

	now = now.Add(sweepInterval)
	l.Allow("other")
	if l.Len() != 2 {
		t.Fatalf("drained bucket evicted, Len = %d", l.Len())
	}
	if l.Allow("busy") {
		t.Fatal("eviction must not hand out extra tokens")
	}
}
