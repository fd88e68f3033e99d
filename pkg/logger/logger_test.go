package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	key     string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) Publish(_ context.Context, topic string, key []byte, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.key = string(key)
	p.batches = append(p.batches, value.([]AggregatedLogEntry))
	return nil
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud", Output: "stdout"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestCollectorDeduplicates(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "cyclescope.logs",
		Service:        "cyclescope",
		Publisher:      pub,
	})

	for i := 0; i < 3; i++ {
		l.Error("source failed", String("source", "mempool"), Error(errors.New("timeout")))
	}
	l.Warn("slow source", String("source", "onchain"))
	l.Info("not collected")

	if got := l.collector.Pending(); got != 2 {
		t.Fatalf("expected 2 unique entries, got %d", got)
	}

	l.RemoveCollector()

	if len(pub.batches) != 1 {
		t.Fatalf("expected one flushed batch, got %d", len(pub.batches))
	}
	if pub.topic != "cyclescope.logs" || pub.key != "cyclescope" {
		t.Fatalf("unexpected destination %q/%q", pub.topic, pub.key)
	}
	total := 0
	for _, e := range pub.batches[0] {
		total += e.Count
	}
	if total != 4 {
		t.Fatalf("expected 4 occurrences, got %d", total)
	}
}

func TestWithKeepsCollector(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Publisher: pub})

	child := l.With(String("component", "scorer"), Float64("overall", 42))
	child.Error("boom")

	if got := l.collector.Pending(); got != 1 {
		t.Fatalf("child log not collected, pending=%d", got)
	}
	l.RemoveCollector()
}
