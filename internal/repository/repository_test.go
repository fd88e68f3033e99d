package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"CycleScope/internal/domain/models"
	pkgkafka "CycleScope/pkg/kafka"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
)

func score(id string, at time.Time, ids ...string) models.CompositeScore {
	sc := models.CompositeScore{ID: id, Overall: 40, Signal: models.CompositeNeutral, PeakProbability: 40, LastUpdate: at}
	for _, ind := range ids {
		sc.WeightedScores = append(sc.WeightedScores,
			models.IndicatorRecord{ID: ind, Value: 1, Signal: models.SignalNeutral, Confidence: 50}.WithWeight(0.5))
	}
	return sc
}

func TestMemoryScoreStoreHistory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryScoreStore(3)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := s.SaveScore(ctx, score(string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour), "mvrv")); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.History(ctx, base, base.Add(24*time.Hour), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != "e" || got[2].ID != "c" {
		t.Fatalf("ring should keep the newest three, newest first: %+v", got)
	}

	got, _ = s.History(ctx, base.Add(3*time.Hour), base.Add(4*time.Hour), 1)
	if len(got) != 1 || got[0].ID != "e" {
		t.Fatalf("range+limit: %+v", got)
	}
	if got[0].Included != 1 {
		t.Fatalf("included = %d", got[0].Included)
	}
}

func TestMemoryScoreStoreIndicatorHistory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryScoreStore(10)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_ = s.SaveScore(ctx, score("a", base, "mvrv", "puell"))
	_ = s.SaveScore(ctx, score("b", base.Add(time.Hour), "puell"))
	_ = s.SaveScore(ctx, score("c", base.Add(2*time.Hour), "mvrv"))

	got, err := s.IndicatorHistory(ctx, "mvrv", base, base.Add(time.Hour*3), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ScoreID != "c" || got[1].ScoreID != "a" || got[0].Weight != 0.5 {
		t.Fatalf("unexpected readings %+v", got)
	}
}

func TestClampLimit(t *testing.T) {
	for in, want := range map[int]int{-1: 288, 0: 288, 10: 10, 5000: 5000, 9000: 5000} {
		if got := ClampLimit(in); got != want {
			t.Errorf("ClampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestSchemaStatements(t *testing.T) {
	stmts := SchemaStatements("cyclescope")
	if len(stmts) != 3 {
		t.Fatalf("want 3 statements, got %d", len(stmts))
	}
	if !strings.Contains(stmts[1], "cyclescope.composite_scores") || !strings.Contains(stmts[2], "cyclescope.indicator_readings") {
		t.Fatal("tables not qualified with database")
	}
}

type captureWriter struct{ msgs []kafka.Message }

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}
func (w *captureWriter) Close() error { return nil }

func TestKafkaScorePublisherKeysBySignal(t *testing.T) {
	w := &captureWriter{}
	prod, err := pkgkafka.NewProducer(pkgkafka.WithWriter(w), pkgkafka.WithProducerRegisterer(prometheus.NewRegistry()))
	if err != nil {
		t.Fatal(err)
	}
	p := NewKafkaScorePublisher(prod, "composite.scores")
	if err := p.Publish(context.Background(), score("x", time.Unix(0, 0).UTC())); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 || w.msgs[0].Topic != "composite.scores" || string(w.msgs[0].Key) != "neutral" {
		t.Fatalf("unexpected message %+v", w.msgs)
	}
	if !strings.Contains(string(w.msgs[0].Value), `"id":"x"`) {
		t.Fatalf("value not JSON score: %s", w.msgs[0].Value)
	}
}
