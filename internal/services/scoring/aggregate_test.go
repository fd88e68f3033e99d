package scoring

import (
	"errors"
	"math"
	"testing"

	"CycleScope/internal/domain/models"
)

func TestAggregateLastWriterWins(t *testing.T) {
	set, report := Aggregate(
		Ready("chain", models.IndicatorRecord{ID: IDMVRV, Value: 1, Signal: "neutral", Confidence: 50}),
		Ready("override", models.IndicatorRecord{ID: IDMVRV, Value: 0.5, Signal: "strong-buy", Confidence: 60}),
	)

	r, ok := set.Get(IDMVRV)
	if !ok {
		t.Fatal("mvrv missing")
	}
	if r.Value != 0.5 || r.Signal != models.SignalBullish || r.Source != "override" {
		t.Fatalf("unexpected record %+v", r)
	}
	if len(report.Overwritten) != 1 || report.Overwritten[0].From != "chain" || report.Overwritten[0].To != "override" {
		t.Fatalf("unexpected overwrite report %+v", report.Overwritten)
	}
}

func TestAggregateSkipsAbsentSources(t *testing.T) {
	set, report := Aggregate(
		Failed("sentiment", errors.New("timeout")),
		Loading("onchain"),
		SourceResult{Source: "push", Status: StatusDisabled},
		SourceResult{Source: "broken", Records: []models.IndicatorRecord{{ID: IDNVT, Value: 1}}, Err: errors.New("boom")},
		Ready("mempool", models.IndicatorRecord{ID: IDFeePressure, Value: 20}),
	)

	if set.Len() != 1 {
		t.Fatalf("expected only the ready record, got %v", set.IDs())
	}
	if len(report.Sources) != 5 {
		t.Fatalf("expected a report per source, got %d", len(report.Sources))
	}
	if report.Sources[0].Status != StatusFailed || report.Sources[0].Error != "timeout" {
		t.Fatalf("unexpected first report %+v", report.Sources[0])
	}
	if report.Sources[3].Status != StatusFailed {
		t.Fatalf("result with error must count as failed: %+v", report.Sources[3])
	}
	if report.Sources[4].Records != 1 {
		t.Fatalf("unexpected mempool report %+v", report.Sources[4])
	}
}

func TestAggregateRejectsBadRecords(t *testing.T) {
	set, report := Aggregate(Ready("src",
		models.IndicatorRecord{ID: " ", Value: 1},
		models.IndicatorRecord{ID: IDNVT, Value: math.NaN()},
		models.IndicatorRecord{ID: IDPuell, Value: math.Inf(1)},
		models.IndicatorRecord{ID: IDRHODL, Value: 500, Signal: "whatever", Confidence: 140},
	))

	if set.Len() != 1 {
		t.Fatalf("expected one survivor, got %v", set.IDs())
	}
	if len(report.Rejected) != 3 {
		t.Fatalf("expected 3 rejections, got %+v", report.Rejected)
	}
	r, _ := set.Get(IDRHODL)
	if r.Signal != models.SignalNeutral || r.Confidence != 100 {
		t.Fatalf("record not normalised: %+v", r)
	}
}

func TestAggregateEmpty(t *testing.T) {
	set, report := Aggregate()
	if set.Len() != 0 || len(set.Records()) != 0 || len(report.Sources) != 0 {
		t.Fatalf("expected empty result, got %v %+v", set.IDs(), report)
	}
	if _, ok := set.Get(IDMVRV); ok {
		t.Fatal("empty set should not contain mvrv")
	}
}

func TestAggregateDoesNotAliasInput(t *testing.T) {
	recs := []models.IndicatorRecord{{ID: IDNVT, Value: 80}}
	set, _ := Aggregate(Ready("chain", recs...))
	recs[0].Value = 1

	if r, _ := set.Get(IDNVT); r.Value != 80 {
		t.Fatalf("set changed with caller slice: %+v", r)
	}
}

func TestIndicatorSetOrdering(t *testing.T) {
	set := NewIndicatorSet(
		models.IndicatorRecord{ID: "b", Value: 1},
		models.IndicatorRecord{ID: "a", Value: 2},
	)
	recs := set.Records()
	if len(recs) != 2 || recs[0].ID != "a" || recs[1].ID != "b" {
		t.Fatalf("unexpected order %+v", recs)
	}
}
