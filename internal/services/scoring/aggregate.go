package scoring

import (
	"math"
	"sort"
	"strings"

	"CycleScope/internal/domain/models"
)

// SourceStatus describes what a source delivered for one scoring pass.
type SourceStatus string

const (
	StatusReady    SourceStatus = "ready"
	StatusLoading  SourceStatus = "loading"
	StatusFailed   SourceStatus = "failed"
	StatusDisabled SourceStatus = "disabled"
)

// SourceResult is the outcome of one source for one pass. Anything other than
// a ready result is an explicit absence.
type SourceResult struct {
	Source  string
	Status  SourceStatus
	Records []models.IndicatorRecord
	Err     error
}

// Ready wraps records fetched successfully from source.
func Ready(source string, records ...models.IndicatorRecord) SourceResult {
	return SourceResult{Source: source, Status: StatusReady, Records: records}
}

// Failed marks source as absent because of err.
func Failed(source string, err error) SourceResult {
	return SourceResult{Source: source, Status: StatusFailed, Err: err}
}

// Loading marks source as not having produced data yet.
func Loading(source string) SourceResult {
	return SourceResult{Source: source, Status: StatusLoading}
}

func (r SourceResult) status() SourceStatus {
	switch {
	case r.Err != nil:
		return StatusFailed
	case r.Status == "":
		return StatusReady
	default:
		return r.Status
	}
}

// IndicatorSet is an immutable id -> record view built for one pass.
type IndicatorSet struct {
	records map[string]models.IndicatorRecord
}

// NewIndicatorSet merges records last-writer-wins, applying the same
// validation as Aggregate.
func NewIndicatorSet(records ...models.IndicatorRecord) IndicatorSet {
	set, _ := Aggregate(Ready("", records...))
	return set
}

// Get returns the record for id.
func (s IndicatorSet) Get(id string) (models.IndicatorRecord, bool) {
	r, ok := s.records[id]
	return r, ok
}

// Len returns the number of indicators present.
func (s IndicatorSet) Len() int { return len(s.records) }

// IDs returns the present ids, sorted.
func (s IndicatorSet) IDs() []string {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Records returns the present records ordered by id.
func (s IndicatorSet) Records() []models.IndicatorRecord {
	out := make([]models.IndicatorRecord, 0, len(s.records))
	for _, id := range s.IDs() {
		out = append(out, s.records[id])
	}
	return out
}

// SourceReport summarises one source's contribution to a pass.
type SourceReport struct {
	Source  string       `json:"source"`
	Status  SourceStatus `json:"status"`
	Records int          `json:"records"`
	Error   string       `json:"error,omitempty"`
}

// Rejection is a record dropped before merge.
type Rejection struct {
	Source string `json:"source"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Overwrite notes a later source replacing an earlier record for the same id.
type Overwrite struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

// AggregateReport explains how a set was assembled.
type AggregateReport struct {
	Sources     []SourceReport `json:"sources"`
	Rejected    []Rejection    `json:"rejected,omitempty"`
	Overwritten []Overwrite    `json:"overwritten,omitempty"`
}

// Aggregate merges results in argument order; for a repeated id the later
// result wins. Non-ready results are skipped, records with a blank id or a
// non-finite value are rejected, and the survivors get a canonical signal and
// a clamped confidence. It never fails and always builds a fresh set.
func Aggregate(results ...SourceResult) (IndicatorSet, AggregateReport) {
	merged := make(map[string]models.IndicatorRecord)
	report := AggregateReport{Sources: make([]SourceReport, 0, len(results))}

	for _, res := range results {
		st := res.status()
		sr := SourceReport{Source: res.Source, Status: st}
		if res.Err != nil {
			sr.Error = res.Err.Error()
		}
		if st != StatusReady {
			report.Sources = append(report.Sources, sr)
			continue
		}

		for _, rec := range res.Records {
			rec.ID = strings.TrimSpace(rec.ID)
			switch {
			case rec.ID == "":
				report.Rejected = append(report.Rejected, Rejection{Source: res.Source, Reason: "blank id"})
				continue
			case math.IsNaN(rec.Value) || math.IsInf(rec.Value, 0):
				report.Rejected = append(report.Rejected, Rejection{Source: res.Source, ID: rec.ID, Reason: "non-finite value"})
				continue
			}
			rec.Signal = rec.Signal.Canonical()
			rec.Confidence = ClampConfidence(rec.Confidence)
			if rec.Source == "" {
				rec.Source = res.Source
			}
			if prev, ok := merged[rec.ID]; ok {
				report.Overwritten = append(report.Overwritten, Overwrite{ID: rec.ID, From: prev.Source, To: rec.Source})
			}
			merged[rec.ID] = rec
			sr.Records++
		}
		report.Sources = append(report.Sources, sr)
	}

	return IndicatorSet{records: merged}, report
}
