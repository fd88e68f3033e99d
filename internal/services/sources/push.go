package sources

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/services/scoring"
)

// PushSource holds records delivered by external producers (ETF flows,
// exchange reserves and the like). Each record expires ttl after it arrived.
type PushSource struct {
	mu         sync.Mutex
	records    map[string]pushed
	ttl        time.Duration
	now        func() time.Time
	classifier *scoring.Classifier
}

type pushed struct {
	rec     models.IndicatorRecord
	expires time.Time
}

// NewPushSource creates an empty push store. A non-positive ttl defaults to
// six hours.
func NewPushSource(ttl time.Duration, opts ...Option) *PushSource {
	o := newOptions("", "", opts)
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &PushSource{records: make(map[string]pushed), ttl: ttl, now: o.now, classifier: o.classifier}
}

func (p *PushSource) Name() string { return "push" }

// Put stores records, replacing earlier ones with the same id. Records with a
// blank id are ignored and records without a signal are classified from their
// value. It returns how many were stored.
func (p *PushSource) Put(records ...models.IndicatorRecord) int {
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, r := range records {
		r.ID = strings.TrimSpace(r.ID)
		if r.ID == "" {
			continue
		}
		if r.Signal == "" {
			r = p.classifier.Apply(r)
		}
		if r.Source == "" {
			r.Source = "push"
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = now
		}
		p.records[r.ID] = pushed{rec: r, expires: now.Add(p.ttl)}
		n++
	}
	return n
}

// Fetch returns live records ordered by id and drops expired ones.
func (p *PushSource) Fetch(_ context.Context) ([]models.IndicatorRecord, error) {
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]models.IndicatorRecord, 0, len(p.records))
	for id, e := range p.records {
		if now.After(e.expires) {
			delete(p.records, id)
			continue
		}
		out = append(out, e.rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
