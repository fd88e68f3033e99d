package repository

import (
	"context"
	"sync"
	"time"

	"CycleScope/internal/domain/models"
	domrepo "CycleScope/internal/domain/repository"
)

// MemoryScoreStore keeps the most recent scores in a ring. It backs history
// when ClickHouse is disabled.
type MemoryScoreStore struct {
	mu       sync.RWMutex
	scores   []models.CompositeScore
	capacity int
	next     int
	full     bool
}

// NewMemoryScoreStore keeps up to capacity scores; non-positive means one
// day at the default five-minute interval.
func NewMemoryScoreStore(capacity int) *MemoryScoreStore {
	if capacity <= 0 {
		capacity = defaultHistoryLimit
	}
	return &MemoryScoreStore{scores: make([]models.CompositeScore, capacity), capacity: capacity}
}

func (s *MemoryScoreStore) Init(context.Context) error { return nil }

func (s *MemoryScoreStore) SaveScore(_ context.Context, score models.CompositeScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[s.next] = score
	s.next = (s.next + 1) % s.capacity
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// newestFirst walks the ring from the latest write backwards. Caller holds the lock.
func (s *MemoryScoreStore) newestFirst(fn func(models.CompositeScore) bool) {
	n := s.next
	if s.full {
		n = s.capacity
	}
	for i := 1; i <= n; i++ {
		idx := (s.next - i + s.capacity) % s.capacity
		if !fn(s.scores[idx]) {
			return
		}
	}
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func (s *MemoryScoreStore) History(_ context.Context, from, to time.Time, limit int) ([]models.ScoreSnapshot, error) {
	limit = ClampLimit(limit)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ScoreSnapshot, 0)
	s.newestFirst(func(sc models.CompositeScore) bool {
		if inRange(sc.LastUpdate, from, to) {
			out = append(out, sc.Snapshot())
		}
		return len(out) < limit
	})
	return out, nil
}

func (s *MemoryScoreStore) IndicatorHistory(_ context.Context, id string, from, to time.Time, limit int) ([]models.IndicatorReading, error) {
	limit = ClampLimit(limit)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.IndicatorReading, 0)
	s.newestFirst(func(sc models.CompositeScore) bool {
		if !inRange(sc.LastUpdate, from, to) {
			return true
		}
		for _, r := range sc.Readings() {
			if r.ID == id {
				out = append(out, r)
				break
			}
		}
		return len(out) < limit
	})
	return out, nil
}

func (s *MemoryScoreStore) Health(context.Context) error { return nil }
func (s *MemoryScoreStore) Close() error                 { return nil }

var _ domrepo.ScoreStore = (*MemoryScoreStore)(nil)
