package usecase

import (
	"context"
	"sync"
	"time"

	"CycleScope/internal/domain/models"
	domrepo "CycleScope/internal/domain/repository"
	"CycleScope/internal/domain/service"
	"CycleScope/internal/services/scoring"
	"CycleScope/pkg/logger"

	"github.com/google/uuid"
)

const (
	minInterval = time.Minute
	maxInterval = 30 * time.Minute
)

// Refresh triggers recorded in metrics.
const (
	TriggerStartup = "startup"
	TriggerTicker  = "ticker"
	TriggerPush    = "push"
	TriggerManual  = "manual"
)

// ClampInterval bounds the refresh period to one minute .. thirty minutes.
func ClampInterval(d time.Duration) time.Duration {
	switch {
	case d < minInterval:
		return minInterval
	case d > maxInterval:
		return maxInterval
	default:
		return d
	}
}

// Snapshot is the outcome of one scoring pass.
type Snapshot struct {
	Score      models.CompositeScore    `json:"score"`
	Indicators []models.IndicatorRecord `json:"indicators"`
	Report     scoring.AggregateReport  `json:"report"`
}

// ScoreService runs collect -> aggregate -> score and fans the result out.
type ScoreService struct {
	collector  *IndicatorCollector
	scorer     *scoring.Scorer
	classifier *scoring.Classifier
	store     domrepo.ScoreStore
	publisher domrepo.ScorePublisher
	notifier  service.Notifier
	metrics   domrepo.Metrics
	log       *logger.Logger

	interval time.Duration
	debounce time.Duration
	newID    func() string

	refreshMu sync.Mutex
	mu        sync.RWMutex
	latest    *Snapshot

	trigger chan struct{}

	subsMu sync.Mutex
	subs   map[int]chan models.CompositeScore
	nextID int
}

// ScoreServiceOption configures ScoreService.
type ScoreServiceOption func(*ScoreService)

// WithInterval sets the ticker period; it is clamped by ClampInterval.
func WithInterval(d time.Duration) ScoreServiceOption {
	return func(s *ScoreService) { s.interval = ClampInterval(d) }
}

// WithDebounce sets how long pushed-record triggers are coalesced.
func WithDebounce(d time.Duration) ScoreServiceOption {
	return func(s *ScoreService) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// WithClassifier fills in the signal of caller-supplied records that arrive
// without one.
func WithClassifier(c *scoring.Classifier) ScoreServiceOption {
	return func(s *ScoreService) { s.classifier = c }
}

// WithIDGenerator overrides score id generation.
func WithIDGenerator(fn func() string) ScoreServiceOption {
	return func(s *ScoreService) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewScoreService(
	collector *IndicatorCollector,
	scorer *scoring.Scorer,
	store domrepo.ScoreStore,
	publisher domrepo.ScorePublisher,
	notifier service.Notifier,
	metrics domrepo.Metrics,
	log *logger.Logger,
	opts ...ScoreServiceOption,
) *ScoreService {
	s := &ScoreService{
		collector: collector,
		scorer:    scorer,
		store:     store,
		publisher: publisher,
		notifier:  notifier,
		metrics:   metrics,
		log:       log,
		interval:  5 * time.Minute,
		debounce:  2 * time.Second,
		newID:     uuid.NewString,
		trigger:   make(chan struct{}, 1),
		subs:      make(map[int]chan models.CompositeScore),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh runs one scoring pass. Passes never overlap. When ctx ends while
// sources are being collected the pass is abandoned and the previous
// snapshot stays current. Persist, publish and notify failures are logged
// and counted; the new snapshot is kept anyway.
func (s *ScoreService) Refresh(ctx context.Context, trigger string) (Snapshot, error) {
	snap, prev, err := s.refresh(ctx, trigger)
	if err != nil {
		return Snapshot{}, err
	}
	if prev != nil && prev.Score.Signal != snap.Score.Signal {
		if err := s.notifier.NotifySignalChange(ctx, prev.Score, snap.Score); err != nil {
			s.metrics.RecordError("notify")
			s.log.Warn("signal change notification failed", logger.Error(err))
		}
	}
	return snap, nil
}

func (s *ScoreService) refresh(ctx context.Context, trigger string) (Snapshot, *Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	results := s.collector.Collect(ctx)
	if err := ctx.Err(); err != nil {
		s.metrics.RecordError("refresh_aborted")
		s.log.Warn("scoring pass abandoned",
			logger.String("trigger", trigger), logger.Error(err))
		return Snapshot{}, nil, err
	}

	set, report := scoring.Aggregate(results...)
	for _, r := range report.Rejected {
		s.log.Warn("indicator rejected",
			logger.String("source", r.Source), logger.String("indicator", r.ID), logger.String("reason", r.Reason))
	}

	score := s.scorer.Score(set)
	score.ID = s.newID()
	snap := Snapshot{Score: score, Indicators: set.Records(), Report: report}

	s.metrics.RecordRefresh(trigger)
	s.metrics.RecordComposite(score.Overall, score.Included())
	for _, r := range snap.Indicators {
		s.metrics.RecordIndicator(r.ID, r.Value, r.Confidence)
	}

	s.mu.Lock()
	prev := s.latest
	s.latest = &snap
	s.mu.Unlock()

	s.log.Info("composite score updated",
		logger.String("id", score.ID),
		logger.Float64("overall", score.Overall),
		logger.String("signal", string(score.Signal)),
		logger.Int("included", score.Included()),
		logger.String("trigger", trigger),
	)

	if err := s.store.SaveScore(ctx, score); err != nil {
		s.metrics.RecordError("persist")
		s.log.Error("persist score failed", logger.Error(err))
	}
	if err := s.publisher.Publish(ctx, score); err != nil {
		s.metrics.RecordError("publish")
		s.log.Error("publish score failed", logger.Error(err))
	}
	s.broadcast(score)
	return snap, prev, nil
}

// Latest returns the most recent snapshot.
func (s *ScoreService) Latest() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Snapshot{}, ErrNotReady
	}
	return *s.latest, nil
}

// ScoreRecords scores caller-supplied records with the service's table,
// without touching state. Records without a signal are classified first.
func (s *ScoreService) ScoreRecords(records []models.IndicatorRecord) (models.CompositeScore, scoring.AggregateReport) {
	if s.classifier != nil {
		classified := make([]models.IndicatorRecord, len(records))
		for i, r := range records {
			if r.Signal == "" {
				r = s.classifier.Apply(r)
			}
			classified[i] = r
		}
		records = classified
	}
	set, report := scoring.Aggregate(scoring.Ready("request", records...))
	return s.scorer.Score(set), report
}

// Table returns the weight table in use.
func (s *ScoreService) Table() *scoring.WeightTable { return s.scorer.Table() }

// Trigger asks Run for a debounced refresh. It never blocks.
func (s *ScoreService) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run scores once, then on every tick and after debounced triggers, until
// ctx is done.
func (s *ScoreService) Run(ctx context.Context) error {
	s.Refresh(ctx, TriggerStartup)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var (
		debounce  *time.Timer
		debounced <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Refresh(ctx, TriggerTicker)
		case <-s.trigger:
			if debounce == nil {
				debounce = time.NewTimer(s.debounce)
				debounced = debounce.C
			}
		case <-debounced:
			debounce, debounced = nil, nil
			s.Refresh(ctx, TriggerPush)
		}
	}
}

// Subscribe registers for every new composite. The channel drops updates
// when the subscriber falls behind. Call the returned func to unsubscribe.
func (s *ScoreService) Subscribe(buffer int) (<-chan models.CompositeScore, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan models.CompositeScore, buffer)

	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

func (s *ScoreService) broadcast(score models.CompositeScore) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- score:
		default:
		}
	}
}
