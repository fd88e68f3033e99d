package usecase

import (
	"context"
	"sync"
	"time"

	domrepo "CycleScope/internal/domain/repository"
	"CycleScope/internal/services/scoring"
	"CycleScope/pkg/logger"
)

// IndicatorCollector fans out to every registered source once per pass.
type IndicatorCollector struct {
	sources  []domrepo.IndicatorSource
	disabled []string
	timeout  time.Duration
	metrics  domrepo.Metrics
	log      *logger.Logger
}

// CollectorOption configures IndicatorCollector.
type CollectorOption func(*IndicatorCollector)

// WithSourceTimeout bounds each source fetch.
func WithSourceTimeout(d time.Duration) CollectorOption {
	return func(c *IndicatorCollector) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDisabledSources lists configured-off sources so they show up in reports.
func WithDisabledSources(names ...string) CollectorOption {
	return func(c *IndicatorCollector) { c.disabled = append(c.disabled, names...) }
}

func NewIndicatorCollector(sources []domrepo.IndicatorSource, metrics domrepo.Metrics, log *logger.Logger, opts ...CollectorOption) *IndicatorCollector {
	c := &IndicatorCollector{
		sources: sources,
		timeout: 15 * time.Second,
		metrics: metrics,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect fetches every source concurrently. Results come back in
// registration order whatever order the fetches finish in, so the
// aggregator's last-writer-wins rule stays deterministic. Disabled sources
// come first.
func (c *IndicatorCollector) Collect(ctx context.Context) []scoring.SourceResult {
	results := make([]scoring.SourceResult, len(c.disabled)+len(c.sources))
	for i, name := range c.disabled {
		results[i] = scoring.SourceResult{Source: name, Status: scoring.StatusDisabled}
	}
	offset := len(c.disabled)

	var wg sync.WaitGroup
	for i, src := range c.sources {
		wg.Add(1)
		go func(i int, src domrepo.IndicatorSource) {
			defer wg.Done()
			results[offset+i] = c.fetch(ctx, src)
		}(i, src)
	}
	wg.Wait()
	return results
}

func (c *IndicatorCollector) fetch(ctx context.Context, src domrepo.IndicatorSource) (res scoring.SourceResult) {
	name := src.Name()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("source panicked", logger.String("source", name), logger.Any("panic", r))
			res = scoring.Failed(name, errSourcePanic)
		}
		c.metrics.RecordSourceFetch(name, time.Since(start).Seconds(), res.Err)
	}()

	recs, err := src.Fetch(ctx)
	if err != nil {
		c.log.Warn("source fetch failed", logger.String("source", name), logger.Error(err))
		return scoring.Failed(name, err)
	}
	c.log.Debug("source fetched", logger.String("source", name), logger.Int("records", len(recs)))
	return scoring.Ready(name, recs...)
}

// Sources lists the enabled source names in registration order.
func (c *IndicatorCollector) Sources() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return names
}
