package sources

import (
	"context"
	"time"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/domain/repository"
	"CycleScope/pkg/cache"
	"CycleScope/pkg/logger"
)

// CachedSource serves a source from cache while the entry is fresh.
type CachedSource struct {
	inner repository.IndicatorSource
	cache cache.Service
	ttl   time.Duration
	key   string
	log   *logger.Logger
}

// NewCachedSource wraps inner. The cache key is "source:<name>"; the Redis
// cache adds its own prefix.
func NewCachedSource(inner repository.IndicatorSource, c cache.Service, ttl time.Duration, log *logger.Logger) *CachedSource {
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedSource{
		inner: inner,
		cache: c,
		ttl:   ttl,
		key:   cache.GenerateKey("source", inner.Name()),
		log:   log,
	}
}

func (c *CachedSource) Name() string { return c.inner.Name() }

// Fetch returns cached records when present, otherwise fetches and stores
// them. Cache failures degrade to a direct fetch.
func (c *CachedSource) Fetch(ctx context.Context) ([]models.IndicatorRecord, error) {
	var recs []models.IndicatorRecord
	err := c.cache.Get(ctx, c.key, &recs)
	if err == nil && len(recs) > 0 {
		return recs, nil
	}
	if err != nil && !cache.IsMiss(err) {
		c.log.Warn("source cache read failed", logger.String("key", c.key), logger.Error(err))
	}

	recs, err = c.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(recs) > 0 {
		if err := c.cache.Set(ctx, c.key, recs, c.ttl); err != nil {
			c.log.Warn("source cache write failed", logger.String("key", c.key), logger.Error(err))
		}
	}
	return recs, nil
}

// Invalidate drops the cached entry.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	return c.cache.Delete(ctx, c.key)
}
