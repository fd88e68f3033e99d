package repository

import (
	"context"
	"time"

	"CycleScope/internal/domain/models"
)

// IndicatorSource fetches the records one upstream provider can produce.
type IndicatorSource interface {
	Name() string
	Fetch(ctx context.Context) ([]models.IndicatorRecord, error)
}

// ScorePublisher fans composite scores out to downstream consumers.
type ScorePublisher interface {
	Publish(ctx context.Context, score models.CompositeScore) error
	Close() error
}

// ScoreStore persists composite scores and their indicator readings.
type ScoreStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	SaveScore(ctx context.Context, score models.CompositeScore) error
	History(ctx context.Context, from, to time.Time, limit int) ([]models.ScoreSnapshot, error)
	IndicatorHistory(ctx context.Context, id string, from, to time.Time, limit int) ([]models.IndicatorReading, error)
	Health(ctx context.Context) error // ping
	Close() error
}

type Metrics interface {
	RecordSourceFetch(source string, seconds float64, err error)
	RecordIndicator(id string, value, confidence float64)
	RecordComposite(overall float64, included int)
	RecordRefresh(trigger string)
	RecordError(kind string)
}
