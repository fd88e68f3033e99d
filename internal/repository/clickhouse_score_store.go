package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"CycleScope/internal/domain/models"
	domrepo "CycleScope/internal/domain/repository"
	pkgch "CycleScope/pkg/clickhouse"
	applogger "CycleScope/pkg/logger"
)

const (
	defaultHistoryLimit = 288
	maxHistoryLimit     = 5000
)

// CHScoreStore implements ScoreStore backed by ClickHouse.
type CHScoreStore struct {
	ch       *pkgch.Client
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHScoreStore(ch *pkgch.Client, database string, l *applogger.Logger) *CHScoreStore {
	if database == "" {
		database = "default"
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHScoreStore{ch: ch, db: ch.DB(), database: database, l: l}
}

// SchemaStatements returns the idempotent DDL for database.
func SchemaStatements(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.composite_scores (
    id String,
    computed_at DateTime64(3, 'UTC'),
    overall Float64,
    signal LowCardinality(String),
    peak_probability Float64,
    included UInt16
) ENGINE = MergeTree
PARTITION BY toYYYYMM(computed_at)
ORDER BY (computed_at, id)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.indicator_readings (
    score_id String,
    computed_at DateTime64(3, 'UTC'),
    indicator LowCardinality(String),
    value Float64,
    signal LowCardinality(String),
    confidence Float64,
    weight Float64,
    source LowCardinality(String)
) ENGINE = MergeTree
PARTITION BY toYYYYMM(computed_at)
ORDER BY (indicator, computed_at)`, database),
	}
}

func (s *CHScoreStore) Init(ctx context.Context) error {
	if err := s.ch.InitSchema(ctx, SchemaStatements(s.database)); err != nil {
		s.l.Error("clickhouse init schema error", applogger.String("database", s.database), applogger.Error(err))
		return err
	}
	return nil
}

// SaveScore writes the summary row and its readings in one batch.
func (s *CHScoreStore) SaveScore(ctx context.Context, score models.CompositeScore) error {
	start := time.Now()
	snap := score.Snapshot()
	readings := score.Readings()

	err := s.ch.InTx(ctx, func(tx *sql.Tx) error {
		q := fmt.Sprintf("INSERT INTO %s.composite_scores (id, computed_at, overall, signal, peak_probability, included) VALUES (?, ?, ?, ?, ?, ?)", s.database)
		if _, err := tx.ExecContext(ctx, q,
			snap.ID, snap.ComputedAt.UTC(), snap.Overall, string(snap.Signal), snap.PeakProbability, uint16(snap.Included),
		); err != nil {
			return fmt.Errorf("insert composite: %w", err)
		}
		if len(readings) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
			"INSERT INTO %s.indicator_readings (score_id, computed_at, indicator, value, signal, confidence, weight, source) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.database))
		if err != nil {
			return fmt.Errorf("prepare readings: %w", err)
		}
		defer stmt.Close()
		for _, r := range readings {
			if _, err := stmt.ExecContext(ctx,
				r.ScoreID, r.ComputedAt.UTC(), r.ID, r.Value, string(r.Signal), r.Confidence, r.Weight, r.Source,
			); err != nil {
				return fmt.Errorf("insert reading %s: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		s.l.Error("clickhouse save_score error", applogger.String("id", snap.ID), applogger.Error(err))
		return err
	}
	s.l.Debug("clickhouse save_score ok",
		applogger.String("id", snap.ID),
		applogger.Int("readings", len(readings)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// History returns composite snapshots in [from, to], newest first.
func (s *CHScoreStore) History(ctx context.Context, from, to time.Time, limit int) ([]models.ScoreSnapshot, error) {
	const qtpl = `
        SELECT id, computed_at, overall, signal, peak_probability, included
        FROM %s.composite_scores
        WHERE computed_at >= ? AND computed_at <= ?
        ORDER BY computed_at DESC
        LIMIT ?
    `
	limit = ClampLimit(limit)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.database), from.UTC(), to.UTC(), limit)
	if err != nil {
		s.l.Error("clickhouse history query error", applogger.Error(err))
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make([]models.ScoreSnapshot, 0, limit)
	for rows.Next() {
		var (
			snap     models.ScoreSnapshot
			signal   string
			included uint16
		)
		if err := rows.Scan(&snap.ID, &snap.ComputedAt, &snap.Overall, &signal, &snap.PeakProbability, &included); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Signal = models.CompositeSignal(signal)
		snap.Included = int(included)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// IndicatorHistory returns readings of one indicator in [from, to], newest first.
func (s *CHScoreStore) IndicatorHistory(ctx context.Context, id string, from, to time.Time, limit int) ([]models.IndicatorReading, error) {
	const qtpl = `
        SELECT score_id, computed_at, indicator, value, signal, confidence, weight, source
        FROM %s.indicator_readings
        WHERE indicator = ? AND computed_at >= ? AND computed_at <= ?
        ORDER BY computed_at DESC
        LIMIT ?
    `
	limit = ClampLimit(limit)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.database), id, from.UTC(), to.UTC(), limit)
	if err != nil {
		s.l.Error("clickhouse indicator_history query error", applogger.String("indicator", id), applogger.Error(err))
		return nil, fmt.Errorf("query indicator history: %w", err)
	}
	defer rows.Close()

	out := make([]models.IndicatorReading, 0, limit)
	for rows.Next() {
		var (
			r      models.IndicatorReading
			signal string
		)
		if err := rows.Scan(&r.ScoreID, &r.ComputedAt, &r.ID, &r.Value, &signal, &r.Confidence, &r.Weight, &r.Source); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.Signal = models.Signal(signal)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHScoreStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHScoreStore) Close() error {
	return s.ch.Close()
}

// ClampLimit maps a non-positive limit to the default page and caps the rest.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	default:
		return limit
	}
}

var _ domrepo.ScoreStore = (*CHScoreStore)(nil)
