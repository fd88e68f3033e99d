package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"CycleScope/internal/domain/models"
	domrepo "CycleScope/internal/domain/repository"
	"CycleScope/internal/services/sources"
	pkgkafka "CycleScope/pkg/kafka"
	"CycleScope/pkg/logger"
)

// Triggerer schedules a debounced refresh.
type Triggerer interface {
	Trigger()
}

// RecordsHandler consumes pushed indicator records from Kafka.
type RecordsHandler struct {
	topic   string
	push    *sources.PushSource
	refresh Triggerer
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewRecordsHandler(topic string, push *sources.PushSource, refresh Triggerer, metrics domrepo.Metrics, log *logger.Logger) *RecordsHandler {
	return &RecordsHandler{topic: topic, push: push, refresh: refresh, metrics: metrics, log: log}
}

func (h *RecordsHandler) Topic() string { return h.topic }

// Handle accepts one record object or an array of them.
func (h *RecordsHandler) Handle(_ context.Context, b []byte) error {
	recs, err := DecodeRecords(b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	n := h.push.Put(recs...)
	h.log.Debug("pushed records stored", logger.Int("received", len(recs)), logger.Int("stored", n))
	if n > 0 {
		h.refresh.Trigger()
	}
	return nil
}

// DecodeRecords parses a JSON record or array of records.
func DecodeRecords(b []byte) ([]models.IndicatorRecord, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, fmt.Errorf("decode records: empty payload")
	}
	if b[0] == '[' {
		var recs []models.IndicatorRecord
		if err := json.Unmarshal(b, &recs); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return recs, nil
	}
	var rec models.IndicatorRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return []models.IndicatorRecord{rec}, nil
}

var _ pkgkafka.MessageHandler = (*RecordsHandler)(nil)
