package repository

import (
	"context"

	"CycleScope/internal/domain/models"
	domrepo "CycleScope/internal/domain/repository"
	pkgkafka "CycleScope/pkg/kafka"
)

// KafkaScorePublisher implements ScorePublisher for Kafka. Messages are keyed
// by composite signal so one partition sees a signal's scores in order.
type KafkaScorePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaScorePublisher(producer *pkgkafka.Producer, topic string) *KafkaScorePublisher {
	return &KafkaScorePublisher{producer: producer, topic: topic}
}

func (p *KafkaScorePublisher) Publish(ctx context.Context, score models.CompositeScore) error {
	return p.producer.Publish(ctx, p.topic, []byte(score.Signal), score)
}

// Close is a no-op; the producer is shared with the log collector and
// closed by its owner.
func (p *KafkaScorePublisher) Close() error { return nil }

// NoopPublisher drops scores when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.CompositeScore) error { return nil }
func (NoopPublisher) Close() error                                         { return nil }

var (
	_ domrepo.ScorePublisher = (*KafkaScorePublisher)(nil)
	_ domrepo.ScorePublisher = NoopPublisher{}
)
