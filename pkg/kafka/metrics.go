package kafka

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type consumerMetrics struct {
	queueDepth    *prometheus.GaugeVec
	handleLatency *prometheus.HistogramVec
	handleErrors  *prometheus.CounterVec
}

type producerMetrics struct {
	messages *prometheus.CounterVec
	errors   *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	defaultConsumerMetrics     *consumerMetrics
	defaultProducerMetrics     *producerMetrics
	defaultConsumerMetricsOnce sync.Once
	defaultProducerMetricsOnce sync.Once
)

// newConsumerMetrics registers on reg. A nil reg shares one set on the
// default registry across consumers.
func newConsumerMetrics(reg prometheus.Registerer) *consumerMetrics {
	if reg == nil {
		defaultConsumerMetricsOnce.Do(func() {
			defaultConsumerMetrics = buildConsumerMetrics(prometheus.DefaultRegisterer)
		})
		return defaultConsumerMetrics
	}
	return buildConsumerMetrics(reg)
}

func buildConsumerMetrics(reg prometheus.Registerer) *consumerMetrics {
	m := &consumerMetrics{
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "cyclescope_kafka_consumer_queue_depth", Help: "Number of messages waiting in consumer queue"},
			[]string{"topic"},
		),
		handleLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "cyclescope_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		),
		handleErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "cyclescope_kafka_consumer_errors_total", Help: "Messages that failed after all retries"},
			[]string{"topic"},
		),
	}
	m.queueDepth = registerOrExisting(reg, m.queueDepth)
	m.handleLatency = registerOrExisting(reg, m.handleLatency)
	m.handleErrors = registerOrExisting(reg, m.handleErrors)
	return m
}

func newProducerMetrics(reg prometheus.Registerer) *producerMetrics {
	if reg == nil {
		defaultProducerMetricsOnce.Do(func() {
			defaultProducerMetrics = buildProducerMetrics(prometheus.DefaultRegisterer)
		})
		return defaultProducerMetrics
	}
	return buildProducerMetrics(reg)
}

func buildProducerMetrics(reg prometheus.Registerer) *producerMetrics {
	m := &producerMetrics{
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "cyclescope_kafka_producer_messages_total", Help: "Total messages published to Kafka"},
			[]string{"topic", "compression", "result"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "cyclescope_kafka_producer_errors_total", Help: "Total producer errors"},
			[]string{"topic"},
		),
		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "cyclescope_kafka_producer_bytes_total", Help: "Total payload bytes published"},
			[]string{"topic", "compression"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "cyclescope_kafka_producer_publish_seconds", Help: "Publish latency", Buckets: prometheus.DefBuckets},
			[]string{"topic"},
		),
	}
	m.messages = registerOrExisting(reg, m.messages)
	m.errors = registerOrExisting(reg, m.errors)
	m.bytes = registerOrExisting(reg, m.bytes)
	m.latency = registerOrExisting(reg, m.latency)
	return m
}

// registerOrExisting registers c, returning the already registered collector
// when an identical one exists.
func registerOrExisting[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
