package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cyclescope"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	gatherer prometheus.Gatherer

	sourceLatency  *prometheus.HistogramVec
	sourceErrors   *prometheus.CounterVec
	indicatorValue *prometheus.GaugeVec
	indicatorConf  *prometheus.GaugeVec
	overall        prometheus.Gauge
	included       prometheus.Gauge
	refreshes      *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
}

// New creates a recorder registered on reg. A nil reg means the default
// registry, which is also what /metrics serves.
func New(reg prometheus.Registerer) *Recorder {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	f := promauto.With(reg)

	return &Recorder{
		gatherer: gatherer,
		sourceLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "source_fetch_duration_seconds",
				Help:      "Duration of indicator source fetches",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
			},
			[]string{"source"},
		),
		sourceErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_fetch_errors_total",
				Help:      "Failed indicator source fetches",
			},
			[]string{"source"},
		),
		indicatorValue: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "indicator_value",
				Help:      "Last raw value per indicator",
			},
			[]string{"indicator"},
		),
		indicatorConf: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "indicator_confidence",
				Help:      "Last classifier confidence per indicator",
			},
			[]string{"indicator"},
		),
		overall: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "composite_overall",
			Help:      "Last composite score (0 = max buy pressure, 100 = max sell pressure)",
		}),
		included: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "composite_included_indicators",
			Help:      "Indicators that contributed to the last composite",
		}),
		refreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_total",
				Help:      "Scoring passes by trigger",
			},
			[]string{"trigger"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordSourceFetch records one source fetch; a non-nil err counts a failure.
func (r *Recorder) RecordSourceFetch(source string, seconds float64, err error) {
	r.sourceLatency.WithLabelValues(source).Observe(seconds)
	if err != nil {
		r.sourceErrors.WithLabelValues(source).Inc()
	}
}

// RecordIndicator records the latest value and confidence of an indicator.
func (r *Recorder) RecordIndicator(id string, value, confidence float64) {
	r.indicatorValue.WithLabelValues(id).Set(value)
	r.indicatorConf.WithLabelValues(id).Set(confidence)
}

// RecordComposite records the latest composite.
func (r *Recorder) RecordComposite(overall float64, included int) {
	r.overall.Set(overall)
	r.included.Set(float64(included))
}

// RecordRefresh counts a scoring pass.
func (r *Recorder) RecordRefresh(trigger string) {
	r.refreshes.WithLabelValues(trigger).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Handler serves the registry the recorder was registered on.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
