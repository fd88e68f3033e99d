package sources

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/services/scoring"
	xhttp "CycleScope/pkg/http"
	"CycleScope/pkg/logger"
)

// ErrNoData means an upstream answered but carried nothing usable.
var ErrNoData = errors.New("sources: no data")

// Option configures a source.
type Option func(*options)

type options struct {
	baseURL    string
	altURL     string
	apiKey     string
	client     *xhttp.Client
	attempts   int
	backoff    time.Duration
	log        *logger.Logger
	classifier *scoring.Classifier
	now        func() time.Time
	fallback   bool
}

func newOptions(baseURL, altURL string, opts []Option) *options {
	o := &options{
		baseURL:    baseURL,
		altURL:     altURL,
		attempts:   3,
		backoff:    200 * time.Millisecond,
		classifier: scoring.DefaultClassifier(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.client == nil {
		o.client = xhttp.NewClient(xhttp.WithTimeout(10 * time.Second))
	}
	if o.log == nil {
		o.log = logger.NewNop()
	}
	return o
}

// WithBaseURL overrides the primary API root.
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAltBaseURL overrides the secondary API root of two-venue sources.
func WithAltBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.altURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAPIKey sets the bearer token sent to keyed APIs.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithHTTPClient injects the HTTP client.
func WithHTTPClient(c *xhttp.Client) Option {
	return func(o *options) { o.client = c }
}

// WithRetry sets the attempt count and base backoff for transient errors.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.attempts = attempts
		}
		o.backoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClassifier overrides the classifier used to derive signals.
func WithClassifier(c *scoring.Classifier) Option {
	return func(o *options) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithFallback makes failed endpoints yield documented default records.
func WithFallback(enabled bool) Option {
	return func(o *options) { o.fallback = enabled }
}

// HTTPSource is the shared base of every upstream adapter: JSON GET with
// retry on transient failures plus record construction.
type HTTPSource struct {
	name string
	*options
}

func newHTTPSource(name, baseURL, altURL string, opts []Option) HTTPSource {
	o := newOptions(baseURL, altURL, opts)
	o.log = o.log.With(logger.String("source", name))
	return HTTPSource{name: name, options: o}
}

// Name returns the source name.
func (s *HTTPSource) Name() string { return s.name }

// getJSON fetches root+path with query and decodes into dest, retrying
// network errors and 429/5xx responses with linear backoff.
func (s *HTTPSource) getJSON(ctx context.Context, root, path string, query url.Values, dest interface{}) error {
	u := root + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var headers map[string]string
	if s.apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + s.apiKey}
	}

	var err error
	for i := 1; i <= s.attempts; i++ {
		err = s.client.GetJSON(ctx, u, headers, dest)
		if err == nil || !retryable(err) || i == s.attempts {
			break
		}
		s.log.Debug("retrying upstream request", logger.String("path", path), logger.Int("attempt", i), logger.Error(err))
		select {
		case <-time.After(time.Duration(i) * s.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return fmt.Errorf("%s GET %s: %w", s.name, path, err)
	}
	return nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

// record classifies value with the classifier.
func (s *HTTPSource) record(id string, value float64, details map[string]any) models.IndicatorRecord {
	return s.classifier.Apply(models.IndicatorRecord{
		ID:        id,
		Value:     value,
		Details:   details,
		Source:    s.name,
		Timestamp: s.now(),
	})
}

// ruled builds a record whose signal comes from a feature-specific rule
// rather than the classifier.
func (s *HTTPSource) ruled(id string, value float64, signal models.Signal, confidence float64, details map[string]any) models.IndicatorRecord {
	return models.IndicatorRecord{
		ID:         id,
		Value:      value,
		Signal:     signal.Canonical(),
		Confidence: scoring.ClampConfidence(confidence),
		Details:    details,
		Source:     s.name,
		Timestamp:  s.now(),
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
