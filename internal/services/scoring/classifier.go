package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"CycleScope/internal/domain/models"
	"CycleScope/pkg/util"
)

var (
	ErrEmptyTable    = errors.New("scoring: weight table is empty")
	ErrDuplicateID   = errors.New("scoring: duplicate indicator id")
	ErrInvalidID     = errors.New("scoring: indicator id is blank")
	ErrInvalidWeight = errors.New("scoring: invalid declared weight")
	ErrMissingLadder = errors.New("scoring: no threshold ladder for indicator")
)

var (
	unknownIndicator  = models.Classification{Signal: models.SignalNeutral, Confidence: 30}
	invalidIndicator  = models.Classification{Signal: models.SignalNeutral, Confidence: 0}
	defaultClassifier = NewClassifier(DefaultLadders())
)

// Classifier maps (indicator id, raw value) to a signal and confidence. It is
// immutable once built and safe for concurrent use.
type Classifier struct {
	ladders map[string]Ladder
}

// NewClassifier builds a classifier over a private copy of ladders.
func NewClassifier(ladders map[string]Ladder) *Classifier {
	cp := make(map[string]Ladder, len(ladders))
	for id, l := range ladders {
		bands := make([]Band, len(l.Bands))
		copy(bands, l.Bands)
		cp[id] = Ladder{Bands: bands, Confidence: l.Confidence}
	}
	return &Classifier{ladders: cp}
}

// DefaultClassifier returns the classifier backed by DefaultLadders.
func DefaultClassifier() *Classifier { return defaultClassifier }

// CalculateIndicatorSignal classifies value with the built-in ladders.
func CalculateIndicatorSignal(id string, value float64) models.Classification {
	return defaultClassifier.Classify(id, value)
}

// Classify returns {neutral, 0} for non-finite values and {neutral, 30} for
// ids without a ladder.
func (c *Classifier) Classify(id string, value float64) models.Classification {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return invalidIndicator
	}
	l, ok := c.ladders[id]
	if !ok {
		return unknownIndicator
	}
	return l.Evaluate(value)
}

// ClassifyString coerces raw the way a lenient float parser would (leading
// number wins, trailing text ignored) and classifies the result.
func (c *Classifier) ClassifyString(id, raw string) models.Classification {
	v, ok := util.ParseFloatPrefix(raw)
	if !ok {
		return invalidIndicator
	}
	return c.Classify(id, v)
}

// Apply fills in Signal and Confidence on r from its Value.
func (c *Classifier) Apply(r models.IndicatorRecord) models.IndicatorRecord {
	cls := c.Classify(r.ID, r.Value)
	r.Signal = cls.Signal
	r.Confidence = cls.Confidence
	return r
}

// Has reports whether a ladder exists for id.
func (c *Classifier) Has(id string) bool {
	_, ok := c.ladders[id]
	return ok
}

// IDs lists the ids with a ladder, sorted.
func (c *Classifier) IDs() []string {
	ids := make([]string, 0, len(c.ladders))
	for id := range c.ladders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate fails when any indicator in table has no ladder.
func (c *Classifier) Validate(table *WeightTable) error {
	if table == nil {
		return ErrEmptyTable
	}
	var errs []error
	for _, e := range table.entries {
		if !c.Has(e.ID) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingLadder, e.ID))
		}
	}
	return errors.Join(errs...)
}
