package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordSourceFetch("mempool", 0.2, nil)
	r.RecordSourceFetch("mempool", 0.3, errors.New("timeout"))
	r.RecordIndicator("mvrv", 2.3, 50)
	r.RecordComposite(61.5, 9)
	r.RecordRefresh("ticker")
	r.RecordRefresh("ticker")
	r.RecordError("persist")

	if got := testutil.ToFloat64(r.sourceErrors.WithLabelValues("mempool")); got != 1 {
		t.Errorf("source errors = %v", got)
	}
	if got := testutil.ToFloat64(r.indicatorValue.WithLabelValues("mvrv")); got != 2.3 {
		t.Errorf("indicator value = %v", got)
	}
	if got := testutil.ToFloat64(r.overall); got != 61.5 {
		t.Errorf("overall = %v", got)
	}
	if got := testutil.ToFloat64(r.included); got != 9 {
		t.Errorf("included = %v", got)
	}
	if got := testutil.ToFloat64(r.refreshes.WithLabelValues("ticker")); got != 2 {
		t.Errorf("refreshes = %v", got)
	}

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "cyclescope_composite_overall 61.5") {
		t.Fatalf("metrics output missing composite gauge:\n%s", rec.Body.String())
	}
}
