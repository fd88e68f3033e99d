package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/repository"
	"CycleScope/internal/service/ratelimit"
	"CycleScope/internal/services/scoring"
	"CycleScope/internal/usecase"
	"CycleScope/pkg/cache"
	xhttp "CycleScope/pkg/http"
	xlogger "CycleScope/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type fakeService struct {
	mu        sync.Mutex
	snap      *usecase.Snapshot
	table     *scoring.WeightTable
	refreshes int
	subs      []chan models.CompositeScore
}

func (f *fakeService) Latest() (usecase.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap == nil {
		return usecase.Snapshot{}, usecase.ErrNotReady
	}
	return *f.snap, nil
}

func (f *fakeService) Refresh(ctx context.Context, _ string) (usecase.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return usecase.Snapshot{}, err
	}
	f.refreshes++
	return *f.snap, nil
}

func (f *fakeService) ScoreRecords(recs []models.IndicatorRecord) (models.CompositeScore, scoring.AggregateReport) {
	set, report := scoring.Aggregate(scoring.Ready("request", recs...))
	return scoring.NewScorer(f.table).Score(set), report
}

func (f *fakeService) Table() *scoring.WeightTable { return f.table }

func (f *fakeService) Subscribe(buffer int) (<-chan models.CompositeScore, func()) {
	ch := make(chan models.CompositeScore, buffer)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	return ch, func() {}
}

func (f *fakeService) push(sc models.CompositeScore) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		ch <- sc
	}
}

func (f *fakeService) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

type noMetrics struct{}

func (noMetrics) RecordSourceFetch(string, float64, error) {}
func (noMetrics) RecordIndicator(string, float64, float64) {}
func (noMetrics) RecordComposite(float64, int)             {}
func (noMetrics) RecordRefresh(string)                     {}
func (noMetrics) RecordError(string)                       {}

var now = time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, snap *usecase.Snapshot) (*echo.Echo, *fakeService, *repository.MemoryScoreStore) {
	t.Helper()
	svc := &fakeService{snap: snap, table: scoring.DefaultWeightTable()}
	store := repository.NewMemoryScoreStore(16)
	h := NewScoreHandler(xlogger.NewNop(), svc, store, scoring.DefaultClassifier(),
		ratelimit.New(0.01, 1), noMetrics{},
		WithResponseCache(cache.NewMemoryCache()),
		WithHandlerClock(func() time.Time { return now }),
	)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, svc, store
}

func sampleSnapshot() *usecase.Snapshot {
	recs := []models.IndicatorRecord{
		{ID: scoring.IDMVRV, Value: 3.1, Signal: models.SignalNeutral, Confidence: 50, Source: "onchain"},
		{ID: scoring.IDFearGreed, Value: 82, Signal: models.SignalBearish, Confidence: 80, Source: "sentiment"},
		{ID: scoring.IDBTCDominance, Value: 52, Signal: models.SignalNeutral, Confidence: 50, Source: "market"},
	}
	set, report := scoring.Aggregate(scoring.Ready("test", recs...))
	score := scoring.NewScorer(scoring.DefaultWeightTable(), scoring.WithClock(func() time.Time { return now })).Score(set)
	score.ID = "score-1"
	return &usecase.Snapshot{Score: score, Indicators: set.Records(), Report: report}
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope[T any] struct {
	Status int `json:"status"`
	Data   T   `json:"data"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env envelope[T]
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return env.Data
}

func TestScoreNotReady(t *testing.T) {
	e, _, _ := newTestServer(t, nil)
	rec := do(e, http.MethodGet, "/api/score", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestScoreLatest(t *testing.T) {
	e, _, _ := newTestServer(t, sampleSnapshot())
	rec := do(e, http.MethodGet, "/api/score", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	sc := decode[models.CompositeScore](t, rec)
	if sc.ID != "score-1" || sc.Included() != 3 {
		t.Fatalf("unexpected score %+v", sc)
	}
}

func TestIndicatorsWithTierFilter(t *testing.T) {
	e, _, _ := newTestServer(t, sampleSnapshot())

	all := decode[IndicatorsResult](t, do(e, http.MethodGet, "/api/indicators", ""))
	if len(all.Indicators) != 3 {
		t.Fatalf("want 3 indicators, got %d", len(all.Indicators))
	}
	for _, v := range all.Indicators {
		if !v.Scored || v.Tier == "" || v.Weight == nil {
			t.Errorf("%s missing table metadata: %+v", v.ID, v)
		}
	}

	primary := decode[IndicatorsResult](t, do(e, http.MethodGet, "/api/indicators?tier=primary", ""))
	if len(primary.Indicators) != 1 || primary.Indicators[0].ID != scoring.IDMVRV {
		t.Fatalf("primary filter: %+v", primary.Indicators)
	}

	if rec := do(e, http.MethodGet, "/api/indicators?tier=bogus", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad tier should be 400, got %d", rec.Code)
	}
}

func TestWeights(t *testing.T) {
	e, _, _ := newTestServer(t, nil)
	w := decode[WeightsResult](t, do(e, http.MethodGet, "/api/weights", ""))
	if w.Count != 15 || w.Sum < 0.999 || w.Sum > 1.001 || len(w.Tiers) == 0 || w.Tiers[0].Tier != scoring.TierPrimary {
		t.Fatalf("unexpected weights %+v", w)
	}
}

func TestClassify(t *testing.T) {
	e, _, _ := newTestServer(t, nil)

	res := decode[ClassifyResult](t, do(e, http.MethodGet, "/api/classify?id=mvrv&value=0.5", ""))
	if res.Signal != models.SignalBullish || res.Confidence != 60 {
		t.Fatalf("mvrv 0.5: %+v", res)
	}
	res = decode[ClassifyResult](t, do(e, http.MethodGet, "/api/classify?id=nope&value=1", ""))
	if res.Signal != models.SignalNeutral || res.Confidence != 30 {
		t.Fatalf("unknown id: %+v", res)
	}
	rec := do(e, http.MethodGet, "/api/classify?id=mvrv", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing value should be 400, got %d", rec.Code)
	}
	verrs := decode[[]xhttp.ValidationError](t, rec)
	if len(verrs) != 1 || verrs[0].Field != "value" || verrs[0].Code != "ERR_REQUIRED" {
		t.Fatalf("validation errors %+v", verrs)
	}
}

func TestScoreRecordsIsStateless(t *testing.T) {
	e, svc, store := newTestServer(t, nil)
	body := `{"records":[{"id":"mvrv","value":4,"signal":"sell","confidence":100},{"id":"fear-greed","value":10,"signal":"bullish","confidence":100}]}`
	rec := do(e, http.MethodPost, "/api/score", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d %s", rec.Code, rec.Body.String())
	}
	res := decode[ScoreResult](t, rec)
	// mvrv .28 sell, fear-greed .08 buy: .28/.36*100
	if res.Score.Overall < 77.77 || res.Score.Overall > 77.78 || res.Score.Signal != models.CompositeSell {
		t.Fatalf("unexpected score %+v", res.Score)
	}
	if svc.snap != nil {
		t.Fatal("POST /api/score must not set a snapshot")
	}
	if got, _ := store.History(context.Background(), time.Time{}, now, 10); len(got) != 0 {
		t.Fatal("POST /api/score must not persist")
	}
}

func TestHistory(t *testing.T) {
	e, _, store := newTestServer(t, nil)
	ctx := context.Background()
	for i, sig := range []models.CompositeSignal{models.CompositeBuy, models.CompositeNeutral} {
		sc := sampleSnapshot().Score
		sc.ID = string(sig)
		sc.Signal = sig
		sc.LastUpdate = now.Add(-time.Duration(2-i) * time.Hour)
		_ = store.SaveScore(ctx, sc)
	}

	res := decode[HistoryResult](t, do(e, http.MethodGet, "/api/history", ""))
	if len(res.Scores) != 2 || res.Scores[0].ID != "neutral" || !res.To.Equal(now) || !res.From.Equal(now.Add(-24*time.Hour)) {
		t.Fatalf("unexpected history %+v", res)
	}

	res = decode[HistoryResult](t, do(e, http.MethodGet, "/api/history?indicator=mvrv&limit=1", ""))
	if len(res.Readings) != 1 || res.Readings[0].ID != scoring.IDMVRV {
		t.Fatalf("indicator history %+v", res)
	}

	if rec := do(e, http.MethodGet, "/api/history?limit=9000", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("limit over 5000 should be 400, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/history?indicator=bogus", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown indicator should be 404, got %d", rec.Code)
	}
}

func TestRefreshIsRateLimited(t *testing.T) {
	e, svc, _ := newTestServer(t, sampleSnapshot())
	if rec := do(e, http.MethodPost, "/api/refresh", ""); rec.Code != http.StatusOK {
		t.Fatalf("first refresh: %d", rec.Code)
	}
	rec := do(e, http.MethodPost, "/api/refresh", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second refresh should be limited, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
	errs := decode[[]xhttp.AppError](t, rec)
	if len(errs) != 1 || errs[0].Code != "ERR_RATE_LIMITED" || errs[0].Params["retry_after"] == nil {
		t.Fatalf("unexpected rate limit body %+v", errs)
	}
	if svc.refreshes != 1 {
		t.Fatalf("refreshes = %d", svc.refreshes)
	}
}

func TestRefreshAbandonedOnCancel(t *testing.T) {
	e, svc, _ := newTestServer(t, sampleSnapshot())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", rec.Code)
	}
	if svc.refreshes != 0 {
		t.Fatalf("refreshes = %d", svc.refreshes)
	}
}

type sickStore struct{ *repository.MemoryScoreStore }

func (sickStore) Health(context.Context) error { return errors.New("clickhouse: connection refused") }

func TestHealth(t *testing.T) {
	e, _, _ := newTestServer(t, nil)
	res := decode[HealthResult](t, do(e, http.MethodGet, "/health", ""))
	if res.Status != "ok" || res.Ready {
		t.Fatalf("unexpected health %+v", res)
	}

	h := NewScoreHandler(xlogger.NewNop(), &fakeService{table: scoring.DefaultWeightTable()},
		sickStore{repository.NewMemoryScoreStore(1)}, scoring.DefaultClassifier(), ratelimit.New(1, 1), noMetrics{})
	e2 := echo.New()
	h.RegisterRoutes(e2)
	if rec := do(e2, http.MethodGet, "/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", rec.Code)
	}
}

func TestStream(t *testing.T) {
	e, svc, _ := newTestServer(t, sampleSnapshot())
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/score", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first models.CompositeScore
	if err := conn.ReadJSON(&first); err != nil || first.ID != "score-1" {
		t.Fatalf("initial frame %+v %v", first, err)
	}

	deadline := time.Now().Add(time.Second)
	for svc.subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	svc.push(models.CompositeScore{ID: "score-2", Signal: models.CompositeSell})

	var next models.CompositeScore
	if err := conn.ReadJSON(&next); err != nil || next.ID != "score-2" {
		t.Fatalf("pushed frame %+v %v", next, err)
	}
}
