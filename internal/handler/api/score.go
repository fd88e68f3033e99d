package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"CycleScope/internal/domain/models"
	domrepo "CycleScope/internal/domain/repository"
	"CycleScope/internal/service/ratelimit"
	"CycleScope/internal/services/scoring"
	"CycleScope/internal/usecase"
	"CycleScope/pkg/cache"
	xhttp "CycleScope/pkg/http"
	xlogger "CycleScope/pkg/logger"
	"CycleScope/pkg/util"

	"github.com/labstack/echo/v4"
)

const (
	historyLookback = 24 * time.Hour
	historyCacheTTL = 30 * time.Second
)

// ScoreService is what the handlers need from usecase.ScoreService.
type ScoreService interface {
	Latest() (usecase.Snapshot, error)
	Refresh(ctx context.Context, trigger string) (usecase.Snapshot, error)
	ScoreRecords(records []models.IndicatorRecord) (models.CompositeScore, scoring.AggregateReport)
	Table() *scoring.WeightTable
	Subscribe(buffer int) (<-chan models.CompositeScore, func())
}

// ScoreHandler serves the composite score API.
type ScoreHandler struct {
	logger     *xlogger.Logger
	svc        ScoreService
	store      domrepo.ScoreStore
	classifier *scoring.Classifier
	rl         *ratelimit.Limiter
	cache      cache.Service
	metrics    domrepo.Metrics
	now        func() time.Time
}

// HandlerOption configures ScoreHandler.
type HandlerOption func(*ScoreHandler)

// WithResponseCache caches history responses in c.
func WithResponseCache(c cache.Service) HandlerOption {
	return func(h *ScoreHandler) { h.cache = c }
}

// WithHandlerClock overrides the clock used to resolve history ranges.
func WithHandlerClock(now func() time.Time) HandlerOption {
	return func(h *ScoreHandler) { h.now = now }
}

func NewScoreHandler(
	logger *xlogger.Logger,
	svc ScoreService,
	store domrepo.ScoreStore,
	classifier *scoring.Classifier,
	rl *ratelimit.Limiter,
	metrics domrepo.Metrics,
	opts ...HandlerOption,
) *ScoreHandler {
	h := &ScoreHandler{
		logger:     logger,
		svc:        svc,
		store:      store,
		classifier: classifier,
		rl:         rl,
		metrics:    metrics,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *ScoreHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/score", h.Score)
	g.POST("/score", h.ScoreRecords)
	g.GET("/indicators", h.Indicators)
	g.GET("/weights", h.Weights)
	g.GET("/classify", h.Classify)
	g.GET("/history", h.History)
	g.POST("/refresh", h.Refresh)

	e.GET("/ws/score", h.Stream)
	e.GET("/health", h.Health)
}

var errNotReady = xhttp.UnavailableError("composite score not computed yet")

func (h *ScoreHandler) latest() (usecase.Snapshot, error) {
	snap, err := h.svc.Latest()
	if errors.Is(err, usecase.ErrNotReady) {
		return snap, errNotReady
	}
	return snap, err
}

// Score returns the latest composite.
func (h *ScoreHandler) Score(c echo.Context) error {
	snap, err := h.latest()
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=30")
	return xhttp.SuccessResponse(c, snap.Score)
}

// ScoreRecords scores a caller-supplied record set without touching state.
func (h *ScoreHandler) ScoreRecords(c echo.Context) error {
	req := &models.ScoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	score, report := h.svc.ScoreRecords(req.Records)
	return xhttp.SuccessResponse(c, ScoreResult{Score: score, Rejected: report.Rejected})
}

// ScoreResult is the body of POST /api/score.
type ScoreResult struct {
	Score    models.CompositeScore `json:"score"`
	Rejected []scoring.Rejection   `json:"rejected,omitempty"`
}

// IndicatorView is an aggregated record with its weight table metadata.
type IndicatorView struct {
	models.IndicatorRecord
	Name        string       `json:"name,omitempty"`
	Tier        scoring.Tier `json:"tier,omitempty"`
	Rank        int          `json:"rank,omitempty"`
	Description string       `json:"description,omitempty"`
	DataSource  string       `json:"data_source,omitempty"`
	Scored      bool         `json:"scored"`
}

// IndicatorsResult is the body of GET /api/indicators.
type IndicatorsResult struct {
	Indicators []IndicatorView        `json:"indicators"`
	Sources    []scoring.SourceReport `json:"sources"`
	LastUpdate time.Time              `json:"last_update"`
}

// Indicators returns the aggregated set from the latest pass.
func (h *ScoreHandler) Indicators(c echo.Context) error {
	req := &models.IndicatorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	snap, err := h.latest()
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	table := h.svc.Table()
	views := make([]IndicatorView, 0, len(snap.Indicators))
	for _, rec := range snap.Indicators {
		v := IndicatorView{IndicatorRecord: rec}
		if e, ok := table.Lookup(rec.ID); ok {
			v.IndicatorRecord = rec.WithWeight(e.Weight)
			v.Name, v.Tier, v.Rank = e.Name, e.Tier, e.Rank
			v.Description, v.DataSource = e.Description, e.DataSource
			v.Scored = true
		}
		if req.Tier != "" && string(v.Tier) != req.Tier {
			continue
		}
		views = append(views, v)
	}
	return xhttp.SuccessResponse(c, IndicatorsResult{
		Indicators: views,
		Sources:    snap.Report.Sources,
		LastUpdate: snap.Score.LastUpdate,
	})
}

// WeightsResult is the body of GET /api/weights.
type WeightsResult struct {
	Tiers []scoring.TierGroup `json:"tiers"`
	Count int                 `json:"count"`
	Sum   float64             `json:"sum"`
}

// Weights returns the weight table grouped by tier.
func (h *ScoreHandler) Weights(c echo.Context) error {
	t := h.svc.Table()
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.SuccessResponse(c, WeightsResult{Tiers: t.Tiers(), Count: t.Len(), Sum: t.Sum()})
}

// ClassifyResult is the body of GET /api/classify.
type ClassifyResult struct {
	ID    string `json:"id"`
	Value string `json:"value"`
	models.Classification
}

// Classify runs the classifier on a single value.
func (h *ScoreHandler) Classify(c echo.Context) error {
	req := &models.ClassifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, ClassifyResult{
		ID:             req.ID,
		Value:          req.Value,
		Classification: h.classifier.ClassifyString(req.ID, req.Value),
	})
}

// HistoryResult is the body of GET /api/history.
type HistoryResult struct {
	From      time.Time                 `json:"from"`
	To        time.Time                 `json:"to"`
	Indicator string                    `json:"indicator,omitempty"`
	Scores    []models.ScoreSnapshot    `json:"scores,omitempty"`
	Readings  []models.IndicatorReading `json:"readings,omitempty"`
}

// History reads persisted scores, or one indicator's readings when
// indicator is set. The range defaults to the last day.
func (h *ScoreHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Indicator != "" && !h.knownIndicator(req.Indicator) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("unknown indicator %q", req.Indicator))
	}
	from, to := util.ResolveRange(req.From, req.To, h.now(), historyLookback)
	ctx := c.Request().Context()

	key := cache.GenerateKey("history", req.Indicator,
		strconv.FormatInt(from.Unix(), 10), strconv.FormatInt(to.Unix(), 10), strconv.Itoa(req.Limit))
	if h.cache != nil {
		var cached HistoryResult
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			h.logger.Debug("history cache_hit", xlogger.String("key", key))
			return xhttp.SuccessResponse(c, cached)
		} else if !cache.IsMiss(err) {
			h.logger.Warn("history cache_get_error", xlogger.Error(err))
		}
	}

	res := HistoryResult{From: from, To: to, Indicator: req.Indicator}
	var err error
	if req.Indicator != "" {
		res.Readings, err = h.store.IndicatorHistory(ctx, req.Indicator, from, to, req.Limit)
	} else {
		res.Scores, err = h.store.History(ctx, from, to, req.Limit)
	}
	if err != nil {
		h.logger.Error("history query error", xlogger.Error(err))
		h.metrics.RecordError("history")
		return xhttp.AppErrorResponse(c, xhttp.InternalError("history unavailable").WithError(err))
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, res, historyCacheTTL); err != nil {
			h.logger.Warn("history cache_set_error", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScoreHandler) knownIndicator(id string) bool {
	if _, ok := h.svc.Table().Lookup(id); ok {
		return true
	}
	return h.classifier.Has(id)
}

// Refresh runs a manual scoring pass. Callers are rate limited per IP.
func (h *ScoreHandler) Refresh(c echo.Context) error {
	ip := c.RealIP()
	if !h.rl.Allow(ip) {
		wait := h.rl.RetryAfter(ip)
		secs := int(math.Ceil(wait.Seconds()))
		c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		h.logger.Warn("refresh rate_limited", xlogger.String("remote", ip))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError(
			fmt.Sprintf("refresh rate limited, retry in %s", wait.Round(time.Second))).
			WithParam("retry_after", secs))
	}
	snap, err := h.svc.Refresh(c.Request().Context(), usecase.TriggerManual)
	if err != nil {
		h.logger.Warn("refresh abandoned", xlogger.String("remote", ip), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("refresh abandoned").WithError(err))
	}
	return xhttp.SuccessResponse(c, snap)
}

// HealthResult is the body of GET /health.
type HealthResult struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
	Store  string `json:"store"`
}

// Health reports liveness, whether a score exists and store reachability.
func (h *ScoreHandler) Health(c echo.Context) error {
	_, err := h.svc.Latest()
	res := HealthResult{Status: "ok", Ready: err == nil, Store: "ok"}
	if err := h.store.Health(c.Request().Context()); err != nil {
		res.Status, res.Store = "degraded", err.Error()
		return xhttp.ServiceUnavailableResponse(c, res)
	}
	return xhttp.SuccessResponse(c, res)
}

var _ xhttp.Handler = (*ScoreHandler)(nil)
