package sources

import (
	"context"
	"sync"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/services/features"
	"CycleScope/internal/services/scoring"
	"CycleScope/pkg/logger"
)

// OnchainSource reads Bitcoin Magazine Pro style on-chain indicators.
type OnchainSource struct {
	HTTPSource
}

func NewOnchainSource(opts ...Option) *OnchainSource {
	return &OnchainSource{newHTTPSource("onchain", "https://api.bitcoinmagazinepro.com/v1", "", opts)}
}

type onchainEndpoint struct {
	id       string
	path     string
	field    string
	fallback float64
	// derive computes the value from raw components when field is absent.
	derive func(body map[string]any) (float64, bool)
}

// onchainEndpoints lists each indicator with the value used when its endpoint
// fails and fallback is enabled.
var onchainEndpoints = []onchainEndpoint{
	{scoring.IDMVRV, "/indicators/mvrv-zscore", "value", 2.3, nil},
	{scoring.IDLTHSupply, "/indicators/lth-supply", "value", 65, nil},
	{scoring.IDPuell, "/indicators/puell-multiple", "value", 1.2, derivePuell},
	{scoring.IDMPI, "/indicators/miner-metrics", "mpi", 1.1, nil},
	{scoring.IDNUPL, "/indicators/nupl", "value", 0.45, nil},
	{scoring.IDRHODL, "/indicators/rhodl-ratio", "value", 12000, nil},
	{scoring.IDReserveRisk, "/indicators/reserve-risk", "value", 0.0035, nil},
}

// Fetch queries every endpoint concurrently. Records keep endpoint order.
func (s *OnchainSource) Fetch(ctx context.Context) ([]models.IndicatorRecord, error) {
	type result struct {
		rec models.IndicatorRecord
		ok  bool
		err error
	}
	results := make([]result, len(onchainEndpoints))

	var wg sync.WaitGroup
	for i, ep := range onchainEndpoints {
		wg.Add(1)
		go func(i int, ep onchainEndpoint) {
			defer wg.Done()
			v, err := s.value(ctx, ep)
			switch {
			case err == nil:
				results[i] = result{rec: s.record(ep.id, v, nil), ok: true}
			case s.fallback:
				s.log.Warn("onchain endpoint failed, using fallback",
					logger.String("indicator", ep.id), logger.Error(err))
				results[i] = result{
					rec: s.ruled(ep.id, ep.fallback, models.SignalNeutral, 50, map[string]any{"fallback": true}),
					ok:  true,
				}
			default:
				results[i] = result{err: err}
			}
		}(i, ep)
	}
	wg.Wait()

	var (
		out  []models.IndicatorRecord
		last error
	)
	for _, r := range results {
		if r.ok {
			out = append(out, r.rec)
		} else if r.err != nil {
			last = r.err
		}
	}
	if len(out) == 0 {
		if last != nil {
			return nil, last
		}
		return nil, ErrNoData
	}
	return out, nil
}

func (s *OnchainSource) value(ctx context.Context, ep onchainEndpoint) (float64, error) {
	var body map[string]any
	if err := s.getJSON(ctx, s.baseURL, ep.path, nil, &body); err != nil {
		return 0, err
	}
	v, ok := body[ep.field].(float64)
	if !ok && ep.derive != nil {
		v, ok = ep.derive(body)
	}
	if !ok || !finite(v) {
		return 0, ErrNoData
	}
	return v, nil
}

// derivePuell rebuilds the multiple from daily issuance and its yearly mean.
func derivePuell(body map[string]any) (float64, bool) {
	daily, ok1 := body["daily_issuance_usd"].(float64)
	mean, ok2 := body["issuance_ma365_usd"].(float64)
	if !ok1 || !ok2 {
		return 0, false
	}
	return features.PuellMultiple(daily, mean), true
}
