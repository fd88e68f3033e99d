package sources

import (
	"context"
	"net/url"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/services/features"
	"CycleScope/internal/services/scoring"
	"CycleScope/pkg/logger"
)

// NetworkSource reads blockchain.info network statistics.
type NetworkSource struct {
	HTTPSource
}

func NewNetworkSource(opts ...Option) *NetworkSource {
	return &NetworkSource{newHTTPSource("network", "https://api.blockchain.info", "", opts)}
}

type statsResponse struct {
	MarketPriceUSD       float64 `json:"market_price_usd"`
	HashRate             float64 `json:"hash_rate"`
	Difficulty           float64 `json:"difficulty"`
	NTx                  float64 `json:"n_tx"`
	EstimatedTxVolumeUSD float64 `json:"estimated_transaction_volume_usd"`
	MinersRevenueUSD     float64 `json:"miners_revenue_usd"`
}

type chartValues struct {
	Values []struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"values"`
}

const (
	ribbonShort = 30
	ribbonLong  = 60
)

// HashRibbonScore maps the 30d/60d hash rate ratio onto 0..1: 0.9 and below
// is full capitulation (0), 1.1 and above a strong recovery (1).
func HashRibbonScore(hashRates []float64) (float64, bool) {
	if len(hashRates) < ribbonLong {
		return 0, false
	}
	long := features.SMA(hashRates, ribbonLong)
	if long <= 0 {
		return 0, false
	}
	ribbon := features.SMA(hashRates, ribbonShort) / long
	return features.Clamp((ribbon-0.9)*5, 0, 1), true
}

// Fetch returns nvt, miner-revenue (millions USD) and hash-ribbons.
func (s *NetworkSource) Fetch(ctx context.Context) ([]models.IndicatorRecord, error) {
	var stats statsResponse
	if err := s.getJSON(ctx, s.baseURL, "/stats", nil, &stats); err != nil {
		return nil, err
	}

	out := []models.IndicatorRecord{
		s.record(scoring.IDNVT, features.NVT(stats.MarketPriceUSD, stats.EstimatedTxVolumeUSD), map[string]any{
			"daily_transactions": stats.NTx,
			"tx_volume_usd":      stats.EstimatedTxVolumeUSD,
		}),
	}
	if stats.MinersRevenueUSD > 0 {
		out = append(out, s.record(scoring.IDMinerRevenue, stats.MinersRevenueUSD/1e6, nil))
	}

	var chart chartValues
	q := url.Values{"timespan": {"90days"}, "format": {"json"}, "sampled": {"false"}}
	if err := s.getJSON(ctx, s.baseURL, "/charts/hash-rate", q, &chart); err != nil {
		s.log.Warn("hash rate chart unavailable", logger.Error(err))
		return out, nil
	}
	rates := make([]float64, 0, len(chart.Values))
	for _, v := range chart.Values {
		rates = append(rates, v.Y)
	}
	if score, ok := HashRibbonScore(rates); ok {
		out = append(out, s.record(scoring.IDHashRibbons, score, map[string]any{
			"hash_rate":  stats.HashRate,
			"difficulty": stats.Difficulty,
		}))
	}
	return out, nil
}
