package sources

import (
	"context"
	"net/url"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/services/scoring"
)

// PremiumSource measures the Coinbase spot premium over Binance.
type PremiumSource struct {
	HTTPSource
}

// NewPremiumSource uses Coinbase as the base URL and Binance spot as the
// alternate.
func NewPremiumSource(opts ...Option) *PremiumSource {
	return &PremiumSource{newHTTPSource("premium", "https://api.coinbase.com", "https://api.binance.com", opts)}
}

type coinbaseSpot struct {
	Data struct {
		Amount string `json:"amount"`
	} `json:"data"`
}

type binanceTicker struct {
	Price string `json:"price"`
}

// Fetch returns coinbase-premium in percent of the Binance price.
func (s *PremiumSource) Fetch(ctx context.Context) ([]models.IndicatorRecord, error) {
	var cb coinbaseSpot
	if err := s.getJSON(ctx, s.baseURL, "/v2/prices/BTC-USD/spot", nil, &cb); err != nil {
		return nil, err
	}
	var bn binanceTicker
	if err := s.getJSON(ctx, s.altURL, "/api/v3/ticker/price", url.Values{"symbol": {"BTCUSDT"}}, &bn); err != nil {
		return nil, err
	}

	coinbase, ok1 := parseRate(cb.Data.Amount)
	binance, ok2 := parseRate(bn.Price)
	if !ok1 || !ok2 || binance <= 0 {
		return nil, ErrNoData
	}

	premium := (coinbase - binance) / binance * 100
	return []models.IndicatorRecord{
		s.record(scoring.IDCoinbasePremium, premium, map[string]any{
			"coinbase": coinbase, "binance": binance,
		}),
	}, nil
}
