package sources

import (
	"context"
	"net/url"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/services/features"
	"CycleScope/internal/services/scoring"
)

// MarketSource derives price-based indicators from CoinGecko.
type MarketSource struct {
	HTTPSource
}

func NewMarketSource(opts ...Option) *MarketSource {
	return &MarketSource{newHTTPSource("market", "https://api.coingecko.com/api/v3", "", opts)}
}

const (
	// chartDays covers the 350-day pi cycle window with headroom.
	chartDays    = "400"
	momentumDays = 30
)

type coinResponse struct {
	MarketData struct {
		CurrentPrice      map[string]float64 `json:"current_price"`
		ATH               map[string]float64 `json:"ath"`
		CirculatingSupply float64            `json:"circulating_supply"`
		Change30d         float64            `json:"price_change_percentage_30d"`
	} `json:"market_data"`
}

type chartResponse struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

type globalResponse struct {
	Data struct {
		MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
	} `json:"data"`
}

// Fetch builds every market indicator it can; a failing sub-request only
// drops the indicators that depend on it.
func (s *MarketSource) Fetch(ctx context.Context) ([]models.IndicatorRecord, error) {
	var (
		out  []models.IndicatorRecord
		errs int
		last error

		haveMomentum bool
	)

	var coin coinResponse
	coinQuery := url.Values{
		"localization":   {"false"},
		"tickers":        {"false"},
		"market_data":    {"true"},
		"community_data": {"false"},
		"developer_data": {"false"},
	}
	if err := s.getJSON(ctx, s.baseURL, "/coins/bitcoin", coinQuery, &coin); err != nil {
		errs, last = errs+1, err
	} else {
		md := coin.MarketData
		price := md.CurrentPrice["usd"]
		if ath := md.ATH["usd"]; price > 0 && ath > 0 {
			out = append(out, s.record(scoring.IDATHDistance, features.ATHDistance(price, ath), map[string]any{
				"price": price, "ath": ath,
			}))
			rb := features.RainbowBand(price, s.now())
			r := rb.Result()
			out = append(out, s.ruled(scoring.IDRainbow, r.Value, r.Signal, r.Confidence, map[string]any{
				"zone":             rb.Zone.Name,
				"ratio":            rb.Ratio,
				"regression_price": rb.RegressionPrice,
				"description":      r.Description,
			}))
		}
		out = append(out, s.record(scoring.IDMomentum30d, md.Change30d, nil))
		haveMomentum = true
		if md.CirculatingSupply > 0 {
			s2f := features.StockToFlowRatio(md.CirculatingSupply)
			out = append(out, s.ruled(scoring.IDStockToFlow, s2f.Value, s2f.Signal, s2f.Confidence, map[string]any{
				"supply":      md.CirculatingSupply,
				"description": s2f.Description,
			}))
		}
	}

	var chart chartResponse
	chartQuery := url.Values{"vs_currency": {"usd"}, "days": {chartDays}, "interval": {"daily"}}
	if err := s.getJSON(ctx, s.baseURL, "/coins/bitcoin/market_chart", chartQuery, &chart); err != nil {
		errs, last = errs+1, err
	} else {
		prices := column(chart.Prices)
		if len(prices) >= 350 {
			pi := features.PiCycleTop(prices)
			out = append(out, s.ruled(scoring.IDPiCycle, pi.Value, pi.Signal, pi.Confidence, map[string]any{
				"description": pi.Description,
			}))
		}
		var trend map[string]any
		if len(prices) > momentumDays {
			window := prices[len(prices)-momentumDays-1:]
			change := features.PercentChange(window)
			if !haveMomentum {
				out = append(out, s.record(scoring.IDMomentum30d, change, map[string]any{"from_chart": true}))
			}
			trend = map[string]any{
				"price_change_30d": change,
				"realized_vol_30d": features.RealizedVolatility(features.LogReturns(window), momentumDays, features.BarsPerYear("daily")),
			}
		}
		if vols := column(chart.TotalVolumes); len(vols) > 0 {
			out = append(out, s.record(scoring.IDVolumeTrend, features.VolumeRatio(vols, 7, 30), trend))
		}
	}

	var global globalResponse
	if err := s.getJSON(ctx, s.baseURL, "/global", nil, &global); err != nil {
		errs, last = errs+1, err
	} else if dom, ok := global.Data.MarketCapPercentage["btc"]; ok {
		out = append(out, s.record(scoring.IDBTCDominance, dom, nil))
	}

	if len(out) == 0 {
		if errs > 0 {
			return nil, last
		}
		return nil, ErrNoData
	}
	return out, nil
}

func column(points [][2]float64) []float64 {
	out := make([]float64, 0, len(points))
	for _, p := range points {
		if finite(p[1]) {
			out = append(out, p[1])
		}
	}
	return out
}
