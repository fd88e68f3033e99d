package sources

import (
	"context"
	"net/url"
	"strconv"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/services/features"
	"CycleScope/internal/services/scoring"
)

// DerivativesSource blends Binance and Bybit perpetual funding.
type DerivativesSource struct {
	HTTPSource
}

// NewDerivativesSource uses Binance futures as the base URL and Bybit as the
// alternate.
func NewDerivativesSource(opts ...Option) *DerivativesSource {
	return &DerivativesSource{newHTTPSource("derivatives", "https://fapi.binance.com", "https://api.bybit.com", opts)}
}

type binancePremiumIndex struct {
	LastFundingRate string `json:"lastFundingRate"`
	MarkPrice       string `json:"markPrice"`
}

type bybitTickers struct {
	Result struct {
		List []struct {
			FundingRate  string `json:"fundingRate"`
			OpenInterest string `json:"openInterest"`
		} `json:"list"`
	} `json:"result"`
}

// Fetch returns funding-rates in percent. With one venue down the other is
// used at full weight.
func (s *DerivativesSource) Fetch(ctx context.Context) ([]models.IndicatorRecord, error) {
	var (
		binance, bybit       float64
		binanceOK, bybitOK   bool
		binanceErr, bybitErr error
	)

	var pi binancePremiumIndex
	if binanceErr = s.getJSON(ctx, s.baseURL, "/fapi/v1/premiumIndex", url.Values{"symbol": {"BTCUSDT"}}, &pi); binanceErr == nil {
		binance, binanceOK = parseRate(pi.LastFundingRate)
	}

	var bt bybitTickers
	q := url.Values{"category": {"linear"}, "symbol": {"BTCUSDT"}}
	if bybitErr = s.getJSON(ctx, s.altURL, "/v5/market/tickers", q, &bt); bybitErr == nil && len(bt.Result.List) > 0 {
		bybit, bybitOK = parseRate(bt.Result.List[0].FundingRate)
	}

	var rate float64
	switch {
	case binanceOK && bybitOK:
		rate = features.WeightedFunding(binance, bybit)
	case binanceOK:
		rate = binance * 100
	case bybitOK:
		rate = bybit * 100
	case binanceErr != nil:
		return nil, binanceErr
	case bybitErr != nil:
		return nil, bybitErr
	default:
		return nil, ErrNoData
	}

	details := map[string]any{}
	if binanceOK {
		details["binance"] = binance * 100
	}
	if bybitOK {
		details["bybit"] = bybit * 100
	}
	return []models.IndicatorRecord{s.record(scoring.IDFundingRates, rate, details)}, nil
}

func parseRate(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	return v, true
}
