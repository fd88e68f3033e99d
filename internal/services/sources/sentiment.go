package sources

import (
	"context"
	"net/url"
	"strconv"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/services/scoring"
)

// SentimentSource reads the alternative.me Fear & Greed index.
type SentimentSource struct {
	HTTPSource
}

func NewSentimentSource(opts ...Option) *SentimentSource {
	return &SentimentSource{newHTTPSource("sentiment", "https://api.alternative.me", "", opts)}
}

type fngResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
		Timestamp      string `json:"timestamp"`
	} `json:"data"`
}

// Fetch returns the latest fear-greed reading with a 7-point history.
func (s *SentimentSource) Fetch(ctx context.Context) ([]models.IndicatorRecord, error) {
	var resp fngResponse
	if err := s.getJSON(ctx, s.baseURL, "/fng/", url.Values{"limit": {"7"}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, ErrNoData
	}

	history := make([]float64, 0, len(resp.Data))
	for _, d := range resp.Data {
		if v, err := strconv.ParseFloat(d.Value, 64); err == nil {
			history = append(history, v)
		}
	}
	latest, err := strconv.ParseFloat(resp.Data[0].Value, 64)
	if err != nil {
		return nil, ErrNoData
	}

	return []models.IndicatorRecord{
		s.record(scoring.IDFearGreed, latest, map[string]any{
			"classification": resp.Data[0].Classification,
			"history":        history,
		}),
	}, nil
}
