package sources

import (
	"context"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/services/features"
	"CycleScope/internal/services/scoring"
)

// MempoolSource reads fee, mempool, difficulty and lightning data from
// mempool.space.
type MempoolSource struct {
	HTTPSource
}

func NewMempoolSource(opts ...Option) *MempoolSource {
	return &MempoolSource{newHTTPSource("mempool", "https://mempool.space", "", opts)}
}

type recommendedFees struct {
	FastestFee  float64 `json:"fastestFee"`
	HalfHourFee float64 `json:"halfHourFee"`
	HourFee     float64 `json:"hourFee"`
	EconomyFee  float64 `json:"economyFee"`
}

type mempoolStats struct {
	Count    int     `json:"count"`
	VSize    float64 `json:"vsize"`
	TotalFee float64 `json:"total_fee"`
}

type difficultyAdjustment struct {
	ProgressPercent  float64 `json:"progressPercent"`
	DifficultyChange float64 `json:"difficultyChange"`
	RemainingBlocks  int     `json:"remainingBlocks"`
}

type lightningStats struct {
	Latest struct {
		NodeCount     int     `json:"node_count"`
		ChannelCount  int     `json:"channel_count"`
		TotalCapacity float64 `json:"total_capacity"`
	} `json:"latest"`
}

const satsPerBTC = 100_000_000

// Fetch returns fee-pressure, network-congestion, difficulty-adjustment and
// lightning-network. Congestion needs both fees and mempool stats.
func (s *MempoolSource) Fetch(ctx context.Context) ([]models.IndicatorRecord, error) {
	var (
		out  []models.IndicatorRecord
		last error
	)

	var fees recommendedFees
	feesOK := true
	if err := s.getJSON(ctx, s.baseURL, "/api/v1/fees/recommended", nil, &fees); err != nil {
		feesOK, last = false, err
	} else {
		out = append(out, s.record(scoring.IDFeePressure, features.FeePressure(fees.FastestFee, fees.HalfHourFee, fees.HourFee), map[string]any{
			"fastest": fees.FastestFee, "half_hour": fees.HalfHourFee, "hour": fees.HourFee, "economy": fees.EconomyFee,
		}))
	}

	var mp mempoolStats
	if err := s.getJSON(ctx, s.baseURL, "/api/mempool", nil, &mp); err != nil {
		last = err
	} else if feesOK {
		c := features.Congestion(mp.Count, mp.VSize, fees.FastestFee)
		out = append(out, s.ruled(scoring.IDNetworkCongestion, c.Value, c.Signal, c.Confidence, map[string]any{
			"count": mp.Count, "vsize": mp.VSize, "level": c.Description,
		}))
	}

	var diff difficultyAdjustment
	if err := s.getJSON(ctx, s.baseURL, "/api/v1/difficulty-adjustment", nil, &diff); err != nil {
		last = err
	} else {
		out = append(out, s.record(scoring.IDDifficultyAdjustment, diff.DifficultyChange, map[string]any{
			"progress_percent": diff.ProgressPercent, "remaining_blocks": diff.RemainingBlocks,
		}))
	}

	var ln lightningStats
	if err := s.getJSON(ctx, s.baseURL, "/api/v1/lightning/statistics/latest", nil, &ln); err != nil {
		last = err
	} else if ln.Latest.TotalCapacity > 0 {
		out = append(out, s.record(scoring.IDLightningNetwork, ln.Latest.TotalCapacity/satsPerBTC, map[string]any{
			"nodes": ln.Latest.NodeCount, "channels": ln.Latest.ChannelCount,
		}))
	}

	if len(out) == 0 {
		if last != nil {
			return nil, last
		}
		return nil, ErrNoData
	}
	return out, nil
}
