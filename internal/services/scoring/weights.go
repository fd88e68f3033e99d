package scoring

import (
	"fmt"
	"math"
	"strings"
)

// WeightDeclaration is one raw entry of the weight table. Declared weights
// need not sum to one.
type WeightDeclaration struct {
	ID             string  `yaml:"id" json:"id"`
	Name           string  `yaml:"name" json:"name"`
	DeclaredWeight float64 `yaml:"weight" json:"declared_weight"`
	Rank           int     `yaml:"rank" json:"rank"`
	Description    string  `yaml:"description" json:"description"`
	DataSource     string  `yaml:"data_source" json:"data_source"`
}

// WeightEntry is a declaration plus its normalised weight.
type WeightEntry struct {
	WeightDeclaration
	Weight float64 `json:"weight"`
	Tier   Tier    `json:"tier"`
}

// Tier groups entries for display. It never influences scoring.
type Tier string

const (
	TierPrimary    Tier = "primary"
	TierSecondary  Tier = "secondary"
	TierSupporting Tier = "supporting"
	TierMinor      Tier = "minor"
)

// TierFor buckets a declared weight: >=.20 primary, >=.10 secondary,
// >=.05 supporting, otherwise minor.
func TierFor(declared float64) Tier {
	switch {
	case declared >= 0.20:
		return TierPrimary
	case declared >= 0.10:
		return TierSecondary
	case declared >= 0.05:
		return TierSupporting
	default:
		return TierMinor
	}
}

// TierGroup is the set of entries that share a tier, in table order.
type TierGroup struct {
	Tier    Tier          `json:"tier"`
	Entries []WeightEntry `json:"entries"`
}

// WeightTable is the immutable, normalised indicator weight registry.
type WeightTable struct {
	entries []WeightEntry
	index   map[string]int
}

// BuildWeightTable validates decls and normalises every declared weight by the
// declared total, once. Declaration order is preserved.
func BuildWeightTable(decls []WeightDeclaration) (*WeightTable, error) {
	if len(decls) == 0 {
		return nil, ErrEmptyTable
	}

	index := make(map[string]int, len(decls))
	var total float64
	for i, d := range decls {
		id := strings.TrimSpace(d.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrInvalidID, i)
		}
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		if d.DeclaredWeight < 0 || math.IsNaN(d.DeclaredWeight) || math.IsInf(d.DeclaredWeight, 0) {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidWeight, id, d.DeclaredWeight)
		}
		index[id] = i
		total += d.DeclaredWeight
	}
	if total <= 0 || math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: declared weights sum to %v", ErrInvalidWeight, total)
	}

	entries := make([]WeightEntry, len(decls))
	for i, d := range decls {
		d.ID = strings.TrimSpace(d.ID)
		entries[i] = WeightEntry{
			WeightDeclaration: d,
			Weight:            d.DeclaredWeight / total,
			Tier:              TierFor(d.DeclaredWeight),
		}
	}
	return &WeightTable{entries: entries, index: index}, nil
}

// DefaultWeightTable builds the table from DefaultDeclarations.
func DefaultWeightTable() *WeightTable {
	t, err := BuildWeightTable(DefaultDeclarations())
	if err != nil {
		panic(fmt.Sprintf("scoring: default weight table: %v", err))
	}
	return t
}

// Lookup returns the entry for id. Unknown ids are not scored.
func (t *WeightTable) Lookup(id string) (WeightEntry, bool) {
	if t == nil {
		return WeightEntry{}, false
	}
	i, ok := t.index[id]
	if !ok {
		return WeightEntry{}, false
	}
	return t.entries[i], true
}

// Entries returns a copy of the entries in declaration order.
func (t *WeightTable) Entries() []WeightEntry {
	if t == nil {
		return nil
	}
	out := make([]WeightEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *WeightTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Sum adds up the normalised weights.
func (t *WeightTable) Sum() float64 {
	if t == nil {
		return 0
	}
	var s float64
	for _, e := range t.entries {
		s += e.Weight
	}
	return s
}

// IDs lists the table ids in declaration order.
func (t *WeightTable) IDs() []string {
	if t == nil {
		return nil
	}
	ids := make([]string, len(t.entries))
	for i, e := range t.entries {
		ids[i] = e.ID
	}
	return ids
}

// Tiers groups entries by display tier, primary first. Empty tiers are omitted.
func (t *WeightTable) Tiers() []TierGroup {
	order := []Tier{TierPrimary, TierSecondary, TierSupporting, TierMinor}
	groups := make([]TierGroup, 0, len(order))
	for _, tier := range order {
		var es []WeightEntry
		for _, e := range t.Entries() {
			if e.Tier == tier {
				es = append(es, e)
			}
		}
		if len(es) > 0 {
			groups = append(groups, TierGroup{Tier: tier, Entries: es})
		}
	}
	return groups
}

// DefaultDeclarations is the built-in indicator set.
func DefaultDeclarations() []WeightDeclaration {
	return []WeightDeclaration{
		{ID: IDPiCycle, Name: "Pi Cycle Top", DeclaredWeight: 0.30, Rank: 1,
			Description: "111DMA crossing above 2x 350DMA has marked every cycle top within days", DataSource: "coingecko"},
		{ID: IDMVRV, Name: "MVRV Z-Score", DeclaredWeight: 0.28, Rank: 2,
			Description: "Market value against realized value; extremes flag over- and undervaluation", DataSource: "bitcoin-magazine-pro"},
		{ID: IDStockToFlow, Name: "Stock-to-Flow", DeclaredWeight: 0.22, Rank: 3,
			Description: "Scarcity model deviation from circulating supply and issuance", DataSource: "coingecko"},
		{ID: IDLTHSupply, Name: "Long-Term Holder Supply", DeclaredWeight: 0.18, Rank: 4,
			Description: "Share of supply held by long-term holders; distribution precedes tops", DataSource: "bitcoin-magazine-pro"},
		{ID: IDPuell, Name: "Puell Multiple", DeclaredWeight: 0.16, Rank: 5,
			Description: "Daily miner issuance value against its 365-day average", DataSource: "bitcoin-magazine-pro"},
		{ID: IDNVT, Name: "NVT Ratio", DeclaredWeight: 0.13, Rank: 6,
			Description: "Network value to transaction volume", DataSource: "blockchain.info"},
		{ID: IDETFFlows, Name: "ETF Flows", DeclaredWeight: 0.15, Rank: 7,
			Description: "Net spot ETF inflows in millions of USD", DataSource: "push"},
		{ID: IDExchangeReserves, Name: "Exchange Reserves", DeclaredWeight: 0.12, Rank: 8,
			Description: "BTC held on exchanges; falling reserves mean supply is leaving", DataSource: "push"},
		{ID: IDMPI, Name: "Miner Position Index", DeclaredWeight: 0.10, Rank: 9,
			Description: "Miner outflows against their yearly average", DataSource: "bitcoin-magazine-pro"},
		{ID: IDFearGreed, Name: "Fear & Greed Index", DeclaredWeight: 0.08, Rank: 10,
			Description: "Composite sentiment score from 0 (extreme fear) to 100 (extreme greed)", DataSource: "alternative.me"},
		{ID: IDBTCDominance, Name: "BTC Dominance", DeclaredWeight: 0.07, Rank: 11,
			Description: "Bitcoin share of total crypto market cap", DataSource: "coingecko"},
		{ID: IDFundingRates, Name: "Funding Rates", DeclaredWeight: 0.06, Rank: 12,
			Description: "Weighted perpetual funding across Binance and Bybit", DataSource: "binance,bybit"},
		{ID: IDCoinbasePremium, Name: "Coinbase Premium", DeclaredWeight: 0.05, Rank: 13,
			Description: "Coinbase spot premium over Binance in percent", DataSource: "coinbase,binance"},
		{ID: IDRainbow, Name: "Rainbow Chart", DeclaredWeight: 0.04, Rank: 14,
			Description: "Price position within logarithmic regression bands", DataSource: "coingecko"},
		{ID: IDHashRibbons, Name: "Hash Ribbons", DeclaredWeight: 0.03, Rank: 15,
			Description: "Short against long hash rate average; miner capitulation and recovery", DataSource: "blockchain.info"},
	}
}
