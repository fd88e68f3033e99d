package scoring

// Indicator identities shared by the ladders, the weight table and the sources.
const (
	IDFearGreed            = "fear-greed"
	IDMVRV                 = "mvrv"
	IDPiCycle              = "pi-cycle"
	IDStockToFlow          = "s2f"
	IDLTHSupply            = "lth-supply"
	IDPuell                = "puell"
	IDNUPL                 = "nupl"
	IDRHODL                = "rhodl"
	IDReserveRisk          = "reserve-risk"
	IDRainbow              = "rainbow"
	IDETFFlows             = "etf-flows"
	IDNVT                  = "nvt"
	IDExchangeReserves     = "exchange-reserves"
	IDATHDistance          = "ath-distance"
	IDMPI                  = "mpi"
	IDBTCDominance         = "btc-dominance"
	IDMomentum30d          = "momentum-30d"
	IDFundingRates         = "funding-rates"
	IDCoinbasePremium      = "coinbase-premium"
	IDMarketDepth          = "market-depth"
	IDVolumeTrend          = "volume-trend"
	IDNetworkCongestion    = "network-congestion"
	IDFeePressure          = "fee-pressure"
	IDHashRibbons          = "hash-ribbons"
	IDDifficultyAdjustment = "difficulty-adjustment"
	IDLightningNetwork     = "lightning-network"
	IDMinerRevenue         = "miner-revenue"
)
