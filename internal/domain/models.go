package domain

// FundamentalRow holds the per-instrument fundamental and momentum signals
// consumed by feature assembly. The market-data adapter normalizes provider
// payloads into this shape exactly once; missing provider fields default to 0
// so the core never branches on alternate field names.
type FundamentalRow struct {
	Beta     float64 `json:"beta"`
	DivYield float64 `json:"div_yield"`
	LogCap   float64 `json:"log_cap"`
	Mom6     float64 `json:"mom6"`
	Mom12    float64 `json:"mom12"`
}

// PricePoint is one weekly observation for an instrument. Date is an ISO
// calendar date (YYYY-MM-DD) so lexicographic order matches chronological order.
type PricePoint struct {
	Date     string  `json:"date"`
	Close    float64 `json:"close"`
	Dividend float64 `json:"dividend,omitempty"`
}

// Series is an instrument's weekly price history, oldest first.
type Series []PricePoint

// Holding is one position in the requesting user's portfolio.
type Holding struct {
	Ticker    string  `json:"ticker"`
	Shares    float64 `json:"shares"`
	PricePaid float64 `json:"pricePaid"`
}
