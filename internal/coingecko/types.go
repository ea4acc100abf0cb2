package coingecko

// apiCoinMarket mirrors one element of the /coins/markets response.
// Numeric fields are pointers because the provider returns null for
// delisted or thinly traded coins.
type apiCoinMarket struct {
	ID                string   `json:"id"`
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	CurrentPrice      *float64 `json:"current_price"`
	MarketCap         *float64 `json:"market_cap"`
	MarketCapRank     *int     `json:"market_cap_rank"`
	TotalVolume       *float64 `json:"total_volume"`
	PriceChangePct24h *float64 `json:"price_change_percentage_24h"`
	CirculatingSupply *float64 `json:"circulating_supply"`
	LastUpdated       string   `json:"last_updated"`
}

// GetMarketsOptions filters a /coins/markets request.
type GetMarketsOptions struct {
	Currency string   // Quote currency (required, e.g., "usd")
	PerPage  int      // Page size; provider max is 250
	Page     int      // 1-based page number
	IDs      []string // Restrict to specific coin ids
}
