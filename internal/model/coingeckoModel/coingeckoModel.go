package coingeckoModel

// Raw response shapes of the CoinGecko v3 endpoints this bot consumes.

// SimplePriceResponse is the /simple/price payload: coin id -> quotes.
// Optional fields (unsupported vs_currencies, missing market data) are simply
// absent and decode to zero.
type SimplePriceResponse map[string]SimplePrice

type SimplePrice struct {
	USD          float64 `json:"usd"`
	EUR          float64 `json:"eur"`
	TRY          float64 `json:"try"`
	USD24hChange float64 `json:"usd_24h_change"`
	USDMarketCap float64 `json:"usd_market_cap"`
}

// CoinMarket is one element of the /coins/markets payload.
type CoinMarket struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	CurrentPrice             float64 `json:"current_price"`
	MarketCap                float64 `json:"market_cap"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
}
