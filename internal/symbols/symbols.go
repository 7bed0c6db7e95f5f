package symbols

import "strings"

// Ticker shorthand -> canonical CoinGecko id. Unknown tickers pass through
// unchanged, so full ids like "bitcoin" keep working.
var tickers = map[string]string{
	"btc":   "bitcoin",
	"eth":   "ethereum",
	"sol":   "solana",
	"doge":  "dogecoin",
	"xrp":   "ripple",
	"ada":   "cardano",
	"dot":   "polkadot",
	"ltc":   "litecoin",
	"bnb":   "binancecoin",
	"usdt":  "tether",
	"usdc":  "usd-coin",
	"matic": "polygon",
	"link":  "chainlink",
	"uni":   "uniswap",
	"avax":  "avalanche-2",
}

func Normalize(symbol string) string {
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	if coinID, ok := tickers[symbol]; ok {
		return coinID
	}
	return symbol
}
