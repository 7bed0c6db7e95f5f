package model

import "github.com/shopspring/decimal"

// CoinPrice is a price snapshot for one coin in the supported quote currencies.
type CoinPrice struct {
	ID           string
	USD          decimal.Decimal
	EUR          decimal.Decimal
	TRY          decimal.Decimal
	Change24hUSD decimal.Decimal
	MarketCapUSD decimal.Decimal
}

// CoinMarket is one row of the top-coins-by-market-cap listing.
type CoinMarket struct {
	ID           string
	Symbol       string
	Name         string
	PriceUSD     decimal.Decimal
	Change24h    decimal.Decimal
	MarketCapUSD decimal.Decimal
}

type WatchlistItem struct {
	CoinID string
	Price  CoinPrice
	NoData bool
}
