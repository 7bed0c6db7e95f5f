package storageModel

import "github.com/shopspring/decimal"

// Persisted layout, keyed by stringified user id. The format matches the JSON
// files produced by earlier versions of this tool, so both the amount and the
// transaction list are stored per asset even though amount is derivable.

type Portfolios map[string]UserData

type UserData struct {
	Portfolio map[string]AssetEntry `json:"portfolio"`
}

type AssetEntry struct {
	Amount       decimal.Decimal `json:"amount"`
	Transactions []Transaction   `json:"transactions"`
}

type Transaction struct {
	Date   string          `json:"date"`
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`
	Fee    decimal.Decimal `json:"fee"`
}

type Watchlists map[string][]string
