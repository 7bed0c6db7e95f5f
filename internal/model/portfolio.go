package model

import "github.com/shopspring/decimal"

type AssetValuation struct {
	CoinID   string
	Amount   decimal.Decimal
	PriceUSD decimal.Decimal
	ValueUSD decimal.Decimal
	ValueTRY decimal.Decimal
	NoData   bool
}

type PortfolioValuation struct {
	Assets        []AssetValuation
	TotalValueUSD decimal.Decimal
}

// AssetPerformance is the P&L report for one asset. When Liquidated is set the
// position is fully closed and only RealizedPL/PercentChange are meaningful.
// When NoData is set the price oracle failed for this asset and no figures are
// meaningful; the asset is excluded from aggregate sums.
type AssetPerformance struct {
	CoinID        string
	Amount        decimal.Decimal
	CurrentValue  decimal.Decimal
	Invested      decimal.Decimal
	RealizedPL    decimal.Decimal
	UnrealizedPL  decimal.Decimal
	TotalPL       decimal.Decimal
	PercentChange decimal.Decimal
	Liquidated    bool
	NoData        bool
}

type PortfolioPerformance struct {
	Assets            []AssetPerformance
	TotalInvestment   decimal.Decimal
	TotalCurrentValue decimal.Decimal
	TotalPL           decimal.Decimal
	TotalPercent      decimal.Decimal
}

type AssetTransactions struct {
	CoinID       string
	Transactions []Transaction
}

// TransactionReceipt reports the outcome of a ledger mutation. PersistWarning
// is set when the in-memory change succeeded but the save-all write failed.
type TransactionReceipt struct {
	CoinID         string
	Tx             Transaction
	PersistWarning bool
}

type ExportResult struct {
	FileBytes    []byte
	Filename     string
	DownloadLink string
}
