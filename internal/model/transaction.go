package model

import "github.com/shopspring/decimal"

type TxKind string

const (
	Buy  TxKind = "buy"
	Sell TxKind = "sell"
)

func ParseTxKind(s string) (TxKind, bool) {
	switch TxKind(s) {
	case Buy:
		return Buy, true
	case Sell:
		return Sell, true
	}
	return "", false
}

// Transaction is immutable once appended to a ledger.
type Transaction struct {
	Date   Date
	Kind   TxKind
	Amount decimal.Decimal
	Price  decimal.Decimal
	Fee    decimal.Decimal
}

// LedgerSnapshot is a read-only copy of one asset ledger: the cached balance
// plus the full transaction history in insertion order.
type LedgerSnapshot struct {
	Amount       decimal.Decimal
	Transactions []Transaction
}
