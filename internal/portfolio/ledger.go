package portfolio

import (
	"slices"

	"github.com/KotFed0t/crypto_tracker_bot/internal/model"
	"github.com/shopspring/decimal"
)

// Ledger holds the transaction history and the cached balance for one
// (user, asset) pair. The balance always equals the sum of buy amounts minus
// the sum of sell amounts over the history; Append and DeleteAt are the only
// ways to change it.
type Ledger struct {
	amount       decimal.Decimal
	transactions []model.Transaction
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// RestoreLedger rebuilds a ledger from persisted state. The stored amount is
// revalidated against the transaction sum; on mismatch the recomputed sum wins
// and repaired is true.
func RestoreLedger(snapshot model.LedgerSnapshot) (l *Ledger, repaired bool) {
	l = &Ledger{
		amount:       snapshot.Amount,
		transactions: slices.Clone(snapshot.Transactions),
	}

	sum := transactionSum(snapshot.Transactions)
	if !sum.Equal(snapshot.Amount) {
		l.amount = sum
		repaired = true
	}

	return l, repaired
}

func transactionSum(txs []model.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		if tx.Kind == model.Buy {
			sum = sum.Add(tx.Amount)
		} else {
			sum = sum.Sub(tx.Amount)
		}
	}
	return sum
}

// Append validates tx and adds it to the history, updating the balance. A sell
// larger than the current balance is rejected entirely; there are no partial
// fills.
func (l *Ledger) Append(tx model.Transaction) error {
	switch {
	case !tx.Amount.IsPositive():
		return ErrInvalidAmount
	case !tx.Price.IsPositive():
		return ErrInvalidPrice
	case tx.Fee.IsNegative():
		return ErrInvalidFee
	case tx.Date.IsZero():
		return ErrInvalidDate
	}

	switch tx.Kind {
	case model.Buy:
		l.amount = l.amount.Add(tx.Amount)
	case model.Sell:
		if tx.Amount.GreaterThan(l.amount) {
			return ErrInsufficientBalance
		}
		l.amount = l.amount.Sub(tx.Amount)
	default:
		return ErrInvalidKind
	}

	l.transactions = append(l.transactions, tx)
	return nil
}

// DeleteAt removes the transaction at index (0-based) and reverses its balance
// effect. Deleting a buy that later sells depended on can leave the balance
// negative; deletion is an explicit correction, not a trade, so the ledger
// does not clamp it.
func (l *Ledger) DeleteAt(index int) (model.Transaction, error) {
	if index < 0 || index >= len(l.transactions) {
		return model.Transaction{}, ErrIndexOutOfRange
	}

	tx := l.transactions[index]
	if tx.Kind == model.Buy {
		l.amount = l.amount.Sub(tx.Amount)
	} else {
		l.amount = l.amount.Add(tx.Amount)
	}

	l.transactions = slices.Delete(l.transactions, index, index+1)
	return tx, nil
}

func (l *Ledger) Balance() decimal.Decimal {
	return l.amount
}

func (l *Ledger) Len() int {
	return len(l.transactions)
}

// Snapshot returns a read-only copy of the ledger state.
func (l *Ledger) Snapshot() model.LedgerSnapshot {
	return model.LedgerSnapshot{
		Amount:       l.amount,
		Transactions: slices.Clone(l.transactions),
	}
}
