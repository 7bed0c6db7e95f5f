package storageConverter

import (
	"fmt"

	"github.com/KotFed0t/crypto_tracker_bot/internal/model"
	"github.com/KotFed0t/crypto_tracker_bot/internal/model/storageModel"
)

// ConvertTransaction validates a persisted transaction record. Stored data is
// not trusted blindly: an unknown kind or a malformed date fails the record.
func ConvertTransaction(st storageModel.Transaction) (model.Transaction, error) {
	kind, ok := model.ParseTxKind(st.Type)
	if !ok {
		return model.Transaction{}, fmt.Errorf("unknown transaction type %q", st.Type)
	}

	date, err := model.ParseDate(st.Date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid transaction date %q: %w", st.Date, err)
	}

	return model.Transaction{
		Date:   date,
		Kind:   kind,
		Amount: st.Amount,
		Price:  st.Price,
		Fee:    st.Fee,
	}, nil
}

func ConvertAssetEntry(entry storageModel.AssetEntry) (model.LedgerSnapshot, error) {
	txs := make([]model.Transaction, 0, len(entry.Transactions))
	for i, st := range entry.Transactions {
		tx, err := ConvertTransaction(st)
		if err != nil {
			return model.LedgerSnapshot{}, fmt.Errorf("transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}

	return model.LedgerSnapshot{Amount: entry.Amount, Transactions: txs}, nil
}

func ToStorageTransaction(tx model.Transaction) storageModel.Transaction {
	return storageModel.Transaction{
		Date:   tx.Date.String(),
		Type:   string(tx.Kind),
		Amount: tx.Amount,
		Price:  tx.Price,
		Fee:    tx.Fee,
	}
}

func ToStorageAssetEntry(snapshot model.LedgerSnapshot) storageModel.AssetEntry {
	txs := make([]storageModel.Transaction, 0, len(snapshot.Transactions))
	for _, tx := range snapshot.Transactions {
		txs = append(txs, ToStorageTransaction(tx))
	}
	return storageModel.AssetEntry{Amount: snapshot.Amount, Transactions: txs}
}
