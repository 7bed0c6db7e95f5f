package portfolio

import (
	"testing"

	"github.com/KotFed0t/crypto_tracker_bot/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotOf(txs ...model.Transaction) model.LedgerSnapshot {
	amount := decimal.Zero
	for _, tx := range txs {
		if tx.Kind == model.Buy {
			amount = amount.Add(tx.Amount)
		} else {
			amount = amount.Sub(tx.Amount)
		}
	}
	return model.LedgerSnapshot{Amount: amount, Transactions: txs}
}

func TestEvaluateAssetOpenPosition(t *testing.T) {
	snapshot := snapshotOf(makeTx(model.Buy, "2", "100", "0"))

	perf := EvaluateAsset("bitcoin", snapshot, decimal.NewFromInt(120))

	assert.False(t, perf.Liquidated)
	assert.True(t, perf.Invested.Equal(decimal.NewFromInt(200)))
	assert.True(t, perf.CurrentValue.Equal(decimal.NewFromInt(240)))
	assert.True(t, perf.RealizedPL.IsZero())
	assert.True(t, perf.UnrealizedPL.Equal(decimal.NewFromInt(40)))
	assert.True(t, perf.TotalPL.Equal(decimal.NewFromInt(40)))
	assert.True(t, perf.PercentChange.Equal(decimal.NewFromInt(20)))
}

func TestEvaluateAssetFeesCountAgainstPL(t *testing.T) {
	snapshot := snapshotOf(makeTx(model.Buy, "1", "100", "10"))

	perf := EvaluateAsset("bitcoin", snapshot, decimal.NewFromInt(100))

	assert.True(t, perf.Invested.Equal(decimal.NewFromInt(110)))
	assert.True(t, perf.TotalPL.Equal(decimal.NewFromInt(-10)))
}

func TestEvaluateAssetLiquidated(t *testing.T) {
	snapshot := snapshotOf(
		makeTx(model.Buy, "1", "100", "0"),
		makeTx(model.Sell, "1", "150", "0"),
	)

	perf := EvaluateAsset("bitcoin", snapshot, decimal.NewFromInt(999))

	assert.True(t, perf.Liquidated)
	assert.True(t, perf.RealizedPL.Equal(decimal.NewFromInt(50)))
	assert.True(t, perf.TotalPL.Equal(decimal.NewFromInt(50)))
	assert.True(t, perf.PercentChange.Equal(decimal.NewFromInt(50)))
	// current price is irrelevant once the position is closed
	assert.True(t, perf.CurrentValue.IsZero())
}

func TestEvaluateAssetPartialSale(t *testing.T) {
	// buy 2 @ 100, sell 1 @ 150, price now 120:
	// invested=200, proceeds=150, soldShare=0.5
	// realized = 150 - 200*0.5 = 50
	// unrealized = 120 - 200 + 150 = 70
	// total = 120, percent = 60
	snapshot := snapshotOf(
		makeTx(model.Buy, "2", "100", "0"),
		makeTx(model.Sell, "1", "150", "0"),
	)

	perf := EvaluateAsset("bitcoin", snapshot, decimal.NewFromInt(120))

	require.False(t, perf.Liquidated)
	assert.True(t, perf.RealizedPL.Equal(decimal.NewFromInt(50)), "realized: %s", perf.RealizedPL)
	assert.True(t, perf.UnrealizedPL.Equal(decimal.NewFromInt(70)), "unrealized: %s", perf.UnrealizedPL)
	assert.True(t, perf.TotalPL.Equal(decimal.NewFromInt(120)), "total: %s", perf.TotalPL)
	assert.True(t, perf.PercentChange.Equal(decimal.NewFromInt(60)), "percent: %s", perf.PercentChange)
}

func TestEvaluateAssetZeroInvestmentGuard(t *testing.T) {
	snapshot := model.LedgerSnapshot{
		Amount: decimal.Zero,
		Transactions: []model.Transaction{
			makeTx(model.Sell, "1", "150", "0"),
		},
	}

	perf := EvaluateAsset("bitcoin", snapshot, decimal.NewFromInt(100))

	assert.True(t, perf.PercentChange.IsZero())
	assert.True(t, perf.RealizedPL.Equal(decimal.NewFromInt(150)))
}

func TestEvaluatePortfolioAggregates(t *testing.T) {
	assets := map[string]model.LedgerSnapshot{
		"bitcoin":  snapshotOf(makeTx(model.Buy, "2", "100", "0")),
		"ethereum": snapshotOf(makeTx(model.Buy, "10", "10", "0")),
	}
	prices := map[string]decimal.Decimal{
		"bitcoin":  decimal.NewFromInt(120),
		"ethereum": decimal.NewFromInt(9),
	}

	report := EvaluatePortfolio(assets, prices)

	require.Len(t, report.Assets, 2)
	// sorted by coin id
	assert.Equal(t, "bitcoin", report.Assets[0].CoinID)
	assert.Equal(t, "ethereum", report.Assets[1].CoinID)

	assert.True(t, report.TotalInvestment.Equal(decimal.NewFromInt(300)))
	assert.True(t, report.TotalCurrentValue.Equal(decimal.NewFromInt(330)))
	assert.True(t, report.TotalPL.Equal(decimal.NewFromInt(30)))
	assert.True(t, report.TotalPercent.Equal(decimal.NewFromInt(10)))
}

func TestEvaluatePortfolioMissingPriceDegradesToNoData(t *testing.T) {
	assets := map[string]model.LedgerSnapshot{
		"bitcoin":  snapshotOf(makeTx(model.Buy, "1", "100", "0")),
		"ethereum": snapshotOf(makeTx(model.Buy, "10", "10", "0")),
	}
	prices := map[string]decimal.Decimal{
		"bitcoin": decimal.NewFromInt(120),
	}

	report := EvaluatePortfolio(assets, prices)

	require.Len(t, report.Assets, 2)
	assert.True(t, report.Assets[1].NoData)

	// the NoData asset stays out of the aggregate sums
	assert.True(t, report.TotalInvestment.Equal(decimal.NewFromInt(100)))
	assert.True(t, report.TotalCurrentValue.Equal(decimal.NewFromInt(120)))
}

func TestEvaluatePortfolioSkipsEmptyHistories(t *testing.T) {
	assets := map[string]model.LedgerSnapshot{
		"bitcoin":  snapshotOf(makeTx(model.Buy, "1", "100", "0")),
		"ethereum": {},
	}
	prices := map[string]decimal.Decimal{
		"bitcoin": decimal.NewFromInt(100),
	}

	report := EvaluatePortfolio(assets, prices)
	require.Len(t, report.Assets, 1)
	assert.Equal(t, "bitcoin", report.Assets[0].CoinID)
}

func TestEvaluatePortfolioLiquidatedExcludedFromTotals(t *testing.T) {
	assets := map[string]model.LedgerSnapshot{
		"bitcoin": snapshotOf(makeTx(model.Buy, "1", "100", "0")),
		"ethereum": snapshotOf(
			makeTx(model.Buy, "1", "100", "0"),
			makeTx(model.Sell, "1", "150", "0"),
		),
	}
	prices := map[string]decimal.Decimal{
		"bitcoin":  decimal.NewFromInt(110),
		"ethereum": decimal.NewFromInt(999),
	}

	report := EvaluatePortfolio(assets, prices)

	require.Len(t, report.Assets, 2)
	assert.True(t, report.Assets[1].Liquidated)
	assert.True(t, report.TotalInvestment.Equal(decimal.NewFromInt(100)))
	assert.True(t, report.TotalCurrentValue.Equal(decimal.NewFromInt(110)))
}
