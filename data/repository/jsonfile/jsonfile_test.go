package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KotFed0t/crypto_tracker_bot/config"
	"github.com/KotFed0t/crypto_tracker_bot/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.PortfoliosFile = filepath.Join(dir, "user_portfolios.json")
	cfg.Storage.WatchlistsFile = filepath.Join(dir, "user_favorites.json")
	return New(cfg)
}

func TestLoadPortfoliosMissingFile(t *testing.T) {
	repo := newTestRepo(t)

	portfolios, err := repo.LoadPortfolios(context.Background())
	require.NoError(t, err)
	assert.Empty(t, portfolios)
}

func TestPortfoliosRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	in := map[string]map[string]model.LedgerSnapshot{
		"42": {
			"bitcoin": {
				Amount: decimal.RequireFromString("0.05"),
				Transactions: []model.Transaction{
					{
						Date:   model.NewDate(2023, time.November, 20),
						Kind:   model.Buy,
						Amount: decimal.RequireFromString("0.05"),
						Price:  decimal.NewFromInt(35000),
						Fee:    decimal.NewFromInt(10),
					},
				},
			},
		},
	}

	require.NoError(t, repo.SavePortfolios(context.Background(), in))

	out, err := repo.LoadPortfolios(context.Background())
	require.NoError(t, err)

	snapshot := out["42"]["bitcoin"]
	assert.True(t, snapshot.Amount.Equal(decimal.RequireFromString("0.05")))
	require.Len(t, snapshot.Transactions, 1)

	tx := snapshot.Transactions[0]
	assert.Equal(t, model.Buy, tx.Kind)
	assert.Equal(t, "2023-11-20", tx.Date.String())
	assert.True(t, tx.Price.Equal(decimal.NewFromInt(35000)))
	assert.True(t, tx.Fee.Equal(decimal.NewFromInt(10)))
}

// Files written by earlier versions of this tool store decimals as bare JSON
// numbers; they must keep loading.
func TestLoadPortfoliosLegacyFormat(t *testing.T) {
	repo := newTestRepo(t)

	legacy := `{
    "42": {
        "portfolio": {
            "bitcoin": {
                "amount": 0.05,
                "transactions": [
                    {
                        "date": "2023-11-20",
                        "type": "buy",
                        "amount": 0.05,
                        "price": 35000,
                        "fee": 10
                    }
                ]
            }
        }
    }
}`
	require.NoError(t, os.WriteFile(repo.portfoliosPath, []byte(legacy), 0o644))

	out, err := repo.LoadPortfolios(context.Background())
	require.NoError(t, err)

	snapshot := out["42"]["bitcoin"]
	assert.True(t, snapshot.Amount.Equal(decimal.RequireFromString("0.05")))
	require.Len(t, snapshot.Transactions, 1)
	assert.True(t, snapshot.Transactions[0].Price.Equal(decimal.NewFromInt(35000)))
}

func TestLoadPortfoliosSkipsCorruptEntries(t *testing.T) {
	repo := newTestRepo(t)

	corrupt := `{
    "42": {
        "portfolio": {
            "bitcoin": {
                "amount": 1,
                "transactions": [
                    {"date": "2023-11-20", "type": "buy", "amount": 1, "price": 100, "fee": 0}
                ]
            },
            "ethereum": {
                "amount": 1,
                "transactions": [
                    {"date": "not-a-date", "type": "buy", "amount": 1, "price": 100, "fee": 0}
                ]
            }
        }
    }
}`
	require.NoError(t, os.WriteFile(repo.portfoliosPath, []byte(corrupt), 0o644))

	out, err := repo.LoadPortfolios(context.Background())
	require.NoError(t, err)

	assets := out["42"]
	assert.Contains(t, assets, "bitcoin")
	assert.NotContains(t, assets, "ethereum")
}

func TestWatchlistsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	missing, err := repo.LoadWatchlists(context.Background())
	require.NoError(t, err)
	assert.Empty(t, missing)

	in := map[string][]string{"42": {"bitcoin", "ethereum"}}
	require.NoError(t, repo.SaveWatchlists(context.Background(), in))

	out, err := repo.LoadWatchlists(context.Background())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
