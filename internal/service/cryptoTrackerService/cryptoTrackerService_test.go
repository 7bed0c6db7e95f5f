package cryptoTrackerService

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/KotFed0t/crypto_tracker_bot/config"
	"github.com/KotFed0t/crypto_tracker_bot/internal/externalApi"
	"github.com/KotFed0t/crypto_tracker_bot/internal/model"
	"github.com/KotFed0t/crypto_tracker_bot/internal/portfolio"
	"github.com/KotFed0t/crypto_tracker_bot/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct{}

func (fakeRepo) LoadPortfolios(context.Context) (map[string]map[string]model.LedgerSnapshot, error) {
	return map[string]map[string]model.LedgerSnapshot{}, nil
}
func (fakeRepo) SavePortfolios(context.Context, map[string]map[string]model.LedgerSnapshot) error {
	return nil
}
func (fakeRepo) LoadWatchlists(context.Context) (map[string][]string, error) {
	return map[string][]string{}, nil
}
func (fakeRepo) SaveWatchlists(context.Context, map[string][]string) error {
	return nil
}

// fakeCache misses everything unless primed; writes are accepted and ignored.
type fakeCache struct {
	mu     sync.Mutex
	prices map[string]model.CoinPrice
	coins  []model.CoinMarket
}

func (f *fakeCache) GetCoinPrice(_ context.Context, coinID string) (model.CoinPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.prices[coinID]; ok {
		return p, nil
	}
	return model.CoinPrice{}, errors.New("cache miss")
}

func (f *fakeCache) GetCoinPrices(_ context.Context, coinIDs []string) (map[string]model.CoinPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make(map[string]model.CoinPrice, len(coinIDs))
	for _, id := range coinIDs {
		p, ok := f.prices[id]
		if !ok {
			return nil, errors.New("cache miss")
		}
		res[id] = p
	}
	return res, nil
}

func (f *fakeCache) SetCoinPrice(context.Context, model.CoinPrice) error            { return nil }
func (f *fakeCache) SetCoinPrices(context.Context, map[string]model.CoinPrice) error { return nil }

func (f *fakeCache) GetTopCoins(context.Context) ([]model.CoinMarket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.coins == nil {
		return nil, errors.New("cache miss")
	}
	return f.coins, nil
}

func (f *fakeCache) SetTopCoins(_ context.Context, coins []model.CoinMarket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coins = coins
	return nil
}

type fakeCoingeckoApi struct {
	prices map[string]model.CoinPrice
	coins  []model.CoinMarket
	fail   bool

	priceCalls int
}

func (f *fakeCoingeckoApi) GetCoinPrice(_ context.Context, coinID string) (model.CoinPrice, error) {
	f.priceCalls++
	if f.fail {
		return model.CoinPrice{}, errors.New("api down")
	}
	p, ok := f.prices[coinID]
	if !ok {
		return model.CoinPrice{}, externalApi.ErrNotFound
	}
	return p, nil
}

func (f *fakeCoingeckoApi) GetCoinPrices(_ context.Context, coinIDs []string) (map[string]model.CoinPrice, error) {
	if f.fail {
		return nil, errors.New("api down")
	}
	res := make(map[string]model.CoinPrice)
	for _, id := range coinIDs {
		if p, ok := f.prices[id]; ok {
			res[id] = p
		}
	}
	return res, nil
}

func (f *fakeCoingeckoApi) GetCoinsMarkets(_ context.Context, limit int) ([]model.CoinMarket, error) {
	if f.fail {
		return nil, errors.New("api down")
	}
	if len(f.coins) > limit {
		return f.coins[:limit], nil
	}
	return f.coins, nil
}

type fakeReportGenerator struct {
	fileBytes []byte
}

func (f *fakeReportGenerator) Generate(context.Context, []model.AssetTransactions) ([]byte, string, error) {
	return f.fileBytes, ".xlsx", nil
}

type fakeCloudStorage struct {
	uploads int
}

func (f *fakeCloudStorage) UploadFile(_ context.Context, _ io.Reader, _ string) (string, error) {
	f.uploads++
	return "https://drive.example.com/file/abc", nil
}

func coinPrice(id string, usd int64) model.CoinPrice {
	return model.CoinPrice{ID: id, USD: decimal.NewFromInt(usd)}
}

func newTestService(t *testing.T, api *fakeCoingeckoApi, cache *fakeCache) (*CryptoTrackerService, *portfolio.Store, *fakeCloudStorage) {
	t.Helper()

	cfg := &config.Config{TopCoinsLimit: 10}
	cfg.Telegram.FileLimitInBytes = 100

	store := portfolio.NewStore(fakeRepo{})
	require.NoError(t, store.Load(context.Background()))

	cloud := &fakeCloudStorage{}
	srv := New(cfg, store, cache, api, &fakeReportGenerator{fileBytes: []byte("xlsx")}, cloud)
	return srv, store, cloud
}

func buyTx(amount, price string) model.Transaction {
	return model.Transaction{
		Date:   model.NewDate(2023, time.November, 20),
		Kind:   model.Buy,
		Amount: decimal.RequireFromString(amount),
		Price:  decimal.RequireFromString(price),
	}
}

func TestGetCoinPriceFallsBackToApi(t *testing.T) {
	api := &fakeCoingeckoApi{prices: map[string]model.CoinPrice{"bitcoin": coinPrice("bitcoin", 35000)}}
	srv, _, _ := newTestService(t, api, &fakeCache{})

	price, err := srv.GetCoinPrice(context.Background(), "btc")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", price.ID)
	assert.Equal(t, 1, api.priceCalls)
}

func TestGetCoinPriceCacheHitSkipsApi(t *testing.T) {
	api := &fakeCoingeckoApi{}
	cache := &fakeCache{prices: map[string]model.CoinPrice{"bitcoin": coinPrice("bitcoin", 35000)}}
	srv, _, _ := newTestService(t, api, cache)

	price, err := srv.GetCoinPrice(context.Background(), "btc")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", price.ID)
	assert.Equal(t, 0, api.priceCalls)
}

func TestGetCoinPriceUnknownCoin(t *testing.T) {
	api := &fakeCoingeckoApi{prices: map[string]model.CoinPrice{}}
	srv, _, _ := newTestService(t, api, &fakeCache{})

	_, err := srv.GetCoinPrice(context.Background(), "nonexistent-coin")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestAddToWatchlistValidatesCoin(t *testing.T) {
	api := &fakeCoingeckoApi{prices: map[string]model.CoinPrice{"bitcoin": coinPrice("bitcoin", 35000)}}
	srv, _, _ := newTestService(t, api, &fakeCache{})

	coinID, _, err := srv.AddToWatchlist(context.Background(), "42", "btc")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", coinID)

	_, _, err = srv.AddToWatchlist(context.Background(), "42", "btc")
	require.ErrorIs(t, err, service.ErrAlreadyInWatchlist)

	_, _, err = srv.AddToWatchlist(context.Background(), "42", "unknown-coin")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestRemoveFromWatchlist(t *testing.T) {
	api := &fakeCoingeckoApi{prices: map[string]model.CoinPrice{"bitcoin": coinPrice("bitcoin", 35000)}}
	srv, _, _ := newTestService(t, api, &fakeCache{})

	_, _, err := srv.AddToWatchlist(context.Background(), "42", "btc")
	require.NoError(t, err)

	coinID, _, err := srv.RemoveFromWatchlist(context.Background(), "42", "btc")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", coinID)

	_, _, err = srv.RemoveFromWatchlist(context.Background(), "42", "btc")
	require.ErrorIs(t, err, service.ErrNotInWatchlist)
}

func TestGetWatchlistEmpty(t *testing.T) {
	srv, _, _ := newTestService(t, &fakeCoingeckoApi{}, &fakeCache{})

	_, err := srv.GetWatchlist(context.Background(), "42")
	require.ErrorIs(t, err, service.ErrEmptyWatchlist)
}

func TestGetWatchlistDegradesMissingPrices(t *testing.T) {
	api := &fakeCoingeckoApi{prices: map[string]model.CoinPrice{"bitcoin": coinPrice("bitcoin", 35000)}}
	srv, store, _ := newTestService(t, api, &fakeCache{})

	_, _ = store.AddToWatchlist(context.Background(), "42", "bitcoin")
	_, _ = store.AddToWatchlist(context.Background(), "42", "delisted-coin")

	items, err := srv.GetWatchlist(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.False(t, items[0].NoData)
	assert.True(t, items[1].NoData)
}

func TestGetPortfolioEmpty(t *testing.T) {
	srv, _, _ := newTestService(t, &fakeCoingeckoApi{}, &fakeCache{})

	_, err := srv.GetPortfolio(context.Background(), "42")
	require.ErrorIs(t, err, service.ErrEmptyPortfolio)
}

func TestGetPortfolioValuation(t *testing.T) {
	api := &fakeCoingeckoApi{prices: map[string]model.CoinPrice{"bitcoin": {ID: "bitcoin", USD: decimal.NewFromInt(120), TRY: decimal.NewFromInt(4000)}}}
	srv, store, _ := newTestService(t, api, &fakeCache{})

	_, err := store.AppendTransaction(context.Background(), "42", "bitcoin", buyTx("2", "100"))
	require.NoError(t, err)

	valuation, err := srv.GetPortfolio(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, valuation.Assets, 1)
	assert.True(t, valuation.Assets[0].ValueUSD.Equal(decimal.NewFromInt(240)))
	assert.True(t, valuation.TotalValueUSD.Equal(decimal.NewFromInt(240)))
}

func TestGetPerformanceDegradesOnApiFailure(t *testing.T) {
	api := &fakeCoingeckoApi{fail: true}
	srv, store, _ := newTestService(t, api, &fakeCache{})

	_, err := store.AppendTransaction(context.Background(), "42", "bitcoin", buyTx("1", "100"))
	require.NoError(t, err)

	report, err := srv.GetPerformance(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, report.Assets, 1)
	assert.True(t, report.Assets[0].NoData)
	assert.True(t, report.TotalInvestment.IsZero())
}

func TestListTransactionsSortedByCoin(t *testing.T) {
	srv, store, _ := newTestService(t, &fakeCoingeckoApi{}, &fakeCache{})

	_, err := store.AppendTransaction(context.Background(), "42", "ethereum", buyTx("1", "10"))
	require.NoError(t, err)
	_, err = store.AppendTransaction(context.Background(), "42", "bitcoin", buyTx("1", "100"))
	require.NoError(t, err)

	assets, err := srv.ListTransactions(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "bitcoin", assets[0].CoinID)
	assert.Equal(t, "ethereum", assets[1].CoinID)
}

func TestListTransactionsEmpty(t *testing.T) {
	srv, _, _ := newTestService(t, &fakeCoingeckoApi{}, &fakeCache{})

	_, err := srv.ListTransactions(context.Background(), "42")
	require.ErrorIs(t, err, service.ErrNoTransactions)
}

func TestExportTransactionsSmallFileSentDirectly(t *testing.T) {
	srv, store, cloud := newTestService(t, &fakeCoingeckoApi{}, &fakeCache{})

	_, err := store.AppendTransaction(context.Background(), "42", "bitcoin", buyTx("1", "100"))
	require.NoError(t, err)

	result, err := srv.ExportTransactions(context.Background(), "42")
	require.NoError(t, err)
	assert.NotEmpty(t, result.FileBytes)
	assert.Empty(t, result.DownloadLink)
	assert.Equal(t, 0, cloud.uploads)
}

func TestExportTransactionsLargeFileGoesToCloud(t *testing.T) {
	api := &fakeCoingeckoApi{}
	cache := &fakeCache{}
	cfg := &config.Config{TopCoinsLimit: 10}
	cfg.Telegram.FileLimitInBytes = 2

	store := portfolio.NewStore(fakeRepo{})
	require.NoError(t, store.Load(context.Background()))
	_, err := store.AppendTransaction(context.Background(), "42", "bitcoin", buyTx("1", "100"))
	require.NoError(t, err)

	cloud := &fakeCloudStorage{}
	srv := New(cfg, store, cache, api, &fakeReportGenerator{fileBytes: []byte("way too big")}, cloud)

	result, err := srv.ExportTransactions(context.Background(), "42")
	require.NoError(t, err)
	assert.Empty(t, result.FileBytes)
	assert.Equal(t, "https://drive.example.com/file/abc", result.DownloadLink)
	assert.Equal(t, 1, cloud.uploads)
}

func TestGetTopCoinsUsesCacheThenApi(t *testing.T) {
	api := &fakeCoingeckoApi{coins: []model.CoinMarket{{ID: "bitcoin"}, {ID: "ethereum"}}}
	cache := &fakeCache{}
	srv, _, _ := newTestService(t, api, cache)

	coins, err := srv.GetTopCoins(context.Background())
	require.NoError(t, err)
	assert.Len(t, coins, 2)

	require.NoError(t, srv.RefreshMarketsCache(context.Background()))
	cached, err := cache.GetTopCoins(context.Background())
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}
