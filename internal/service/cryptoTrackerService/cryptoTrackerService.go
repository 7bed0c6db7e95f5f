package cryptoTrackerService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/KotFed0t/crypto_tracker_bot/config"
	"github.com/KotFed0t/crypto_tracker_bot/internal/externalApi"
	"github.com/KotFed0t/crypto_tracker_bot/internal/model"
	"github.com/KotFed0t/crypto_tracker_bot/internal/portfolio"
	"github.com/KotFed0t/crypto_tracker_bot/internal/service"
	"github.com/KotFed0t/crypto_tracker_bot/internal/symbols"
	"github.com/KotFed0t/crypto_tracker_bot/utils"
	"github.com/shopspring/decimal"
)

type CoingeckoApi interface {
	GetCoinPrice(ctx context.Context, coinID string) (model.CoinPrice, error)
	GetCoinPrices(ctx context.Context, coinIDs []string) (map[string]model.CoinPrice, error)
	GetCoinsMarkets(ctx context.Context, limit int) ([]model.CoinMarket, error)
}

type Cache interface {
	GetCoinPrice(ctx context.Context, coinID string) (model.CoinPrice, error)
	GetCoinPrices(ctx context.Context, coinIDs []string) (map[string]model.CoinPrice, error)
	SetCoinPrice(ctx context.Context, price model.CoinPrice) error
	SetCoinPrices(ctx context.Context, prices map[string]model.CoinPrice) error
	GetTopCoins(ctx context.Context) ([]model.CoinMarket, error)
	SetTopCoins(ctx context.Context, coins []model.CoinMarket) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, assets []model.AssetTransactions) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

type CryptoTrackerService struct {
	cfg             *config.Config
	store           *portfolio.Store
	cache           Cache
	coingeckoApi    CoingeckoApi
	reportGenerator ReportGenerator
	cloudStorage    CloudStorage
}

func New(
	cfg *config.Config,
	store *portfolio.Store,
	cache Cache,
	coingeckoApi CoingeckoApi,
	reportGenerator ReportGenerator,
	cloudStorage CloudStorage,
) *CryptoTrackerService {
	return &CryptoTrackerService{
		cfg:             cfg,
		store:           store,
		cache:           cache,
		coingeckoApi:    coingeckoApi,
		reportGenerator: reportGenerator,
		cloudStorage:    cloudStorage,
	}
}

// GetCoinPrice resolves a ticker or canonical id to a current price snapshot.
func (s *CryptoTrackerService) GetCoinPrice(ctx context.Context, symbol string) (model.CoinPrice, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CryptoTrackerService.GetCoinPrice"

	coinID := symbols.Normalize(symbol)

	slog.Debug("GetCoinPrice start", slog.String("rqID", rqID), slog.String("op", op), slog.String("coinID", coinID))
	defer func() {
		slog.Debug("GetCoinPrice finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("coinID", coinID))
	}()

	price, err := s.cache.GetCoinPrice(ctx, coinID)
	if err == nil {
		return price, nil
	}

	price, err = s.coingeckoApi.GetCoinPrice(ctx, coinID)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			slog.Warn("coin not found in coingeckoApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("coinID", coinID))
			return model.CoinPrice{}, service.ErrNotFound
		}
		slog.Error("can't get coin price from coingeckoApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.CoinPrice{}, err
	}

	go s.cache.SetCoinPrice(context.WithoutCancel(ctx), price)

	return price, nil
}

func (s *CryptoTrackerService) GetTopCoins(ctx context.Context) ([]model.CoinMarket, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CryptoTrackerService.GetTopCoins"

	slog.Debug("GetTopCoins start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetTopCoins finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	coins, err := s.cache.GetTopCoins(ctx)
	if err == nil {
		return coins, nil
	}

	coins, err = s.coingeckoApi.GetCoinsMarkets(ctx, s.cfg.TopCoinsLimit)
	if err != nil {
		slog.Error("can't get coins markets from coingeckoApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	go s.cache.SetTopCoins(context.WithoutCancel(ctx), coins)

	return coins, nil
}

// RefreshMarketsCache pre-warms the top-coins cache; runs as a scheduler job.
func (s *CryptoTrackerService) RefreshMarketsCache(ctx context.Context) error {
	coins, err := s.coingeckoApi.GetCoinsMarkets(ctx, s.cfg.TopCoinsLimit)
	if err != nil {
		return err
	}
	return s.cache.SetTopCoins(ctx, coins)
}

// AddToWatchlist validates the symbol against the price oracle before listing
// it, so unknown ids never enter the watchlist.
func (s *CryptoTrackerService) AddToWatchlist(ctx context.Context, userID, symbol string) (coinID string, persistWarning bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CryptoTrackerService.AddToWatchlist"

	slog.Debug("AddToWatchlist start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("AddToWatchlist finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	price, err := s.GetCoinPrice(ctx, symbol)
	if err != nil {
		return "", false, err
	}
	coinID = price.ID

	added, persistWarning := s.store.AddToWatchlist(ctx, userID, coinID)
	if !added {
		return coinID, false, service.ErrAlreadyInWatchlist
	}

	return coinID, persistWarning, nil
}

func (s *CryptoTrackerService) RemoveFromWatchlist(ctx context.Context, userID, symbol string) (coinID string, persistWarning bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CryptoTrackerService.RemoveFromWatchlist"

	slog.Debug("RemoveFromWatchlist start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("RemoveFromWatchlist finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	coinID = symbols.Normalize(symbol)

	removed, persistWarning := s.store.RemoveFromWatchlist(ctx, userID, coinID)
	if !removed {
		return coinID, false, service.ErrNotInWatchlist
	}

	return coinID, persistWarning, nil
}

// GetWatchlist returns the user's watchlist with current prices. An oracle
// failure degrades single items to NoData instead of failing the listing.
func (s *CryptoTrackerService) GetWatchlist(ctx context.Context, userID string) ([]model.WatchlistItem, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CryptoTrackerService.GetWatchlist"

	slog.Debug("GetWatchlist start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetWatchlist finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	coinIDs := s.store.Watchlist(userID)
	if len(coinIDs) == 0 {
		return nil, service.ErrEmptyWatchlist
	}

	prices := s.collectPrices(ctx, coinIDs)

	items := make([]model.WatchlistItem, 0, len(coinIDs))
	for _, coinID := range coinIDs {
		price, ok := prices[coinID]
		items = append(items, model.WatchlistItem{CoinID: coinID, Price: price, NoData: !ok})
	}

	return items, nil
}

// GetPortfolio builds the valuation report (amounts and current values, no
// P&L) over all assets with a positive balance.
func (s *CryptoTrackerService) GetPortfolio(ctx context.Context, userID string) (model.PortfolioValuation, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CryptoTrackerService.GetPortfolio"

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetPortfolio finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	snapshot := s.store.Snapshot(userID)

	coinIDs := make([]string, 0, len(snapshot))
	for coinID, ledger := range snapshot {
		if ledger.Amount.IsPositive() {
			coinIDs = append(coinIDs, coinID)
		}
	}
	if len(coinIDs) == 0 {
		return model.PortfolioValuation{}, service.ErrEmptyPortfolio
	}
	sort.Strings(coinIDs)

	prices := s.collectPrices(ctx, coinIDs)

	valuation := model.PortfolioValuation{}
	for _, coinID := range coinIDs {
		amount := snapshot[coinID].Amount

		price, ok := prices[coinID]
		if !ok {
			valuation.Assets = append(valuation.Assets, model.AssetValuation{CoinID: coinID, Amount: amount, NoData: true})
			continue
		}

		asset := model.AssetValuation{
			CoinID:   coinID,
			Amount:   amount,
			PriceUSD: price.USD,
			ValueUSD: amount.Mul(price.USD),
			ValueTRY: amount.Mul(price.TRY),
		}
		valuation.Assets = append(valuation.Assets, asset)
		valuation.TotalValueUSD = valuation.TotalValueUSD.Add(asset.ValueUSD)
	}

	return valuation, nil
}

// AddTransaction appends a validated transaction to the user's ledger.
func (s *CryptoTrackerService) AddTransaction(ctx context.Context, userID, symbol string, tx model.Transaction) (model.TransactionReceipt, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CryptoTrackerService.AddTransaction"

	coinID := symbols.Normalize(symbol)

	slog.Debug("AddTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("coinID", coinID))
	defer func() {
		slog.Debug("AddTransaction finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("coinID", coinID))
	}()

	receipt, err := s.store.AppendTransaction(ctx, userID, coinID, tx)
	if err != nil {
		slog.Warn("transaction rejected", slog.String("rqID", rqID), slog.String("op", op), slog.String("coinID", coinID), slog.String("err", err.Error()))
		return model.TransactionReceipt{}, err
	}

	return receipt, nil
}

// DeleteTransaction removes the transaction at index (0-based) and reverses
// its balance effect.
func (s *CryptoTrackerService) DeleteTransaction(ctx context.Context, userID, symbol string, index int) (model.TransactionReceipt, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CryptoTrackerService.DeleteTransaction"

	coinID := symbols.Normalize(symbol)

	slog.Debug("DeleteTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("coinID", coinID), slog.Int("index", index))
	defer func() {
		slog.Debug("DeleteTransaction finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("coinID", coinID))
	}()

	receipt, err := s.store.DeleteTransaction(ctx, userID, coinID, index)
	if err != nil {
		slog.Warn("transaction deletion rejected", slog.String("rqID", rqID), slog.String("op", op), slog.String("coinID", coinID), slog.String("err", err.Error()))
		return model.TransactionReceipt{}, err
	}

	return receipt, nil
}

// GetPerformance builds the full P&L report. Oracle failures degrade the
// affected assets to "no data" lines; the report itself always completes.
func (s *CryptoTrackerService) GetPerformance(ctx context.Context, userID string) (model.PortfolioPerformance, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CryptoTrackerService.GetPerformance"

	slog.Debug("GetPerformance start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetPerformance finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	snapshot := s.store.Snapshot(userID)

	coinIDs := make([]string, 0, len(snapshot))
	for coinID, ledger := range snapshot {
		if len(ledger.Transactions) > 0 {
			coinIDs = append(coinIDs, coinID)
		}
	}
	if len(coinIDs) == 0 {
		return model.PortfolioPerformance{}, service.ErrEmptyPortfolio
	}

	usdPrices := make(map[string]decimal.Decimal, len(coinIDs))
	for coinID, price := range s.collectPrices(ctx, coinIDs) {
		usdPrices[coinID] = price.USD
	}

	return portfolio.EvaluatePortfolio(snapshot, usdPrices), nil
}

func (s *CryptoTrackerService) ListTransactions(ctx context.Context, userID string) ([]model.AssetTransactions, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CryptoTrackerService.ListTransactions"

	slog.Debug("ListTransactions start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ListTransactions finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	snapshot := s.store.Snapshot(userID)

	coinIDs := make([]string, 0, len(snapshot))
	for coinID, ledger := range snapshot {
		if len(ledger.Transactions) > 0 {
			coinIDs = append(coinIDs, coinID)
		}
	}
	if len(coinIDs) == 0 {
		return nil, service.ErrNoTransactions
	}
	sort.Strings(coinIDs)

	assets := make([]model.AssetTransactions, 0, len(coinIDs))
	for _, coinID := range coinIDs {
		assets = append(assets, model.AssetTransactions{
			CoinID:       coinID,
			Transactions: snapshot[coinID].Transactions,
		})
	}

	return assets, nil
}

// ExportTransactions renders the transaction history to xlsx. Files over the
// chat transport's size limit are uploaded to cloud storage and returned as a
// download link instead.
func (s *CryptoTrackerService) ExportTransactions(ctx context.Context, userID string) (model.ExportResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CryptoTrackerService.ExportTransactions"

	slog.Debug("ExportTransactions start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ExportTransactions finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	assets, err := s.ListTransactions(ctx, userID)
	if err != nil {
		return model.ExportResult{}, err
	}

	fileBytes, ext, err := s.reportGenerator.Generate(ctx, assets)
	if err != nil {
		slog.Error("got error from reportGenerator.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.ExportResult{}, err
	}

	filename := fmt.Sprintf("transactions_%s_%s%s", userID, time.Now().Format("2006-01-02"), ext)

	if len(fileBytes) > s.cfg.Telegram.FileLimitInBytes {
		link, err := s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
		if err != nil {
			slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return model.ExportResult{}, err
		}
		return model.ExportResult{Filename: filename, DownloadLink: link}, nil
	}

	return model.ExportResult{FileBytes: fileBytes, Filename: filename}, nil
}

// collectPrices resolves quotes for the given ids, cache first, API second.
// On total failure it returns an empty map so callers degrade per asset
// instead of aborting.
func (s *CryptoTrackerService) collectPrices(ctx context.Context, coinIDs []string) map[string]model.CoinPrice {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CryptoTrackerService.collectPrices"

	prices, err := s.cache.GetCoinPrices(ctx, coinIDs)
	if err == nil {
		return prices
	}

	slog.Warn("can't get coin prices from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	prices, err = s.coingeckoApi.GetCoinPrices(ctx, coinIDs)
	if err != nil {
		slog.Error("can't get coin prices from coingeckoApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return map[string]model.CoinPrice{}
	}

	go s.cache.SetCoinPrices(context.WithoutCancel(ctx), prices)

	return prices
}
