package coingeckoApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/crypto_tracker_bot/config"
	"github.com/KotFed0t/crypto_tracker_bot/internal/externalApi"
	"github.com/KotFed0t/crypto_tracker_bot/internal/model"
	"github.com/KotFed0t/crypto_tracker_bot/internal/model/coingeckoModel"
	"github.com/KotFed0t/crypto_tracker_bot/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type CoingeckoApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *CoingeckoApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.CoinGecko.Url)
	return &CoingeckoApi{client: client}
}

// GetCoinPrices resolves current quotes for the given canonical coin ids. Ids
// unknown to CoinGecko are simply absent from the result map.
func (a *CoingeckoApi) GetCoinPrices(ctx context.Context, coinIDs []string) (map[string]model.CoinPrice, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CoingeckoApi.GetCoinPrices"

	params := map[string]string{
		"ids":                 strings.Join(coinIDs, ","),
		"vs_currencies":       "usd,eur,try",
		"include_market_cap":  "true",
		"include_24hr_change": "true",
	}

	slog.Debug("GetCoinPrices start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("coinIDs", coinIDs))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get("/simple/price")

	if err != nil {
		slog.Error("error while dialing CoinGecko", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if resp.IsError() {
		slog.Error("CoinGecko returned error status", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("coingecko /simple/price status %d", resp.StatusCode())
	}

	rawPrices := coingeckoModel.SimplePriceResponse{}
	if err := json.Unmarshal(resp.Body(), &rawPrices); err != nil {
		slog.Error("can't unmarshal response into SimplePriceResponse", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	res := make(map[string]model.CoinPrice, len(rawPrices))
	for coinID, raw := range rawPrices {
		res[coinID] = model.CoinPrice{
			ID:           coinID,
			USD:          decimal.NewFromFloat(raw.USD),
			EUR:          decimal.NewFromFloat(raw.EUR),
			TRY:          decimal.NewFromFloat(raw.TRY),
			Change24hUSD: decimal.NewFromFloat(raw.USD24hChange),
			MarketCapUSD: decimal.NewFromFloat(raw.USDMarketCap),
		}
	}

	slog.Debug("GetCoinPrices request complete", slog.String("rqID", rqID), slog.String("op", op))

	return res, nil
}

// GetCoinPrice resolves the quote for a single coin id. An id CoinGecko does
// not know yields externalApi.ErrNotFound.
func (a *CoingeckoApi) GetCoinPrice(ctx context.Context, coinID string) (model.CoinPrice, error) {
	prices, err := a.GetCoinPrices(ctx, []string{coinID})
	if err != nil {
		return model.CoinPrice{}, err
	}

	price, ok := prices[coinID]
	if !ok {
		return model.CoinPrice{}, externalApi.ErrNotFound
	}

	return price, nil
}

// GetCoinsMarkets returns the top coins by market cap.
func (a *CoingeckoApi) GetCoinsMarkets(ctx context.Context, limit int) ([]model.CoinMarket, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CoingeckoApi.GetCoinsMarkets"

	params := map[string]string{
		"vs_currency": "usd",
		"order":       "market_cap_desc",
		"per_page":    fmt.Sprintf("%d", limit),
		"page":        "1",
	}

	slog.Debug("GetCoinsMarkets start", slog.String("rqID", rqID), slog.String("op", op))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get("/coins/markets")

	if err != nil {
		slog.Error("error while dialing CoinGecko", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if resp.IsError() {
		slog.Error("CoinGecko returned error status", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("coingecko /coins/markets status %d", resp.StatusCode())
	}

	rawMarkets := make([]coingeckoModel.CoinMarket, 0, limit)
	if err := json.Unmarshal(resp.Body(), &rawMarkets); err != nil {
		slog.Error("can't unmarshal response into []CoinMarket", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	res := make([]model.CoinMarket, 0, len(rawMarkets))
	for _, raw := range rawMarkets {
		res = append(res, model.CoinMarket{
			ID:           raw.ID,
			Symbol:       raw.Symbol,
			Name:         raw.Name,
			PriceUSD:     decimal.NewFromFloat(raw.CurrentPrice),
			Change24h:    decimal.NewFromFloat(raw.PriceChangePercentage24h),
			MarketCapUSD: decimal.NewFromFloat(raw.MarketCap),
		})
	}

	slog.Debug("GetCoinsMarkets request complete", slog.String("rqID", rqID), slog.String("op", op))

	return res, nil
}
