package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/KotFed0t/crypto_tracker_bot/config"
	"github.com/KotFed0t/crypto_tracker_bot/internal/model"
	"github.com/KotFed0t/crypto_tracker_bot/utils"
	"github.com/redis/go-redis/v9"
)

const (
	priceKeyPrefix = "price:"
	topCoinsKey    = "markets:top"
)

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) GetCoinPrice(ctx context.Context, coinID string) (model.CoinPrice, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisCache.GetCoinPrice"

	res, err := r.redis.Get(ctx, priceKeyPrefix+coinID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()), slog.String("coinID", coinID))
		}
		return model.CoinPrice{}, err
	}

	price := model.CoinPrice{}
	if err := json.Unmarshal([]byte(res), &price); err != nil {
		slog.Error("can't unmarshal cached coin price", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()), slog.String("coinID", coinID))
		return model.CoinPrice{}, errors.New("can't unmarshal cached coin price")
	}

	return price, nil
}

// GetCoinPrices returns cached quotes for all requested ids; a single missing
// id fails the whole lookup so the caller falls through to the API.
func (r *RedisCache) GetCoinPrices(ctx context.Context, coinIDs []string) (map[string]model.CoinPrice, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisCache.GetCoinPrices"

	if len(coinIDs) == 0 {
		return map[string]model.CoinPrice{}, nil
	}

	keys := make([]string, 0, len(coinIDs))
	for _, coinID := range coinIDs {
		keys = append(keys, priceKeyPrefix+coinID)
	}

	values, err := r.redis.MGet(ctx, keys...).Result()
	if err != nil {
		slog.Error("failed on redis.MGet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	res := make(map[string]model.CoinPrice, len(coinIDs))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			return nil, errors.New("cache miss: " + coinIDs[i])
		}

		price := model.CoinPrice{}
		if err := json.Unmarshal([]byte(raw), &price); err != nil {
			slog.Error("can't unmarshal cached coin price", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()), slog.String("coinID", coinIDs[i]))
			return nil, errors.New("can't unmarshal cached coin price")
		}
		res[coinIDs[i]] = price
	}

	return res, nil
}

func (r *RedisCache) SetCoinPrice(ctx context.Context, price model.CoinPrice) error {
	return r.SetCoinPrices(ctx, map[string]model.CoinPrice{price.ID: price})
}

func (r *RedisCache) SetCoinPrices(ctx context.Context, prices map[string]model.CoinPrice) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisCache.SetCoinPrices"

	pipe := r.redis.Pipeline()
	for coinID, price := range prices {
		priceJson, err := json.Marshal(price)
		if err != nil {
			slog.Error(
				"can't marshal coin price",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("err", err.Error()),
				slog.String("coinID", coinID),
			)
			return errors.New("can't marshal coin price")
		}

		pipe.Set(ctx, priceKeyPrefix+coinID, priceJson, r.cfg.Cache.PricesExpiration)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (r *RedisCache) GetTopCoins(ctx context.Context) ([]model.CoinMarket, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisCache.GetTopCoins"

	res, err := r.redis.Get(ctx, topCoinsKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
		return nil, err
	}

	var coins []model.CoinMarket
	if err := json.Unmarshal([]byte(res), &coins); err != nil {
		slog.Error("can't unmarshal cached top coins", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, errors.New("can't unmarshal cached top coins")
	}

	return coins, nil
}

func (r *RedisCache) SetTopCoins(ctx context.Context, coins []model.CoinMarket) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisCache.SetTopCoins"

	coinsJson, err := json.Marshal(coins)
	if err != nil {
		slog.Error("can't marshal top coins", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return errors.New("can't marshal top coins")
	}

	if err := r.redis.Set(ctx, topCoinsKey, coinsJson, r.cfg.Cache.MarketsExpiration).Err(); err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}
