package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/crypto_tracker_bot/config"
	"github.com/KotFed0t/crypto_tracker_bot/data"
	"github.com/KotFed0t/crypto_tracker_bot/data/cache"
	"github.com/KotFed0t/crypto_tracker_bot/data/repository/jsonfile"
	pgrepo "github.com/KotFed0t/crypto_tracker_bot/data/repository/postgres"
	"github.com/KotFed0t/crypto_tracker_bot/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/crypto_tracker_bot/internal/externalApi/coingeckoApi"
	"github.com/KotFed0t/crypto_tracker_bot/internal/portfolio"
	"github.com/KotFed0t/crypto_tracker_bot/internal/reportGenerator/xslsxGenerator"
	"github.com/KotFed0t/crypto_tracker_bot/internal/scheduler"
	"github.com/KotFed0t/crypto_tracker_bot/internal/service/cryptoTrackerService"
	"github.com/KotFed0t/crypto_tracker_bot/internal/tgbot"
	"github.com/KotFed0t/crypto_tracker_bot/internal/transport/telegram"
	"github.com/shopspring/decimal"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	// persisted files keep decimals as plain JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo portfolio.Repository
	switch cfg.Storage.Driver {
	case "postgres":
		pgClient := data.NewPostgresClient(cfg)
		defer pgClient.Close()
		repo = pgrepo.New(cfg, pgClient)
	default:
		repo = jsonfile.New(cfg)
	}

	store := portfolio.NewStore(repo)
	if err := store.Load(ctx); err != nil {
		slog.Error("failed to load portfolio store", slog.String("err", err.Error()))
		panic(err)
	}

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	coingeckoApiClient := coingeckoApi.New(cfg)

	reportGenerator := xslsxGenerator.New()

	googleCloudStorage := googleDriveApi.New(ctx, cfg)

	cryptoTrackerSrv := cryptoTrackerService.New(cfg, store, redisCache, coingeckoApiClient, reportGenerator, googleCloudStorage)

	sched := scheduler.New()
	sched.NewIntervalJob("refresh markets cache", cryptoTrackerSrv.RefreshMarketsCache, cfg.Jobs.RefreshMarketsInterval, true)
	sched.NewIntervalJob("drive cleanup", googleCloudStorage.DeleteOldFiles, cfg.Jobs.DriveCleanupInterval, false)
	sched.Start()
	defer sched.Stop()

	tgController := telegram.NewController(cryptoTrackerSrv)

	tgBot := tgbot.New(cfg, tgController)
	tgBot.Start()
	defer tgBot.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
