package tgbot

import (
	"log/slog"

	"github.com/KotFed0t/crypto_tracker_bot/config"
	"github.com/KotFed0t/crypto_tracker_bot/internal/transport/telegram"
	customMW "github.com/KotFed0t/crypto_tracker_bot/internal/transport/telegram/middleware"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type TGBot struct {
	bot  *tele.Bot
	ctrl *telegram.Controller
}

func New(cfg *config.Config, ctrl *telegram.Controller) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b, ctrl: ctrl}
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger())

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/help", b.ctrl.Help)

	b.bot.Handle("/price", b.ctrl.Price)
	b.bot.Handle("/list", b.ctrl.TopCoins)
	b.bot.Handle("/top", b.ctrl.TopCoins)

	b.bot.Handle("/add", b.ctrl.AddFavorite)
	b.bot.Handle("/remove", b.ctrl.RemoveFavorite)
	b.bot.Handle("/favorites", b.ctrl.Favorites)

	b.bot.Handle("/portfolio", b.ctrl.Portfolio)
	b.bot.Handle("/add_transaction", b.ctrl.AddTransaction)
	b.bot.Handle("/performance", b.ctrl.Performance)
	b.bot.Handle("/list_transactions", b.ctrl.ListTransactions)
	b.bot.Handle("/delete_transaction", b.ctrl.DeleteTransaction)
	b.bot.Handle("/export", b.ctrl.Export)
}
