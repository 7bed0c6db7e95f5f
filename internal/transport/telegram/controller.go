package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/KotFed0t/crypto_tracker_bot/internal/converter/telebotConverter"
	"github.com/KotFed0t/crypto_tracker_bot/internal/model"
	"github.com/KotFed0t/crypto_tracker_bot/internal/portfolio"
	"github.com/KotFed0t/crypto_tracker_bot/internal/service"
	"github.com/KotFed0t/crypto_tracker_bot/utils"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

const (
	internalErrMsg    = "Something went wrong, try again later."
	persistWarningMsg = "\n\n⚠️ Could not save changes to storage, they may be lost on restart."

	helpMsg = `Available commands:

/price <coin> — current price (e.g. /price btc)
/list — top coins by market cap
/top — same as /list

/add <coin> — add a coin to favorites
/remove <coin> — remove a coin from favorites
/favorites — show favorites with prices

/portfolio — current holdings and value
/add_transaction <coin> <buy|sell> <amount> <price> [date] [fee]
    e.g. /add_transaction btc buy 0.05 35000 2023-11-20 10
    date format: YYYY-MM-DD (defaults to today)
    fee: defaults to 0
/performance — profit and loss report
/list_transactions — full transaction history
/delete_transaction <coin> <number> — delete a transaction by its number
/export — transaction history as an xlsx file`
)

type CryptoTrackerService interface {
	GetCoinPrice(ctx context.Context, symbol string) (model.CoinPrice, error)
	GetTopCoins(ctx context.Context) ([]model.CoinMarket, error)
	AddToWatchlist(ctx context.Context, userID, symbol string) (coinID string, persistWarning bool, err error)
	RemoveFromWatchlist(ctx context.Context, userID, symbol string) (coinID string, persistWarning bool, err error)
	GetWatchlist(ctx context.Context, userID string) ([]model.WatchlistItem, error)
	GetPortfolio(ctx context.Context, userID string) (model.PortfolioValuation, error)
	AddTransaction(ctx context.Context, userID, symbol string, tx model.Transaction) (model.TransactionReceipt, error)
	DeleteTransaction(ctx context.Context, userID, symbol string, index int) (model.TransactionReceipt, error)
	GetPerformance(ctx context.Context, userID string) (model.PortfolioPerformance, error)
	ListTransactions(ctx context.Context, userID string) ([]model.AssetTransactions, error)
	ExportTransactions(ctx context.Context, userID string) (model.ExportResult, error)
}

type Controller struct {
	cryptoTrackerService CryptoTrackerService
}

func NewController(cryptoTrackerService CryptoTrackerService) *Controller {
	return &Controller{cryptoTrackerService: cryptoTrackerService}
}

func userIDFromTeleCtx(c tele.Context) string {
	return strconv.FormatInt(c.Sender().ID, 10)
}

func (ctrl *Controller) Start(c tele.Context) error {
	return c.Send("Hello! I track crypto prices and your portfolio.\n\nSend /help to see what I can do.")
}

func (ctrl *Controller) Help(c tele.Context) error {
	return c.Send(helpMsg)
}

func (ctrl *Controller) Price(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	args := c.Args()
	if len(args) < 1 {
		return c.Send("Usage: /price <coin>\ne.g. /price btc")
	}

	price, err := ctrl.cryptoTrackerService.GetCoinPrice(ctx, args[0])
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Send(fmt.Sprintf("Coin %s not found.", args[0]))
		}
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.CoinPriceResponse(price))
}

func (ctrl *Controller) TopCoins(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	coins, err := ctrl.cryptoTrackerService.GetTopCoins(ctx)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.TopCoinsResponse(coins))
}

func (ctrl *Controller) AddFavorite(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	args := c.Args()
	if len(args) < 1 {
		return c.Send("Usage: /add <coin>\ne.g. /add btc")
	}

	coinID, persistWarning, err := ctrl.cryptoTrackerService.AddToWatchlist(ctx, userIDFromTeleCtx(c), args[0])
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Send(fmt.Sprintf("Coin %s not found.", args[0]))
		}
		if errors.Is(err, service.ErrAlreadyInWatchlist) {
			return c.Send(fmt.Sprintf("%s is already in your favorites.", coinID))
		}
		return c.Send(internalErrMsg)
	}

	msg := fmt.Sprintf("⭐ %s added to favorites.", coinID)
	if persistWarning {
		msg += persistWarningMsg
	}
	return c.Send(msg)
}

func (ctrl *Controller) RemoveFavorite(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	args := c.Args()
	if len(args) < 1 {
		return c.Send("Usage: /remove <coin>\ne.g. /remove btc")
	}

	coinID, persistWarning, err := ctrl.cryptoTrackerService.RemoveFromWatchlist(ctx, userIDFromTeleCtx(c), args[0])
	if err != nil {
		if errors.Is(err, service.ErrNotInWatchlist) {
			return c.Send(fmt.Sprintf("%s is not in your favorites.", coinID))
		}
		return c.Send(internalErrMsg)
	}

	msg := fmt.Sprintf("%s removed from favorites.", coinID)
	if persistWarning {
		msg += persistWarningMsg
	}
	return c.Send(msg)
}

func (ctrl *Controller) Favorites(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	items, err := ctrl.cryptoTrackerService.GetWatchlist(ctx, userIDFromTeleCtx(c))
	if err != nil {
		if errors.Is(err, service.ErrEmptyWatchlist) {
			return c.Send("Your favorites list is empty. Add coins with /add <coin>.")
		}
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.WatchlistResponse(items))
}

func (ctrl *Controller) Portfolio(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	valuation, err := ctrl.cryptoTrackerService.GetPortfolio(ctx, userIDFromTeleCtx(c))
	if err != nil {
		if errors.Is(err, service.ErrEmptyPortfolio) {
			return c.Send("Your portfolio is empty. Add transactions with /add_transaction.")
		}
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.PortfolioResponse(valuation))
}

// AddTransaction parses "/add_transaction <coin> <buy|sell> <amount> <price>
// [date] [fee]". Invalid optional fields fall back to defaults with a warning
// in the reply; invalid required fields reject the command.
func (ctrl *Controller) AddTransaction(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	args := c.Args()
	if len(args) < 4 {
		return c.Send(
			"Usage: /add_transaction <coin> <buy|sell> <amount> <price> [date] [fee]\n\n" +
				"e.g. /add_transaction btc buy 0.05 35000 2023-11-20 10\n\n" +
				"Date format: YYYY-MM-DD (defaults to today)\nFee: defaults to 0",
		)
	}

	kind, ok := model.ParseTxKind(strings.ToLower(args[1]))
	if !ok {
		return c.Send("Invalid transaction type. Use buy or sell.")
	}

	amount, err := decimal.NewFromString(args[2])
	if err != nil || !amount.IsPositive() {
		return c.Send("Invalid amount. Enter a number greater than zero.")
	}

	price, err := decimal.NewFromString(args[3])
	if err != nil || !price.IsPositive() {
		return c.Send("Invalid price. Enter a number greater than zero.")
	}

	var warnings []string

	date := model.Today()
	if len(args) > 4 {
		parsed, err := model.ParseDate(args[4])
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("⚠️ Invalid date %s, using today (%s).", args[4], date))
		} else {
			date = parsed
		}
	}

	fee := decimal.Zero
	if len(args) > 5 {
		parsed, err := decimal.NewFromString(args[5])
		if err != nil || parsed.IsNegative() {
			warnings = append(warnings, "⚠️ Invalid fee, using 0.")
		} else {
			fee = parsed
		}
	}

	tx := model.Transaction{Date: date, Kind: kind, Amount: amount, Price: price, Fee: fee}

	receipt, err := ctrl.cryptoTrackerService.AddTransaction(ctx, userIDFromTeleCtx(c), args[0], tx)
	if err != nil {
		if errors.Is(err, portfolio.ErrInsufficientBalance) {
			return c.Send(fmt.Sprintf("Not enough %s to sell that amount.", args[0]))
		}
		slog.Error("got error from cryptoTrackerService.AddTransaction", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	msg := fmt.Sprintf(
		"✅ %s transaction added!\nCoin: %s\nAmount: %s\nPrice: $%s\nDate: %s",
		receipt.Tx.Kind,
		receipt.CoinID,
		receipt.Tx.Amount.String(),
		receipt.Tx.Price.String(),
		receipt.Tx.Date.String(),
	)
	if len(warnings) > 0 {
		msg = strings.Join(warnings, "\n") + "\n\n" + msg
	}
	if receipt.PersistWarning {
		msg += persistWarningMsg
	}
	return c.Send(msg)
}

func (ctrl *Controller) Performance(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	performance, err := ctrl.cryptoTrackerService.GetPerformance(ctx, userIDFromTeleCtx(c))
	if err != nil {
		if errors.Is(err, service.ErrEmptyPortfolio) {
			return c.Send("Your portfolio is empty. Add transactions with /add_transaction.")
		}
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.PerformanceResponse(performance))
}

func (ctrl *Controller) ListTransactions(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	assets, err := ctrl.cryptoTrackerService.ListTransactions(ctx, userIDFromTeleCtx(c))
	if err != nil {
		if errors.Is(err, service.ErrNoTransactions) {
			return c.Send("You have no transactions yet.")
		}
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.TransactionsResponse(assets))
}

// DeleteTransaction parses "/delete_transaction <coin> <number>" where number
// is the 1-based index shown by /list_transactions.
func (ctrl *Controller) DeleteTransaction(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	args := c.Args()
	if len(args) < 2 {
		return c.Send("Usage: /delete_transaction <coin> <number>\ne.g. /delete_transaction btc 1")
	}

	number, err := strconv.Atoi(args[1])
	if err != nil || number < 1 {
		return c.Send("Invalid transaction number. Check /list_transactions for numbering.")
	}

	receipt, err := ctrl.cryptoTrackerService.DeleteTransaction(ctx, userIDFromTeleCtx(c), args[0], number-1)
	if err != nil {
		if errors.Is(err, portfolio.ErrAssetNotFound) {
			return c.Send(fmt.Sprintf("No transactions found for %s.", args[0]))
		}
		if errors.Is(err, portfolio.ErrIndexOutOfRange) {
			return c.Send("Transaction number out of range. Check /list_transactions for numbering.")
		}
		slog.Error("got error from cryptoTrackerService.DeleteTransaction", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	msg := fmt.Sprintf(
		"🗑 Transaction deleted.\nCoin: %s\n%s %s @ $%s (%s)",
		receipt.CoinID,
		receipt.Tx.Kind,
		receipt.Tx.Amount.String(),
		receipt.Tx.Price.String(),
		receipt.Tx.Date.String(),
	)
	if receipt.PersistWarning {
		msg += persistWarningMsg
	}
	return c.Send(msg)
}

func (ctrl *Controller) Export(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	result, err := ctrl.cryptoTrackerService.ExportTransactions(ctx, userIDFromTeleCtx(c))
	if err != nil {
		if errors.Is(err, service.ErrNoTransactions) {
			return c.Send("You have no transactions yet.")
		}
		slog.Error("got error from cryptoTrackerService.ExportTransactions", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	if result.DownloadLink != "" {
		return c.Send(fmt.Sprintf("The file is too large to send directly, download it here:\n%s", result.DownloadLink))
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(result.FileBytes)),
		FileName: result.Filename,
	}
	return c.Send(doc)
}
