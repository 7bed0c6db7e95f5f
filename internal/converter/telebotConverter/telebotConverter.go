package telebotConverter

import (
	"fmt"
	"strings"

	"github.com/KotFed0t/crypto_tracker_bot/internal/model"
	"github.com/shopspring/decimal"
)

func changeEmoji(v decimal.Decimal) string {
	if v.IsNegative() {
		return "🔴"
	}
	return "🟢"
}

func CoinPriceResponse(price model.CoinPrice) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("💵 %s\n", price.ID))
	sb.WriteString(fmt.Sprintf("USD: $%s\n", price.USD.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("EUR: €%s\n", price.EUR.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("TRY: ₺%s\n", price.TRY.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("%s 24h: %s%%\n", changeEmoji(price.Change24hUSD), price.Change24hUSD.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Market cap: $%s", price.MarketCapUSD.StringFixed(0)))

	return sb.String()
}

func TopCoinsResponse(coins []model.CoinMarket) string {
	var sb strings.Builder

	sb.WriteString("🏆 Top coins by market cap:\n\n")
	for i, coin := range coins {
		sb.WriteString(fmt.Sprintf(
			"%d. %s (%s) — $%s %s %s%%\n",
			i+1,
			coin.Name,
			strings.ToUpper(coin.Symbol),
			coin.PriceUSD.StringFixed(2),
			changeEmoji(coin.Change24h),
			coin.Change24h.StringFixed(2),
		))
	}

	return sb.String()
}

func WatchlistResponse(items []model.WatchlistItem) string {
	var sb strings.Builder

	sb.WriteString("⭐ Favorites:\n\n")
	for _, item := range items {
		if item.NoData {
			sb.WriteString(fmt.Sprintf("%s — no data\n", item.CoinID))
			continue
		}
		sb.WriteString(fmt.Sprintf(
			"%s — $%s %s %s%%\n",
			item.CoinID,
			item.Price.USD.StringFixed(2),
			changeEmoji(item.Price.Change24hUSD),
			item.Price.Change24hUSD.StringFixed(2),
		))
	}

	return sb.String()
}

func PortfolioResponse(valuation model.PortfolioValuation) string {
	var sb strings.Builder

	sb.WriteString("💼 Portfolio:\n\n")
	for _, asset := range valuation.Assets {
		if asset.NoData {
			sb.WriteString(fmt.Sprintf("%s: %s — price unavailable\n", asset.CoinID, asset.Amount.String()))
			continue
		}
		sb.WriteString(fmt.Sprintf(
			"%s: %s × $%s = $%s (₺%s)\n",
			asset.CoinID,
			asset.Amount.String(),
			asset.PriceUSD.StringFixed(2),
			asset.ValueUSD.StringFixed(2),
			asset.ValueTRY.StringFixed(2),
		))
	}
	sb.WriteString(fmt.Sprintf("\n💰 Total: $%s", valuation.TotalValueUSD.StringFixed(2)))

	return sb.String()
}

func PerformanceResponse(performance model.PortfolioPerformance) string {
	var sb strings.Builder

	sb.WriteString("📊 Portfolio performance:\n\n")
	for _, asset := range performance.Assets {
		if asset.NoData {
			sb.WriteString(fmt.Sprintf("▫️ %s — price unavailable\n\n", asset.CoinID))
			continue
		}

		if asset.Liquidated {
			sb.WriteString(fmt.Sprintf("▫️ %s (position closed)\n", asset.CoinID))
			sb.WriteString(fmt.Sprintf("   %s Realized P&L: $%s (%s%%)\n\n",
				changeEmoji(asset.RealizedPL),
				asset.RealizedPL.StringFixed(2),
				asset.PercentChange.StringFixed(2),
			))
			continue
		}

		sb.WriteString(fmt.Sprintf("▫️ %s: %s\n", asset.CoinID, asset.Amount.String()))
		sb.WriteString(fmt.Sprintf("   Value: $%s | Invested: $%s\n",
			asset.CurrentValue.StringFixed(2),
			asset.Invested.StringFixed(2),
		))
		sb.WriteString(fmt.Sprintf("   %s P&L: $%s (%s%%)\n\n",
			changeEmoji(asset.TotalPL),
			asset.TotalPL.StringFixed(2),
			asset.PercentChange.StringFixed(2),
		))
	}

	sb.WriteString(fmt.Sprintf("💰 Total value: $%s\n", performance.TotalCurrentValue.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("💵 Total invested: $%s\n", performance.TotalInvestment.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("%s Total P&L: $%s (%s%%)",
		changeEmoji(performance.TotalPL),
		performance.TotalPL.StringFixed(2),
		performance.TotalPercent.StringFixed(2),
	))

	return sb.String()
}

// TransactionsResponse numbers transactions per coin starting from 1; the same
// numbering /delete_transaction expects.
func TransactionsResponse(assets []model.AssetTransactions) string {
	var sb strings.Builder

	sb.WriteString("📜 Transactions:\n")
	for _, asset := range assets {
		sb.WriteString(fmt.Sprintf("\n%s:\n", asset.CoinID))
		for i, tx := range asset.Transactions {
			sb.WriteString(fmt.Sprintf(
				"%d. %s %s @ $%s, fee $%s (%s)\n",
				i+1,
				tx.Kind,
				tx.Amount.String(),
				tx.Price.String(),
				tx.Fee.String(),
				tx.Date.String(),
			))
		}
	}

	return sb.String()
}
