package xslsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/crypto_tracker_bot/internal/model"
	"github.com/KotFed0t/crypto_tracker_bot/utils"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Transactions"

type XSLSXGenerator struct{}

func New() *XSLSXGenerator {
	return &XSLSXGenerator{}
}

// Generate renders the full transaction history, one sheet, one row per
// transaction, grouped by coin. Indexes are 1-based per coin to match the
// /delete_transaction numbering.
func (g *XSLSXGenerator) Generate(ctx context.Context, assets []model.AssetTransactions) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	if len(assets) == 0 {
		return nil, "", errors.New("no transactions to export")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, "", err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"},
		},
	})
	if err != nil {
		return nil, "", err
	}

	headers := []string{"Coin", "#", "Type", "Amount", "Price (USD)", "Fee (USD)", "Date"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellStr(sheetName, cell, header)
	}
	if err := f.SetCellStyle(sheetName, "A1", "G1", headerStyle); err != nil {
		return nil, "", err
	}

	row := 2
	for _, asset := range assets {
		for i, tx := range asset.Transactions {
			_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), asset.CoinID)
			_ = f.SetCellInt(sheetName, fmt.Sprintf("B%d", row), i+1)
			_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", row), string(tx.Kind))
			_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", row), tx.Amount.String())
			_ = f.SetCellStr(sheetName, fmt.Sprintf("E%d", row), tx.Price.String())
			_ = f.SetCellStr(sheetName, fmt.Sprintf("F%d", row), tx.Fee.String())
			_ = f.SetCellStr(sheetName, fmt.Sprintf("G%d", row), tx.Date.String())
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}
