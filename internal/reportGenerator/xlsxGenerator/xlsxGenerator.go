package xlsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/fund_tracker_bot/internal/model"
	"github.com/KotFed0t/fund_tracker_bot/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	HoldingsSheet = "Holdings"
	SummarySheet  = "Summary"
)

var holdingsHeader = []string{
	"fund name", "code", "investment amount", "acquisition price",
	"current price", "current value", "profit/loss", "investment date",
}

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate renders the snapshot into a workbook. Unpriced holdings leave the
// price, value and profit/loss cells empty.
func (g *XLSXGenerator) Generate(ctx context.Context, portfolio model.Portfolio) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	if !portfolio.Loaded {
		return nil, "", errors.New("portfolio is not loaded")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("holdings", len(portfolio.Holdings)))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err = f.SetSheetName("Sheet1", HoldingsSheet); err != nil {
		return nil, "", err
	}

	if err = g.fillHoldings(f, portfolio.Holdings); err != nil {
		slog.Error("got error while filling holdings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err = g.fillSummary(f, portfolio.Summary); err != nil {
		slog.Error("got error while filling summary", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
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
			Color:   []string{color},
		},
	})
}

func setNullDecimal(f *excelize.File, sheet, cell string, d decimal.NullDecimal) {
	if d.Valid {
		_ = f.SetCellValue(sheet, cell, d.Decimal.InexactFloat64())
	}
}

func (g *XLSXGenerator) fillHoldings(f *excelize.File, holdings []model.Holding) error {
	for i, title := range holdingsHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		_ = f.SetCellStr(HoldingsSheet, cell, title)
	}

	styleID, err := headerStyle(f, "#cfe2f3")
	if err != nil {
		return err
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(holdingsHeader), 1)
	if err := f.SetCellStyle(HoldingsSheet, "A1", lastHeader, styleID); err != nil {
		return fmt.Errorf("set header style: %w", err)
	}

	lossStyleID, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "#cc0000"}})
	if err != nil {
		return err
	}

	for i, h := range holdings {
		row := i + 2
		_ = f.SetCellStr(HoldingsSheet, fmt.Sprintf("A%d", row), h.FundName)
		_ = f.SetCellStr(HoldingsSheet, fmt.Sprintf("B%d", row), h.Code)
		_ = f.SetCellValue(HoldingsSheet, fmt.Sprintf("C%d", row), h.InvestmentAmount.InexactFloat64())
		_ = f.SetCellValue(HoldingsSheet, fmt.Sprintf("D%d", row), h.AcquisitionPrice.InexactFloat64())
		setNullDecimal(f, HoldingsSheet, fmt.Sprintf("E%d", row), h.CurrentPrice)

		if v := h.Valuation(); v.Priced {
			_ = f.SetCellValue(HoldingsSheet, fmt.Sprintf("F%d", row), v.CurrentValue.InexactFloat64())
			plCell := fmt.Sprintf("G%d", row)
			_ = f.SetCellValue(HoldingsSheet, plCell, v.ProfitLoss.InexactFloat64())
			if model.StyleOf(v.ProfitLoss) == model.PLNegative {
				_ = f.SetCellStyle(HoldingsSheet, plCell, plCell, lossStyleID)
			}
		}

		_ = f.SetCellStr(HoldingsSheet, fmt.Sprintf("H%d", row), h.InvestmentDate)
	}

	return f.SetColWidth(HoldingsSheet, "A", "A", 40)
}

func (g *XLSXGenerator) fillSummary(f *excelize.File, summary *model.Summary) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}

	if err := f.MergeCell(SummarySheet, "A1", "B1"); err != nil {
		return err
	}
	_ = f.SetCellStr(SummarySheet, "A1", "Summary")

	styleID, err := headerStyle(f, "#d9ead3")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("set summary style: %w", err)
	}

	_ = f.SetCellStr(SummarySheet, "A2", "total investment amount")
	_ = f.SetCellStr(SummarySheet, "A3", "total current value")
	_ = f.SetCellStr(SummarySheet, "A4", "total profit/loss")

	if summary == nil {
		return nil
	}

	_ = f.SetCellValue(SummarySheet, "B2", summary.TotalInvestmentAmount.InexactFloat64())
	setNullDecimal(f, SummarySheet, "B3", summary.TotalCurrentValue)
	setNullDecimal(f, SummarySheet, "B4", summary.TotalProfitLoss)

	return f.SetColWidth(SummarySheet, "A", "A", 28)
}
