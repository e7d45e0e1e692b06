package telebotConverter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KotFed0t/fund_tracker_bot/internal/model"
	"github.com/KotFed0t/fund_tracker_bot/internal/model/tg/tgCallback"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	tele "gopkg.in/telebot.v4"
)

const (
	Placeholder = "-"
	staleNote   = "⚠️ could not be updated, send /holdings to retry\n"
)

var printer = message.NewPrinter(language.English)

// FormatMoney groups the integer part by thousands: 1234567.5 -> 1,234,567.5
func FormatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	intPart := d.Truncate(0)
	res := sign + printer.Sprintf("%d", intPart.IntPart())

	if frac := d.Sub(intPart); !frac.IsZero() {
		// "0.25" -> ".25"
		res += strings.TrimPrefix(frac.String(), "0")
	}
	return res
}

// FormatProfitLoss prefixes positive values with "+".
func FormatProfitLoss(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + FormatMoney(d)
	}
	return FormatMoney(d)
}

func StyleMark(style model.PLStyle) string {
	if style == model.PLNegative {
		return "🔴"
	}
	return "🟢"
}

func formatNullMoney(d decimal.NullDecimal) string {
	if !d.Valid {
		return Placeholder
	}
	return FormatMoney(d.Decimal)
}

func formatNullProfitLoss(d decimal.NullDecimal) string {
	if !d.Valid {
		return Placeholder
	}
	return StyleMark(model.StyleOf(d.Decimal)) + " " + FormatProfitLoss(d.Decimal)
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

func SummaryText(summary *model.Summary) string {
	var sb strings.Builder
	sb.WriteString("📊 Portfolio summary\n")
	if summary == nil {
		sb.WriteString("summary is not available\n")
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("💰 Invested: %s\n", FormatMoney(summary.TotalInvestmentAmount)))
	sb.WriteString(fmt.Sprintf("📈 Current value: %s\n", formatNullMoney(summary.TotalCurrentValue)))
	sb.WriteString(fmt.Sprintf("⚖️ Profit/loss: %s\n", formatNullProfitLoss(summary.TotalProfitLoss)))
	return sb.String()
}

func HoldingText(h model.Holding) string {
	var sb strings.Builder

	sb.WriteString(h.FundName)
	if h.Code != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", h.Code))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("   ▸ Invested: %s\n", FormatMoney(h.InvestmentAmount)))
	sb.WriteString(fmt.Sprintf("   ▸ Acquisition price: %s\n", FormatMoney(h.AcquisitionPrice)))
	sb.WriteString(fmt.Sprintf("   ▸ Current price: %s\n", formatNullMoney(h.CurrentPrice)))

	v := h.Valuation()
	if v.Priced {
		sb.WriteString(fmt.Sprintf("   ▸ Current value: %s\n", FormatMoney(v.CurrentValue)))
		sb.WriteString(fmt.Sprintf("   ▸ Profit/loss: %s %s\n", StyleMark(model.StyleOf(v.ProfitLoss)), FormatProfitLoss(v.ProfitLoss)))
	} else {
		sb.WriteString(fmt.Sprintf("   ▸ Current value: %s\n", Placeholder))
		sb.WriteString(fmt.Sprintf("   ▸ Profit/loss: %s\n", Placeholder))
	}
	sb.WriteString(fmt.Sprintf("   ▸ Investment date: %s\n", orPlaceholder(h.InvestmentDate)))

	return sb.String()
}

func PortfolioPageResponse(page model.PortfolioPage) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	if page.SummaryStale {
		sb.WriteString("📊 Portfolio summary\n")
		sb.WriteString(staleNote)
	} else {
		sb.WriteString(SummaryText(page.Summary))
	}
	sb.WriteString("\n")

	if page.HoldingsStale {
		sb.WriteString("📋 Holdings\n")
		sb.WriteString(staleNote)
		page.Holdings = nil
		page.CurPage, page.HasNextPage = 0, false
	} else if page.Total == 0 {
		sb.WriteString("No holdings yet. Add one with the button below.\n")
	} else {
		sb.WriteString(fmt.Sprintf("📋 Holdings (page %d/%d):\n\n", page.CurPage+1, page.TotalPages))
	}

	rows := make([]tele.Row, 0, len(page.Holdings)+3)
	for i, h := range page.Holdings {
		ordinal := page.CurPage*page.PerPage + i + 1
		sb.WriteString(fmt.Sprintf("%d. %s\n", ordinal, HoldingText(h)))

		id := strconv.FormatInt(h.ID, 10)
		rows = append(rows, markup.Row(
			markup.Data(fmt.Sprintf("✏️ %d", ordinal), tgCallback.EditHolding, id),
			markup.Data(fmt.Sprintf("🗑 %d", ordinal), tgCallback.DeleteHolding, id),
		))
	}

	paginationBtns := make([]tele.Btn, 0, 2)
	if page.CurPage > 0 {
		paginationBtns = append(paginationBtns, markup.Data("⬅️ previous", tgCallback.Page, strconv.Itoa(page.CurPage-1)))
	}
	if page.HasNextPage {
		paginationBtns = append(paginationBtns, markup.Data("next ➡️", tgCallback.Page, strconv.Itoa(page.CurPage+1)))
	}
	if len(paginationBtns) > 0 {
		rows = append(rows, markup.Row(paginationBtns...))
	}

	rows = append(rows,
		markup.Row(
			markup.Data("➕ Add holding", tgCallback.AddHolding),
			markup.Data("🔍 Search fund", tgCallback.SearchFund),
		),
		markup.Row(
			markup.Data("🔄 Refresh prices", tgCallback.RefreshPrices),
			markup.Data("📄 Export", tgCallback.Export),
		),
	)
	markup.Inline(rows...)

	return sb.String(), markup
}

func EditFormResponse(form model.HoldingInput) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString("✏️ Editing holding\n\n")
	sb.WriteString(fmt.Sprintf("Fund name: %s\n", form.FundName))
	sb.WriteString(fmt.Sprintf("Code: %s\n", orPlaceholder(form.Code)))
	sb.WriteString(fmt.Sprintf("Invested: %s\n", FormatMoney(form.InvestmentAmount)))
	sb.WriteString(fmt.Sprintf("Acquisition price: %s\n", FormatMoney(form.AcquisitionPrice)))
	sb.WriteString(fmt.Sprintf("Current price: %s\n", formatNullMoney(form.CurrentPrice)))
	sb.WriteString(fmt.Sprintf("Investment date: %s\n", orPlaceholder(form.InvestmentDate)))
	sb.WriteString("\nChoose a field to change, then save.")

	fields := []model.EditField{model.EditFundName, model.EditCode, model.EditCurrentPrice}
	fieldBtns := make([]tele.Btn, 0, len(fields))
	for _, f := range fields {
		fieldBtns = append(fieldBtns, markup.Data(f.Label(), tgCallback.EditField, string(f)))
	}

	markup.Inline(
		markup.Row(fieldBtns...),
		markup.Row(
			markup.Data("💾 Save", tgCallback.SaveEdit),
			markup.Data("✖️ Cancel", tgCallback.CancelEdit),
		),
	)

	return sb.String(), markup
}

func EditFieldPrompt(field model.EditField) string {
	if field == model.EditCurrentPrice || field == model.EditCode {
		return fmt.Sprintf("Enter the new %s (send - to clear it):", field.Label())
	}
	return fmt.Sprintf("Enter the new %s:", field.Label())
}

func DeleteConfirmResponse(h model.Holding) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	text = fmt.Sprintf("Delete %s? This cannot be undone.", h.FundName)
	markup.Inline(markup.Row(
		markup.Data("🗑 Delete", tgCallback.ConfirmDelete, strconv.FormatInt(h.ID, 10)),
		markup.Data("Keep", tgCallback.CancelDelete),
	))
	return text, markup
}

func FundOptionsResponse(keyword string, options []model.FundOption) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	if len(options) == 0 {
		markup.Inline(markup.Row(markup.Data("🔍 Search again", tgCallback.SearchFund)))
		return fmt.Sprintf("Nothing found for %q.", keyword), markup
	}

	rows := make([]tele.Row, 0, len(options))
	for i, o := range options {
		label := o.FundName
		if o.Code != "" {
			label = fmt.Sprintf("%s (%s)", o.FundName, o.Code)
		}
		rows = append(rows, markup.Row(markup.Data(label, tgCallback.SelectFund, strconv.Itoa(i))))
	}
	markup.Inline(rows...)

	return fmt.Sprintf("Found %d funds for %q. Pick one:", len(options), keyword), markup
}

func SkipMarkup() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("Skip", tgCallback.SkipStep)))
	return markup
}

func DraftText(draft model.NewHoldingInput) string {
	var sb strings.Builder
	sb.WriteString("New holding\n")
	sb.WriteString(fmt.Sprintf("Fund name: %s\n", orPlaceholder(draft.FundName)))
	sb.WriteString(fmt.Sprintf("Code: %s\n", orPlaceholder(draft.Code)))
	if !draft.InvestmentAmount.IsZero() {
		sb.WriteString(fmt.Sprintf("Invested: %s\n", FormatMoney(draft.InvestmentAmount)))
	}
	if !draft.AcquisitionPrice.IsZero() {
		sb.WriteString(fmt.Sprintf("Acquisition price: %s\n", FormatMoney(draft.AcquisitionPrice)))
	}
	return sb.String()
}

func LogoutMarkup() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("🚪 Log out", tgCallback.Logout)))
	return markup
}
