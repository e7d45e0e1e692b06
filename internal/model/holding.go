package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const InvestmentDateLayout = time.DateOnly

type Holding struct {
	ID               int64
	FundName         string
	Code             string
	InvestmentAmount decimal.Decimal
	AcquisitionPrice decimal.Decimal
	CurrentPrice     decimal.NullDecimal
	// CurrentValue is set only when the backend returns a ready per-row value.
	CurrentValue   decimal.NullDecimal
	InvestmentDate string
}

// Valuation is the per-row figure shown next to a holding.
// Priced is false while the backend has no current price for the holding.
type Valuation struct {
	Priced       bool
	CurrentValue decimal.Decimal
	ProfitLoss   decimal.Decimal
}

func (h Holding) Valuation() Valuation {
	if !h.CurrentPrice.Valid {
		return Valuation{}
	}

	value := CurrentValue(h.InvestmentAmount, h.AcquisitionPrice, h.CurrentPrice)
	if h.CurrentValue.Valid {
		value = h.CurrentValue.Decimal
	}

	return Valuation{
		Priced:       true,
		CurrentValue: value,
		ProfitLoss:   value.Sub(h.InvestmentAmount),
	}
}

// CurrentValue returns floor(investmentAmount * currentPrice / acquisitionPrice).
// It is zero when the current price is unknown or either operand of the ratio is zero.
func CurrentValue(investmentAmount, acquisitionPrice decimal.Decimal, currentPrice decimal.NullDecimal) decimal.Decimal {
	if !currentPrice.Valid || acquisitionPrice.IsZero() || investmentAmount.IsZero() {
		return decimal.Zero
	}

	q, r := investmentAmount.Mul(currentPrice.Decimal).QuoRem(acquisitionPrice, 0)
	// QuoRem truncates toward zero, floor needs one step down for negative quotients
	if !r.IsZero() && r.Sign() != acquisitionPrice.Sign() {
		q = q.Sub(decimal.NewFromInt(1))
	}
	return q
}

type PLStyle int

const (
	PLNonNegative PLStyle = iota
	PLNegative
)

func StyleOf(profitLoss decimal.Decimal) PLStyle {
	if profitLoss.Sign() < 0 {
		return PLNegative
	}
	return PLNonNegative
}

type Summary struct {
	TotalInvestmentAmount decimal.Decimal
	TotalCurrentValue     decimal.NullDecimal
	TotalProfitLoss       decimal.NullDecimal
}

type FundOption struct {
	Code     string `json:"code"`
	FundName string `json:"fundName"`
}

// NewHoldingInput is the creation form.
type NewHoldingInput struct {
	FundName         string          `json:"fundName"`
	Code             string          `json:"code"`
	InvestmentAmount decimal.Decimal `json:"investmentAmount"`
	AcquisitionPrice decimal.Decimal `json:"acquisitionPrice"`
	InvestmentDate   string          `json:"investmentDate"`
}

func (in NewHoldingInput) Validate() error {
	return validateRecord(in.FundName, in.InvestmentAmount, in.AcquisitionPrice, in.InvestmentDate)
}

// HoldingInput is the complete record sent on update. Updates replace the whole
// record, so every field has to carry the current value even if it was not edited.
type HoldingInput struct {
	FundName         string
	Code             string
	InvestmentAmount decimal.Decimal
	AcquisitionPrice decimal.Decimal
	CurrentPrice     decimal.NullDecimal
	InvestmentDate   string
}

func InputFromHolding(h Holding) HoldingInput {
	return HoldingInput{
		FundName:         h.FundName,
		Code:             h.Code,
		InvestmentAmount: h.InvestmentAmount,
		AcquisitionPrice: h.AcquisitionPrice,
		CurrentPrice:     h.CurrentPrice,
		InvestmentDate:   h.InvestmentDate,
	}
}

func (in HoldingInput) Validate() error {
	if err := validateRecord(in.FundName, in.InvestmentAmount, in.AcquisitionPrice, in.InvestmentDate); err != nil {
		return err
	}
	if in.CurrentPrice.Valid && in.CurrentPrice.Decimal.IsNegative() {
		return errors.New("current price must not be negative")
	}
	return nil
}

type EditField string

const (
	EditFundName     EditField = "fund_name"
	EditCode         EditField = "code"
	EditCurrentPrice EditField = "current_price"
)

func (f EditField) Label() string {
	switch f {
	case EditFundName:
		return "fund name"
	case EditCode:
		return "code"
	case EditCurrentPrice:
		return "current price"
	default:
		return string(f)
	}
}

// Set parses raw into the given field. An empty code or current price clears it.
func (in *HoldingInput) Set(field EditField, raw string) error {
	raw = strings.TrimSpace(raw)

	switch field {
	case EditFundName:
		if raw == "" {
			return errors.New("fund name is required")
		}
		in.FundName = raw
	case EditCode:
		in.Code = raw
	case EditCurrentPrice:
		if raw == "" || raw == "-" {
			in.CurrentPrice = decimal.NullDecimal{}
			return nil
		}
		price, err := ParseAmount(raw)
		if err != nil {
			return err
		}
		in.CurrentPrice = decimal.NewNullDecimal(price)
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

// ParseAmount accepts a non-negative number, optionally with thousands separators.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer(",", "", " ", "", "_", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero, errors.New("a number is required")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a number", raw)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("amount must not be negative")
	}
	return d, nil
}

func ValidateInvestmentDate(raw string) error {
	if raw == "" {
		return nil
	}
	if _, err := time.Parse(InvestmentDateLayout, raw); err != nil {
		return fmt.Errorf("investment date %q must look like 2024-01-31", raw)
	}
	return nil
}

func validateRecord(fundName string, investmentAmount, acquisitionPrice decimal.Decimal, investmentDate string) error {
	if strings.TrimSpace(fundName) == "" {
		return errors.New("fund name is required")
	}
	if investmentAmount.IsNegative() {
		return errors.New("investment amount must not be negative")
	}
	if acquisitionPrice.IsNegative() {
		return errors.New("acquisition price must not be negative")
	}
	return ValidateInvestmentDate(investmentDate)
}
