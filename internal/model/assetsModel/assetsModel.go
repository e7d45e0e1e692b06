package assetsModel

import "github.com/shopspring/decimal"

func init() {
	// backend expects money as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

type Asset struct {
	ID               int64               `json:"id"`
	FundName         string              `json:"fundName"`
	Code             string              `json:"code"`
	InvestmentAmount decimal.Decimal     `json:"investmentAmount"`
	AcquisitionPrice decimal.Decimal     `json:"acquisitionPrice"`
	CurrentPrice     decimal.NullDecimal `json:"currentPrice"`
	CurrentValue     decimal.NullDecimal `json:"currentValue"`
	InvestmentDate   string              `json:"investmentDate"`
}

type Summary struct {
	TotalInvestmentAmount decimal.Decimal     `json:"totalInvestmentAmount"`
	TotalCurrentValue     decimal.NullDecimal `json:"totalCurrentValue"`
	TotalProfitLoss       decimal.NullDecimal `json:"totalProfitLoss"`
}

type FundMaster struct {
	Code     string `json:"code"`
	FundName string `json:"fundName"`
}

type CreateAssetRequest struct {
	FundName         string          `json:"fundName"`
	Code             string          `json:"code,omitempty"`
	InvestmentAmount decimal.Decimal `json:"investmentAmount"`
	AcquisitionPrice decimal.Decimal `json:"acquisitionPrice"`
	InvestmentDate   string          `json:"investmentDate,omitempty"`
}

// UpdateAssetRequest always carries the whole record, including nulls.
type UpdateAssetRequest struct {
	FundName         string              `json:"fundName"`
	Code             string              `json:"code"`
	InvestmentAmount decimal.Decimal     `json:"investmentAmount"`
	AcquisitionPrice decimal.Decimal     `json:"acquisitionPrice"`
	CurrentPrice     decimal.NullDecimal `json:"currentPrice"`
	InvestmentDate   *string             `json:"investmentDate"`
}
