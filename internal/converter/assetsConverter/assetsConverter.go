package assetsConverter

import (
	"strings"

	"github.com/KotFed0t/fund_tracker_bot/internal/model"
	"github.com/KotFed0t/fund_tracker_bot/internal/model/assetsModel"
)

func ConvertAsset(asset assetsModel.Asset) model.Holding {
	return model.Holding{
		ID:               asset.ID,
		FundName:         asset.FundName,
		Code:             asset.Code,
		InvestmentAmount: asset.InvestmentAmount,
		AcquisitionPrice: asset.AcquisitionPrice,
		CurrentPrice:     asset.CurrentPrice,
		CurrentValue:     asset.CurrentValue,
		InvestmentDate:   asset.InvestmentDate,
	}
}

func ConvertAssets(assets []assetsModel.Asset) []model.Holding {
	res := make([]model.Holding, 0, len(assets))
	for _, asset := range assets {
		res = append(res, ConvertAsset(asset))
	}
	return res
}

func ConvertSummary(summary assetsModel.Summary) model.Summary {
	return model.Summary{
		TotalInvestmentAmount: summary.TotalInvestmentAmount,
		TotalCurrentValue:     summary.TotalCurrentValue,
		TotalProfitLoss:       summary.TotalProfitLoss,
	}
}

func ConvertFundMasters(masters []assetsModel.FundMaster) []model.FundOption {
	res := make([]model.FundOption, 0, len(masters))
	for _, m := range masters {
		res = append(res, model.FundOption{Code: m.Code, FundName: m.FundName})
	}
	return res
}

func CreateAssetRequest(in model.NewHoldingInput) assetsModel.CreateAssetRequest {
	return assetsModel.CreateAssetRequest{
		FundName:         strings.TrimSpace(in.FundName),
		Code:             strings.TrimSpace(in.Code),
		InvestmentAmount: in.InvestmentAmount,
		AcquisitionPrice: in.AcquisitionPrice,
		InvestmentDate:   in.InvestmentDate,
	}
}

func UpdateAssetRequest(in model.HoldingInput) assetsModel.UpdateAssetRequest {
	req := assetsModel.UpdateAssetRequest{
		FundName:         strings.TrimSpace(in.FundName),
		Code:             strings.TrimSpace(in.Code),
		InvestmentAmount: in.InvestmentAmount,
		AcquisitionPrice: in.AcquisitionPrice,
		CurrentPrice:     in.CurrentPrice,
	}
	if in.InvestmentDate != "" {
		date := in.InvestmentDate
		req.InvestmentDate = &date
	}
	return req
}
