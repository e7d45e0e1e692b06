package assetsApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/KotFed0t/fund_tracker_bot/config"
	"github.com/KotFed0t/fund_tracker_bot/internal/converter/assetsConverter"
	"github.com/KotFed0t/fund_tracker_bot/internal/externalApi"
	"github.com/KotFed0t/fund_tracker_bot/internal/model"
	"github.com/KotFed0t/fund_tracker_bot/internal/model/assetsModel"
	"github.com/KotFed0t/fund_tracker_bot/utils"
	"github.com/go-resty/resty/v2"
)

const (
	assetsPath       = "/api/assets"
	assetPath        = "/api/assets/%d"
	summaryPath      = "/api/assets/summary"
	refreshPath      = "/api/assets/refresh"
	masterSearchPath = "/api/master/search"
)

type AssetsApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *AssetsApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.AssetsApi.Url).
		SetHeader("Accept", "application/json")
	return &AssetsApi{client: client}
}

// Probe checks that the backend accepts cred by reading the holdings collection.
func (a *AssetsApi) Probe(ctx context.Context, cred *model.Credential) error {
	return a.do(ctx, cred, "AssetsApi.Probe", http.MethodGet, assetsPath, nil, nil, nil)
}

func (a *AssetsApi) GetAssets(ctx context.Context, cred *model.Credential) ([]model.Holding, error) {
	var assets []assetsModel.Asset
	err := a.do(ctx, cred, "AssetsApi.GetAssets", http.MethodGet, assetsPath, nil, nil, &assets)
	if err != nil {
		return nil, err
	}
	return assetsConverter.ConvertAssets(assets), nil
}

func (a *AssetsApi) GetSummary(ctx context.Context, cred *model.Credential) (model.Summary, error) {
	var summary assetsModel.Summary
	err := a.do(ctx, cred, "AssetsApi.GetSummary", http.MethodGet, summaryPath, nil, nil, &summary)
	if err != nil {
		return model.Summary{}, err
	}
	return assetsConverter.ConvertSummary(summary), nil
}

// CreateAsset returns the created holding; it is zero if the backend answered with an empty body.
func (a *AssetsApi) CreateAsset(ctx context.Context, cred *model.Credential, in model.NewHoldingInput) (model.Holding, error) {
	var created assetsModel.Asset
	body := assetsConverter.CreateAssetRequest(in)
	err := a.do(ctx, cred, "AssetsApi.CreateAsset", http.MethodPost, assetsPath, nil, body, &created)
	if err != nil {
		return model.Holding{}, err
	}
	return assetsConverter.ConvertAsset(created), nil
}

func (a *AssetsApi) UpdateAsset(ctx context.Context, cred *model.Credential, id int64, in model.HoldingInput) error {
	body := assetsConverter.UpdateAssetRequest(in)
	return a.do(ctx, cred, "AssetsApi.UpdateAsset", http.MethodPut, fmt.Sprintf(assetPath, id), nil, body, nil)
}

func (a *AssetsApi) DeleteAsset(ctx context.Context, cred *model.Credential, id int64) error {
	return a.do(ctx, cred, "AssetsApi.DeleteAsset", http.MethodDelete, fmt.Sprintf(assetPath, id), nil, nil, nil)
}

func (a *AssetsApi) RefreshPrices(ctx context.Context, cred *model.Credential) ([]model.Holding, error) {
	var assets []assetsModel.Asset
	err := a.do(ctx, cred, "AssetsApi.RefreshPrices", http.MethodPost, refreshPath, nil, nil, &assets)
	if err != nil {
		return nil, err
	}
	return assetsConverter.ConvertAssets(assets), nil
}

func (a *AssetsApi) SearchFunds(ctx context.Context, cred *model.Credential, keyword string) ([]model.FundOption, error) {
	var masters []assetsModel.FundMaster
	params := map[string]string{"keyword": keyword}
	err := a.do(ctx, cred, "AssetsApi.SearchFunds", http.MethodGet, masterSearchPath, params, nil, &masters)
	if err != nil {
		return nil, err
	}
	return assetsConverter.ConvertFundMasters(masters), nil
}

func (a *AssetsApi) do(
	ctx context.Context,
	cred *model.Credential,
	op, method, url string,
	params map[string]string,
	body any,
	result any,
) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if cred == nil || cred.Revoked() {
		slog.Warn("request skipped, credential revoked", slog.String("rqID", rqID), slog.String("op", op))
		return externalApi.ErrCredentialRevoked
	}

	slog.Debug("start request", slog.String("rqID", rqID), slog.String("op", op), slog.String("method", method), slog.String("url", url))

	reqCtx, cancel := cred.Bind(ctx)
	defer cancel()

	req := a.client.R().
		SetContext(reqCtx).
		SetAuthScheme("Basic").
		SetAuthToken(cred.Token())

	if params != nil {
		req.SetQueryParams(params)
	}

	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		if cred.Revoked() {
			slog.Warn("request aborted, credential revoked", slog.String("rqID", rqID), slog.String("op", op))
			return externalApi.ErrCredentialRevoked
		}
		slog.Error("error while dialing AssetsApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return fmt.Errorf("%w: %w", externalApi.ErrTransport, err)
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		slog.Warn("AssetsApi rejected credential", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", status))
		return externalApi.ErrUnauthorized
	case !resp.IsSuccess():
		slog.Error("AssetsApi returned error status", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", status))
		return &externalApi.StatusError{StatusCode: status, Body: string(resp.Body())}
	}

	if result != nil && len(resp.Body()) > 0 {
		err = json.Unmarshal(resp.Body(), result)
		if err != nil {
			slog.Error("can't unmarshall AssetsApi response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return fmt.Errorf("%w: %w", externalApi.ErrBadResponse, err)
		}
	}

	slog.Debug("request complete", slog.String("rqID", rqID), slog.String("op", op), slog.String("status", strconv.Itoa(resp.StatusCode())))

	return nil
}
