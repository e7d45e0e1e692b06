package assetsApi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KotFed0t/fund_tracker_bot/config"
	"github.com/KotFed0t/fund_tracker_bot/internal/externalApi"
	"github.com/KotFed0t/fund_tracker_bot/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApi(t *testing.T, handler http.HandlerFunc) *AssetsApi {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.API.Timeout = 5 * time.Second
	cfg.API.AssetsApi.Url = server.URL
	return New(cfg)
}

func TestGetAssetsSendsBasicAuth(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/assets", r.URL.Path)
		assert.Equal(t, "Basic dXNlcjpwYXNz", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":1,"fundName":"eMAXIS Slim S&P500","code":"03311187","investmentAmount":100000,"acquisitionPrice":10000,"currentPrice":12000,"investmentDate":"2024-01-15"},
			{"id":2,"fundName":"Nissay TOPIX","code":null,"investmentAmount":50000,"acquisitionPrice":0,"currentPrice":null}
		]`))
	})

	holdings, err := api.GetAssets(t.Context(), model.NewCredential("user", "pass"))
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	assert.Equal(t, int64(1), holdings[0].ID)
	assert.Equal(t, "03311187", holdings[0].Code)
	assert.True(t, holdings[0].CurrentPrice.Valid)
	assert.True(t, decimal.NewFromInt(12000).Equal(holdings[0].CurrentPrice.Decimal))
	assert.Equal(t, "2024-01-15", holdings[0].InvestmentDate)

	assert.False(t, holdings[1].CurrentPrice.Valid)
	assert.Empty(t, holdings[1].Code)
}

func TestGetSummaryNullTotals(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/assets/summary", r.URL.Path)
		w.Write([]byte(`{"totalInvestmentAmount":150000,"totalCurrentValue":null,"totalProfitLoss":null}`))
	})

	summary, err := api.GetSummary(t.Context(), model.NewCredential("user", "pass"))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150000).Equal(summary.TotalInvestmentAmount))
	assert.False(t, summary.TotalCurrentValue.Valid)
	assert.False(t, summary.TotalProfitLoss.Valid)
}

func TestCreateAssetSendsNumbers(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "Fund A", body["fundName"])
		assert.Equal(t, float64(100000), body["investmentAmount"])
		assert.Equal(t, float64(10000), body["acquisitionPrice"])
		assert.NotContains(t, body, "currentPrice")

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":42,"fundName":"Fund A","investmentAmount":100000,"acquisitionPrice":10000,"currentPrice":null}`))
	})

	created, err := api.CreateAsset(t.Context(), model.NewCredential("user", "pass"), model.NewHoldingInput{
		FundName:         " Fund A ",
		InvestmentAmount: decimal.NewFromInt(100000),
		AcquisitionPrice: decimal.NewFromInt(10000),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)
}

func TestUpdateAssetSendsFullRecord(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/assets/7", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		for _, key := range []string{"fundName", "code", "investmentAmount", "acquisitionPrice", "currentPrice", "investmentDate"} {
			assert.Contains(t, body, key)
		}
		assert.Nil(t, body["currentPrice"])
		assert.Nil(t, body["investmentDate"])
		w.WriteHeader(http.StatusOK)
	})

	err := api.UpdateAsset(t.Context(), model.NewCredential("user", "pass"), 7, model.HoldingInput{
		FundName:         "Fund A",
		Code:             "X1",
		InvestmentAmount: decimal.NewFromInt(1000),
		AcquisitionPrice: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
}

func TestDeleteAndRefresh(t *testing.T) {
	var calls []string
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/api/assets/refresh" {
			w.Write([]byte(`[{"id":1,"fundName":"A","investmentAmount":10,"acquisitionPrice":1,"currentPrice":2}]`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	cred := model.NewCredential("user", "pass")
	require.NoError(t, api.DeleteAsset(t.Context(), cred, 3))

	holdings, err := api.RefreshPrices(t.Context(), cred)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.True(t, holdings[0].CurrentPrice.Valid)

	assert.Equal(t, []string{"DELETE /api/assets/3", "POST /api/assets/refresh"}, calls)
}

func TestSearchFundsKeyword(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/master/search", r.URL.Path)
		assert.Equal(t, "オール カントリー", r.URL.Query().Get("keyword"))
		w.Write([]byte(`[{"code":"0331418A","fundName":"eMAXIS Slim 全世界株式(オール・カントリー)"}]`))
	})

	options, err := api.SearchFunds(t.Context(), model.NewCredential("user", "pass"), "オール カントリー")
	require.NoError(t, err)
	assert.Equal(t, []model.FundOption{{Code: "0331418A", FundName: "eMAXIS Slim 全世界株式(オール・カントリー)"}}, options)
}

func TestErrorTaxonomy(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
			api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			})
			err := api.Probe(t.Context(), model.NewCredential("user", "bad"))
			assert.ErrorIs(t, err, externalApi.ErrUnauthorized)
		}
	})

	t.Run("server error", func(t *testing.T) {
		api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`fundName must not be blank`))
		})
		_, err := api.CreateAsset(t.Context(), model.NewCredential("user", "pass"), model.NewHoldingInput{FundName: "x"})

		var statusErr *externalApi.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
		assert.Contains(t, statusErr.Error(), "fundName must not be blank")
	})

	t.Run("not found", func(t *testing.T) {
		api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		err := api.DeleteAsset(t.Context(), model.NewCredential("user", "pass"), 99)
		assert.ErrorIs(t, err, externalApi.ErrNotFound)
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		cfg := &config.Config{}
		cfg.API.Timeout = time.Second
		cfg.API.AssetsApi.Url = url

		err := New(cfg).Probe(t.Context(), model.NewCredential("user", "pass"))
		assert.ErrorIs(t, err, externalApi.ErrTransport)
	})

	t.Run("malformed body", func(t *testing.T) {
		api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		})
		_, err := api.GetAssets(t.Context(), model.NewCredential("user", "pass"))
		assert.ErrorIs(t, err, externalApi.ErrBadResponse)
	})
}

func TestRevokedCredentialIssuesNoRequest(t *testing.T) {
	var hits atomic.Int32
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	cred := model.NewCredential("user", "pass")
	cred.Revoke()

	_, err := api.GetAssets(t.Context(), cred)
	assert.ErrorIs(t, err, externalApi.ErrCredentialRevoked)
	assert.Zero(t, hits.Load())
}

func TestRevokeAbortsInFlightRequest(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	cred := model.NewCredential("user", "pass")
	errCh := make(chan error, 1)
	go func() {
		_, err := api.GetAssets(t.Context(), cred)
		errCh <- err
	}()

	<-started
	cred.Revoke()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, externalApi.ErrCredentialRevoked)
	case <-time.After(3 * time.Second):
		t.Fatal("request was not aborted")
	}
}
