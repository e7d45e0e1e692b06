package holdingsViewModel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KotFed0t/fund_tracker_bot/internal/externalApi"
	"github.com/KotFed0t/fund_tracker_bot/internal/model"
	"github.com/KotFed0t/fund_tracker_bot/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApi struct {
	mu sync.Mutex

	holdings   []model.Holding
	summary    model.Summary
	options    []model.FundOption
	assetsErr  error
	summaryErr error
	writeErr   error

	refreshGate chan struct{}

	calls   map[string]int
	updated model.HoldingInput
}

func newFakeApi() *fakeApi {
	return &fakeApi{calls: make(map[string]int)}
}

func (f *fakeApi) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeApi) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeApi) GetAssets(ctx context.Context, cred *model.Credential) ([]model.Holding, error) {
	f.record("GetAssets")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Holding(nil), f.holdings...), f.assetsErr
}

func (f *fakeApi) GetSummary(ctx context.Context, cred *model.Credential) (model.Summary, error) {
	f.record("GetSummary")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summary, f.summaryErr
}

func (f *fakeApi) CreateAsset(ctx context.Context, cred *model.Credential, in model.NewHoldingInput) (model.Holding, error) {
	f.record("CreateAsset")
	if f.writeErr != nil {
		return model.Holding{}, f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	h := model.Holding{
		ID:               int64(len(f.holdings) + 1),
		FundName:         in.FundName,
		InvestmentAmount: in.InvestmentAmount,
		AcquisitionPrice: in.AcquisitionPrice,
	}
	f.holdings = append(f.holdings, h)
	f.summary.TotalInvestmentAmount = f.summary.TotalInvestmentAmount.Add(in.InvestmentAmount)
	return h, nil
}

func (f *fakeApi) UpdateAsset(ctx context.Context, cred *model.Credential, id int64, in model.HoldingInput) error {
	f.record("UpdateAsset")
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = in
	for i := range f.holdings {
		if f.holdings[i].ID == id {
			f.holdings[i].FundName = in.FundName
			f.holdings[i].CurrentPrice = in.CurrentPrice
		}
	}
	return nil
}

func (f *fakeApi) DeleteAsset(ctx context.Context, cred *model.Credential, id int64) error {
	f.record("DeleteAsset")
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.holdings[:0]
	for _, h := range f.holdings {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	f.holdings = kept
	return nil
}

func (f *fakeApi) RefreshPrices(ctx context.Context, cred *model.Credential) ([]model.Holding, error) {
	f.record("RefreshPrices")
	if f.refreshGate != nil {
		<-f.refreshGate
	}
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.holdings {
		f.holdings[i].CurrentPrice = decimal.NewNullDecimal(decimal.NewFromInt(12000))
	}
	return append([]model.Holding(nil), f.holdings...), nil
}

func (f *fakeApi) SearchFunds(ctx context.Context, cred *model.Credential, keyword string) ([]model.FundOption, error) {
	f.record("SearchFunds")
	return f.options, f.writeErr
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]model.FundOption
	sets atomic.Int32
}

func (c *memCache) GetFundSearch(ctx context.Context, keyword string) ([]model.FundOption, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	options, ok := c.data[keyword]
	if !ok {
		return nil, errors.New("miss")
	}
	return options, nil
}

func (c *memCache) SetFundSearch(ctx context.Context, keyword string, options []model.FundOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[keyword] = options
	c.sets.Add(1)
	return nil
}

func seeded() *fakeApi {
	api := newFakeApi()
	api.holdings = []model.Holding{{
		ID:               1,
		FundName:         "eMAXIS Slim S&P500",
		Code:             "03311187",
		InvestmentAmount: decimal.NewFromInt(100000),
		AcquisitionPrice: decimal.NewFromInt(10000),
		InvestmentDate:   "2024-01-15",
	}}
	api.summary = model.Summary{TotalInvestmentAmount: decimal.NewFromInt(100000)}
	return api
}

var cred = model.NewCredential("alice", "secret")

func TestLoadAll(t *testing.T) {
	api := seeded()
	vm := New(api, nil)

	require.NoError(t, vm.LoadAll(t.Context(), cred))

	snap := vm.Snapshot()
	assert.True(t, snap.Loaded)
	assert.Len(t, snap.Holdings, 1)
	require.NotNil(t, snap.Summary)
	assert.True(t, decimal.NewFromInt(100000).Equal(snap.Summary.TotalInvestmentAmount))
	assert.Equal(t, 1, api.count("GetAssets"))
	assert.Equal(t, 1, api.count("GetSummary"))
}

func TestLoadAllFailureKeepsState(t *testing.T) {
	api := seeded()
	vm := New(api, nil)
	require.NoError(t, vm.LoadAll(t.Context(), cred))

	api.holdings = nil
	api.assetsErr = &externalApi.StatusError{StatusCode: 500}
	api.summary = model.Summary{TotalInvestmentAmount: decimal.NewFromInt(7)}

	err := vm.LoadAll(t.Context(), cred)
	assert.ErrorIs(t, err, service.ErrServer)

	snap := vm.Snapshot()
	assert.Len(t, snap.Holdings, 1, "failed holdings request must not clear the collection")
	assert.True(t, decimal.NewFromInt(7).Equal(snap.Summary.TotalInvestmentAmount), "successful summary request still applies")
	assert.True(t, snap.HoldingsStale)
	assert.False(t, snap.SummaryStale)

	api.assetsErr = nil
	require.NoError(t, vm.LoadAll(t.Context(), cred))
	assert.False(t, vm.Snapshot().Stale())
}

func TestLoadAllMarksFailedSummaryStale(t *testing.T) {
	api := seeded()
	vm := New(api, nil)
	require.NoError(t, vm.LoadAll(t.Context(), cred))

	_, err := vm.Create(t.Context(), cred, model.NewHoldingInput{
		FundName:         "eMAXIS Slim All Country",
		InvestmentAmount: decimal.NewFromInt(50000),
		AcquisitionPrice: decimal.NewFromInt(20000),
	})
	require.NoError(t, err)

	api.summaryErr = &externalApi.StatusError{StatusCode: 500}
	err = vm.LoadAll(t.Context(), cred)
	assert.ErrorIs(t, err, service.ErrServer)

	snap := vm.Snapshot()
	assert.Len(t, snap.Holdings, 2)
	assert.False(t, snap.HoldingsStale)
	assert.True(t, snap.SummaryStale, "summary from before the change is not current")

	page := snap.Page(0, 5)
	assert.True(t, page.SummaryStale)
}

func TestLoadAllPrefersAuthFailure(t *testing.T) {
	api := seeded()
	api.assetsErr = fmt.Errorf("%w: refused", externalApi.ErrTransport)
	api.summaryErr = externalApi.ErrUnauthorized

	err := New(api, nil).LoadAll(t.Context(), cred)
	assert.ErrorIs(t, err, service.ErrAuth)
}

func TestCreateThenReloadShowsFreshState(t *testing.T) {
	api := seeded()
	vm := New(api, nil)
	require.NoError(t, vm.LoadAll(t.Context(), cred))

	created, err := vm.Create(t.Context(), cred, model.NewHoldingInput{
		FundName:         "Nissay TOPIX",
		InvestmentAmount: decimal.NewFromInt(50000),
		AcquisitionPrice: decimal.NewFromInt(2000),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.ID)

	assert.Len(t, vm.Snapshot().Holdings, 1, "create does not patch the snapshot")

	require.NoError(t, vm.LoadAll(t.Context(), cred))
	snap := vm.Snapshot()
	assert.Len(t, snap.Holdings, 2)
	assert.True(t, decimal.NewFromInt(150000).Equal(snap.Summary.TotalInvestmentAmount))
}

func TestCreateEmptyFundNameSendsNothing(t *testing.T) {
	api := seeded()
	vm := New(api, nil)

	_, err := vm.Create(t.Context(), cred, model.NewHoldingInput{FundName: "  ", InvestmentAmount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Zero(t, api.count("CreateAsset"))
}

func TestCreateRejectedLeavesState(t *testing.T) {
	api := seeded()
	vm := New(api, nil)
	require.NoError(t, vm.LoadAll(t.Context(), cred))

	api.writeErr = &externalApi.StatusError{StatusCode: 400, Body: "duplicate"}
	_, err := vm.Create(t.Context(), cred, model.NewHoldingInput{FundName: "X"})
	assert.ErrorIs(t, err, service.ErrServer)
	assert.Len(t, vm.Snapshot().Holdings, 1)
}

func TestEditAndUpdateSendsFullRecord(t *testing.T) {
	api := seeded()
	vm := New(api, nil)
	require.NoError(t, vm.LoadAll(t.Context(), cred))

	_, err := vm.BeginEdit(99)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = vm.BeginEdit(1)
	require.NoError(t, err)

	_, err = vm.SetEditField(model.EditCurrentPrice, "not a price")
	assert.ErrorIs(t, err, service.ErrValidation)

	form, err := vm.SetEditField(model.EditCurrentPrice, "12000")
	require.NoError(t, err)

	id, _, ok := vm.Editing()
	require.True(t, ok)
	assert.Equal(t, int64(1), id)

	require.NoError(t, vm.Update(t.Context(), cred, id, form))

	_, _, ok = vm.Editing()
	assert.False(t, ok, "successful update leaves edit mode")

	assert.Equal(t, "eMAXIS Slim S&P500", api.updated.FundName)
	assert.Equal(t, "03311187", api.updated.Code)
	assert.Equal(t, "2024-01-15", api.updated.InvestmentDate)
	assert.True(t, decimal.NewFromInt(100000).Equal(api.updated.InvestmentAmount))
	assert.True(t, decimal.NewFromInt(10000).Equal(api.updated.AcquisitionPrice))
	assert.True(t, decimal.NewFromInt(12000).Equal(api.updated.CurrentPrice.Decimal))

	require.NoError(t, vm.LoadAll(t.Context(), cred))
	v := vm.Snapshot().Holdings[0].Valuation()
	assert.True(t, decimal.NewFromInt(120000).Equal(v.CurrentValue))
}

func TestUpdateFailureKeepsEditMode(t *testing.T) {
	api := seeded()
	vm := New(api, nil)
	require.NoError(t, vm.LoadAll(t.Context(), cred))

	form, err := vm.BeginEdit(1)
	require.NoError(t, err)

	api.writeErr = externalApi.ErrUnauthorized
	err = vm.Update(t.Context(), cred, 1, form)
	assert.ErrorIs(t, err, service.ErrAuth)

	_, _, ok := vm.Editing()
	assert.True(t, ok)
}

func TestRemoveRequiresConfirmation(t *testing.T) {
	api := seeded()
	vm := New(api, nil)
	require.NoError(t, vm.LoadAll(t.Context(), cred))

	err := vm.Remove(t.Context(), cred, 1, false)
	assert.ErrorIs(t, err, service.ErrNotConfirmed)
	assert.Zero(t, api.count("DeleteAsset"))

	require.NoError(t, vm.Remove(t.Context(), cred, 1, true))
	require.NoError(t, vm.LoadAll(t.Context(), cred))
	assert.Empty(t, vm.Snapshot().Holdings)
}

func TestRefreshPricesReplacesHoldings(t *testing.T) {
	api := seeded()
	vm := New(api, nil)
	require.NoError(t, vm.LoadAll(t.Context(), cred))

	holdings, err := vm.RefreshPrices(t.Context(), cred)
	require.NoError(t, err)
	require.Len(t, holdings, 1)

	snap := vm.Snapshot()
	assert.True(t, snap.Holdings[0].CurrentPrice.Valid)
	assert.False(t, vm.Refreshing())
}

func TestRefreshPricesBusyFlag(t *testing.T) {
	api := seeded()
	api.refreshGate = make(chan struct{})
	vm := New(api, nil)

	done := make(chan error, 1)
	go func() {
		_, err := vm.RefreshPrices(context.Background(), cred)
		done <- err
	}()

	require.Eventually(t, vm.Refreshing, time.Second, 5*time.Millisecond)

	_, err := vm.RefreshPrices(t.Context(), cred)
	assert.ErrorIs(t, err, service.ErrBusy)

	close(api.refreshGate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, api.count("RefreshPrices"))

	_, err = vm.RefreshPrices(t.Context(), cred)
	assert.NoError(t, err, "flag is released after completion")
}

func TestSearchFunds(t *testing.T) {
	api := seeded()
	api.options = []model.FundOption{{Code: "0331418A", FundName: "eMAXIS Slim All Country"}}
	cache := &memCache{data: map[string][]model.FundOption{}}
	vm := New(api, cache)

	options, err := vm.SearchFunds(t.Context(), cred, "   ")
	require.NoError(t, err)
	assert.Nil(t, options)
	assert.Zero(t, api.count("SearchFunds"))

	options, err = vm.SearchFunds(t.Context(), cred, " slim ")
	require.NoError(t, err)
	assert.Equal(t, api.options, options)
	assert.Equal(t, 1, api.count("SearchFunds"))

	require.Eventually(t, func() bool { return cache.sets.Load() == 1 }, time.Second, 5*time.Millisecond)

	options, err = vm.SearchFunds(t.Context(), cred, "slim")
	require.NoError(t, err)
	assert.Equal(t, api.options, options)
	assert.Equal(t, 1, api.count("SearchFunds"), "second search is served from cache")

	_, err = vm.SearchFunds(t.Context(), cred, "Slim")
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("SearchFunds"), "keywords keep their case")
}

func TestSearchFundsRevokedSkipsCache(t *testing.T) {
	api := seeded()
	cache := &memCache{data: map[string][]model.FundOption{
		"slim": {{Code: "0331418A", FundName: "eMAXIS Slim All Country"}},
	}}
	vm := New(api, cache)

	revoked := model.NewCredential("alice", "secret")
	revoked.Revoke()

	options, err := vm.SearchFunds(t.Context(), revoked, "slim")
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)
	assert.Nil(t, options)

	_, err = vm.SearchFunds(t.Context(), nil, "slim")
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)
	assert.Zero(t, api.count("SearchFunds"))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(seeded(), nil)

	vm := r.Open(1)
	assert.Same(t, vm, r.Get(1))

	r.Close(1)
	assert.NotSame(t, vm, r.Get(1))
}
