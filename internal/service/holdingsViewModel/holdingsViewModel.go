package holdingsViewModel

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/KotFed0t/fund_tracker_bot/internal/model"
	"github.com/KotFed0t/fund_tracker_bot/internal/service"
	"github.com/KotFed0t/fund_tracker_bot/utils"
)

type AssetsApi interface {
	GetAssets(ctx context.Context, cred *model.Credential) ([]model.Holding, error)
	GetSummary(ctx context.Context, cred *model.Credential) (model.Summary, error)
	CreateAsset(ctx context.Context, cred *model.Credential, in model.NewHoldingInput) (model.Holding, error)
	UpdateAsset(ctx context.Context, cred *model.Credential, id int64, in model.HoldingInput) error
	DeleteAsset(ctx context.Context, cred *model.Credential, id int64) error
	RefreshPrices(ctx context.Context, cred *model.Credential) ([]model.Holding, error)
	SearchFunds(ctx context.Context, cred *model.Credential, keyword string) ([]model.FundOption, error)
}

type Cache interface {
	GetFundSearch(ctx context.Context, keyword string) ([]model.FundOption, error)
	SetFundSearch(ctx context.Context, keyword string, options []model.FundOption) error
}

type editState struct {
	id   int64
	form model.HoldingInput
}

// ViewModel keeps the last server snapshot of one chat's holdings and summary.
// Mutations never patch the snapshot; callers reload with LoadAll after a successful write.
type ViewModel struct {
	api   AssetsApi
	cache Cache

	mu       sync.RWMutex
	holdings []model.Holding
	summary  *model.Summary
	loaded   bool
	editing  *editState

	// set when the latest fetch of the collection failed, cleared by the next success
	holdingsStale bool
	summaryStale  bool

	refreshing atomic.Bool
}

func New(api AssetsApi, cache Cache) *ViewModel {
	return &ViewModel{api: api, cache: cache}
}

// LoadAll fetches holdings and summary concurrently. Each collection is replaced only
// by its own successful response. A failed request leaves that collection as it was
// and marks it stale, so it is not shown as current next to a fresh one.
func (vm *ViewModel) LoadAll(ctx context.Context, cred *model.Credential) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ViewModel.LoadAll"

	slog.Debug("LoadAll start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("LoadAll finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	var (
		wg                  sync.WaitGroup
		holdingsErr, sumErr error
		holdings            []model.Holding
		summary             model.Summary
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		holdings, holdingsErr = vm.api.GetAssets(ctx, cred)
		vm.mu.Lock()
		defer vm.mu.Unlock()
		if holdingsErr != nil {
			vm.holdingsStale = true
			return
		}
		vm.holdings = holdings
		vm.holdingsStale = false
		vm.loaded = true
	}()
	go func() {
		defer wg.Done()
		summary, sumErr = vm.api.GetSummary(ctx, cred)
		vm.mu.Lock()
		defer vm.mu.Unlock()
		if sumErr != nil {
			vm.summaryStale = true
			return
		}
		vm.summary = &summary
		vm.summaryStale = false
	}()
	wg.Wait()

	err := errors.Join(holdingsErr, sumErr)
	if err != nil {
		slog.Error("LoadAll failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return service.Translate(err)
	}

	return nil
}

func (vm *ViewModel) Create(ctx context.Context, cred *model.Credential, in model.NewHoldingInput) (model.Holding, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ViewModel.Create"

	if err := in.Validate(); err != nil {
		slog.Info("creation rejected locally", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, service.Validation(err)
	}

	slog.Debug("Create start", slog.String("rqID", rqID), slog.String("op", op), slog.String("fundName", in.FundName))

	created, err := vm.api.CreateAsset(ctx, cred, in)
	if err != nil {
		slog.Error("got error from api.CreateAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, service.Translate(err)
	}

	return created, nil
}

// BeginEdit puts the row into edit mode with the complete current record as the form.
func (vm *ViewModel) BeginEdit(id int64) (model.HoldingInput, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	idx := slices.IndexFunc(vm.holdings, func(h model.Holding) bool { return h.ID == id })
	if idx < 0 {
		return model.HoldingInput{}, service.ErrNotFound
	}

	form := model.InputFromHolding(vm.holdings[idx])
	vm.editing = &editState{id: id, form: form}
	return form, nil
}

func (vm *ViewModel) SetEditField(field model.EditField, raw string) (model.HoldingInput, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.editing == nil {
		return model.HoldingInput{}, service.ErrNotFound
	}

	form := vm.editing.form
	if err := form.Set(field, raw); err != nil {
		return vm.editing.form, service.Validation(err)
	}
	vm.editing.form = form
	return form, nil
}

func (vm *ViewModel) Editing() (id int64, form model.HoldingInput, ok bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	if vm.editing == nil {
		return 0, model.HoldingInput{}, false
	}
	return vm.editing.id, vm.editing.form, true
}

func (vm *ViewModel) CancelEdit() {
	vm.mu.Lock()
	vm.editing = nil
	vm.mu.Unlock()
}

// Update replaces the whole record of holding id with in. On success the row leaves edit mode.
func (vm *ViewModel) Update(ctx context.Context, cred *model.Credential, id int64, in model.HoldingInput) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ViewModel.Update"

	if err := in.Validate(); err != nil {
		return service.Validation(err)
	}

	slog.Debug("Update start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("id", id))

	err := vm.api.UpdateAsset(ctx, cred, id, in)
	if err != nil {
		slog.Error("got error from api.UpdateAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return service.Translate(err)
	}

	vm.mu.Lock()
	if vm.editing != nil && vm.editing.id == id {
		vm.editing = nil
	}
	vm.mu.Unlock()

	return nil
}

// Remove deletes holding id. Nothing is sent unless the user confirmed.
func (vm *ViewModel) Remove(ctx context.Context, cred *model.Credential, id int64, confirmed bool) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ViewModel.Remove"

	if !confirmed {
		return service.ErrNotConfirmed
	}

	slog.Debug("Remove start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("id", id))

	err := vm.api.DeleteAsset(ctx, cred, id)
	if err != nil {
		slog.Error("got error from api.DeleteAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return service.Translate(err)
	}

	vm.mu.Lock()
	if vm.editing != nil && vm.editing.id == id {
		vm.editing = nil
	}
	vm.mu.Unlock()

	return nil
}

// RefreshPrices asks the backend to re-fetch market prices and takes its answer as the
// new holdings collection. Only one refresh per view-model runs at a time.
func (vm *ViewModel) RefreshPrices(ctx context.Context, cred *model.Credential) ([]model.Holding, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ViewModel.RefreshPrices"

	if !vm.refreshing.CompareAndSwap(false, true) {
		slog.Info("refresh already running", slog.String("rqID", rqID), slog.String("op", op))
		return nil, service.ErrBusy
	}
	defer vm.refreshing.Store(false)

	holdings, err := vm.api.RefreshPrices(ctx, cred)
	if err != nil {
		slog.Error("got error from api.RefreshPrices", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, service.Translate(err)
	}

	vm.mu.Lock()
	vm.holdings = holdings
	vm.holdingsStale = false
	vm.loaded = true
	vm.mu.Unlock()

	return slices.Clone(holdings), nil
}

func (vm *ViewModel) Refreshing() bool {
	return vm.refreshing.Load()
}

// SearchFunds looks the keyword up in the fund master list. A blank keyword sends nothing.
func (vm *ViewModel) SearchFunds(ctx context.Context, cred *model.Credential, keyword string) ([]model.FundOption, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ViewModel.SearchFunds"

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, nil
	}

	// the cache is shared by all chats, a revoked credential must not be served from it
	if cred == nil || cred.Revoked() {
		return nil, service.ErrNotAuthenticated
	}

	if vm.cache != nil {
		options, err := vm.cache.GetFundSearch(ctx, keyword)
		if err == nil {
			slog.Debug("got fund search from cache", slog.String("rqID", rqID), slog.String("op", op))
			return options, nil
		}
		slog.Debug("fund search cache miss", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	options, err := vm.api.SearchFunds(ctx, cred, keyword)
	if err != nil {
		slog.Error("got error from api.SearchFunds", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, service.Translate(err)
	}

	if vm.cache != nil {
		go func() {
			err := vm.cache.SetFundSearch(context.WithoutCancel(ctx), keyword, options)
			if err != nil {
				slog.Warn("can't cache fund search", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			}
		}()
	}

	return options, nil
}

func (vm *ViewModel) Snapshot() model.Portfolio {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	p := model.Portfolio{
		Holdings:      slices.Clone(vm.holdings),
		Loaded:        vm.loaded,
		HoldingsStale: vm.holdingsStale,
		SummaryStale:  vm.summaryStale,
	}
	if vm.summary != nil {
		s := *vm.summary
		p.Summary = &s
	}
	return p
}
