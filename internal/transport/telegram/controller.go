package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/KotFed0t/fund_tracker_bot/config"
	"github.com/KotFed0t/fund_tracker_bot/data/session"
	"github.com/KotFed0t/fund_tracker_bot/internal/converter/telebotConverter"
	"github.com/KotFed0t/fund_tracker_bot/internal/model"
	"github.com/KotFed0t/fund_tracker_bot/internal/service"
	"github.com/KotFed0t/fund_tracker_bot/internal/service/holdingsViewModel"
	"github.com/KotFed0t/fund_tracker_bot/utils"
	tele "gopkg.in/telebot.v4"
)

type SessionGate interface {
	Credential(chatID int64) (*model.Credential, error)
	AttemptLogin(ctx context.Context, chatID int64, username, password string) (*model.Credential, error)
	Logout(chatID int64)
	EndSession(chatID int64, cred *model.Credential) bool
}

type ViewModels interface {
	Open(chatID int64) *holdingsViewModel.ViewModel
	Get(chatID int64) *holdingsViewModel.ViewModel
}

type Exporter interface {
	Export(ctx context.Context, username string, portfolio model.Portfolio) (model.Report, error)
}

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
	DeleteSession(ctx context.Context, key string) error
}

type Controller struct {
	cfg      *config.Config
	gate     SessionGate
	views    ViewModels
	exporter Exporter
	session  Session
}

func NewController(cfg *config.Config, gate SessionGate, views ViewModels, exporter Exporter, session Session) *Controller {
	return &Controller{
		cfg:      cfg,
		gate:     gate,
		views:    views,
		exporter: exporter,
		session:  session,
	}
}

func chatKey(c tele.Context) string {
	return strconv.FormatInt(c.Chat().ID, 10)
}

func (ctrl *Controller) Start(c tele.Context) error {
	return c.Send(startMsg)
}

func (ctrl *Controller) UnknownStep(c tele.Context) error {
	return c.Send(unknownStepMsg)
}

func (ctrl *Controller) getSessionFromTeleCtxOrStorage(ctx context.Context, c tele.Context) (model.Session, error) {
	chatSession, ok := c.Get("session").(model.Session)
	if ok {
		return chatSession, nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	chatSession, err := ctrl.session.GetSession(ctx, chatKey(c))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return model.Session{}, nil
		}
		slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.Session{}, err
	}
	return chatSession, nil
}

func (ctrl *Controller) saveSession(ctx context.Context, c tele.Context, chatSession model.Session) error {
	c.Set("session", chatSession)
	err := ctrl.session.SetSession(ctx, chatKey(c), chatSession)
	if err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
	}
	return err
}

// authorized returns the chat's credential and view-model, or tells the user to log in.
func (ctrl *Controller) authorized(c tele.Context) (*model.Credential, *holdingsViewModel.ViewModel, bool) {
	cred, err := ctrl.gate.Credential(c.Chat().ID)
	if err != nil {
		_ = c.Send(userMessage(err))
		return nil, nil, false
	}
	return cred, ctrl.views.Get(c.Chat().ID), true
}

// fail reports err to the user. A rejected credential ends the chat session.
func (ctrl *Controller) fail(ctx context.Context, c tele.Context, cred *model.Credential, err error) error {
	if errors.Is(err, service.ErrAuth) {
		if ctrl.gate.EndSession(c.Chat().ID, cred) {
			_ = ctrl.session.DeleteSession(ctx, chatKey(c))
		}
	}
	return c.Send(userMessage(err))
}

func (ctrl *Controller) render(ctx context.Context, c tele.Context, vm *holdingsViewModel.ViewModel, edit bool) error {
	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	page := vm.Snapshot().Page(chatSession.Page, ctrl.cfg.HoldingsPerPage)
	text, markup := telebotConverter.PortfolioPageResponse(page)
	if edit && c.Callback() != nil {
		return c.Edit(text, markup)
	}
	return c.Send(text, markup)
}

// reload fetches fresh server state and renders it. A failed load is reported,
// the part that failed is drawn as out of date.
func (ctrl *Controller) reload(ctx context.Context, c tele.Context, cred *model.Credential, vm *holdingsViewModel.ViewModel) error {
	if err := vm.LoadAll(ctx, cred); err != nil {
		_ = ctrl.fail(ctx, c, cred, err)
		if errors.Is(err, service.ErrAuth) || !vm.Snapshot().Loaded {
			return nil
		}
	}
	return ctrl.render(ctx, c, vm, false)
}

func (ctrl *Controller) InitLogin(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if err := ctrl.saveSession(ctx, c, model.Session{Action: model.ExpectingUsername}); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(enterUsernameMsg)
}

func (ctrl *Controller) ProcessUsername(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	username := strings.TrimSpace(c.Text())
	if username == "" {
		return c.Send(enterUsernameMsg)
	}

	if err := ctrl.saveSession(ctx, c, model.Session{Action: model.ExpectingPassword, Username: username}); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(enterPasswordMsg)
}

func (ctrl *Controller) ProcessPassword(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	password := c.Text()
	if err := c.Delete(); err != nil {
		slog.Warn("can't delete password message", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}

	username := chatSession.Username
	chatSession.Reset()
	_ = ctrl.saveSession(ctx, c, chatSession)

	cred, err := ctrl.gate.AttemptLogin(ctx, c.Chat().ID, username, password)
	if err != nil {
		return c.Send(loginErrorMessage(err))
	}

	_ = c.Send(fmt.Sprintf(loggedInMsg, cred.Username), telebotConverter.LogoutMarkup())

	vm := ctrl.views.Open(c.Chat().ID)
	return ctrl.reload(ctx, c, cred, vm)
}

func (ctrl *Controller) Logout(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	ctrl.gate.Logout(c.Chat().ID)
	_ = ctrl.session.DeleteSession(ctx, chatKey(c))

	return c.Send(loggedOutMsg)
}

func (ctrl *Controller) ShowHoldings(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	cred, vm, ok := ctrl.authorized(c)
	if !ok {
		return nil
	}
	return ctrl.reload(ctx, c, cred, vm)
}

func (ctrl *Controller) ChangePage(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	_, vm, ok := ctrl.authorized(c)
	if !ok {
		return nil
	}

	page, err := strconv.Atoi(c.Data())
	if err != nil {
		slog.Error("bad page payload", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("data", c.Data()))
		return c.Send(internalErrMsg)
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	chatSession.Page = page
	_ = ctrl.saveSession(ctx, c, chatSession)

	return ctrl.render(ctx, c, vm, true)
}

func (ctrl *Controller) Cancel(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	chatSession.Reset()
	_ = ctrl.saveSession(ctx, c, chatSession)

	if _, err := ctrl.gate.Credential(c.Chat().ID); err == nil {
		ctrl.views.Get(c.Chat().ID).CancelEdit()
	}

	return c.Send(cancelledMsg)
}

func (ctrl *Controller) InitAddHolding(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if _, _, ok := ctrl.authorized(c); !ok {
		return nil
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	chatSession.Reset()
	chatSession.Action = model.ExpectingFundName
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(enterFundNameMsg)
}

func (ctrl *Controller) ProcessFundName(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	name := strings.TrimSpace(c.Text())
	if name == "" {
		return c.Send(userMessage(service.Validation(errors.New("fund name is required"))))
	}

	chatSession.Draft.FundName = name
	chatSession.Action = model.ExpectingCode
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(enterCodeMsg, telebotConverter.SkipMarkup())
}

func (ctrl *Controller) ProcessCode(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	chatSession.Draft.Code = strings.TrimSpace(c.Text())
	chatSession.Action = model.ExpectingInvestmentAmount
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(enterAmountMsg)
}

func (ctrl *Controller) ProcessInvestmentAmount(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	amount, err := model.ParseAmount(c.Text())
	if err != nil {
		return c.Send(userMessage(service.Validation(err)))
	}

	chatSession.Draft.InvestmentAmount = amount
	chatSession.Action = model.ExpectingAcquisitionPrice
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(enterAcqPriceMsg)
}

func (ctrl *Controller) ProcessAcquisitionPrice(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	price, err := model.ParseAmount(c.Text())
	if err != nil {
		return c.Send(userMessage(service.Validation(err)))
	}

	chatSession.Draft.AcquisitionPrice = price
	chatSession.Action = model.ExpectingInvestmentDate
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(enterDateMsg, telebotConverter.SkipMarkup())
}

func (ctrl *Controller) ProcessInvestmentDate(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	date := strings.TrimSpace(c.Text())
	if err := model.ValidateInvestmentDate(date); err != nil {
		return c.Send(userMessage(service.Validation(err)))
	}

	chatSession.Draft.InvestmentDate = date
	return ctrl.submitDraft(ctx, c, chatSession)
}

func (ctrl *Controller) SkipStep(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	switch chatSession.Action {
	case model.ExpectingCode:
		chatSession.Action = model.ExpectingInvestmentAmount
		if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
			return c.Send(internalErrMsg)
		}
		return c.Send(enterAmountMsg)
	case model.ExpectingInvestmentDate:
		return ctrl.submitDraft(ctx, c, chatSession)
	default:
		return c.Send(nothingToSkipMsg)
	}
}

func (ctrl *Controller) submitDraft(ctx context.Context, c tele.Context, chatSession model.Session) error {
	cred, vm, ok := ctrl.authorized(c)
	if !ok {
		return nil
	}

	created, err := vm.Create(ctx, cred, chatSession.Draft)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			// the dialog restarts from the fund name
			chatSession.Action = model.ExpectingFundName
			_ = ctrl.saveSession(ctx, c, chatSession)
			_ = c.Send(userMessage(err))
			return c.Send(enterFundNameMsg)
		}
		return ctrl.fail(ctx, c, cred, err)
	}

	chatSession.Reset()
	_ = ctrl.saveSession(ctx, c, chatSession)

	_ = c.Send(fmt.Sprintf(holdingCreatedMsg, created.FundName))
	return ctrl.reload(ctx, c, cred, vm)
}

func (ctrl *Controller) InitSearch(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if _, _, ok := ctrl.authorized(c); !ok {
		return nil
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	chatSession.Reset()
	chatSession.Action = model.ExpectingSearchKeyword
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(enterKeywordMsg)
}

func (ctrl *Controller) ProcessSearchKeyword(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	cred, vm, ok := ctrl.authorized(c)
	if !ok {
		return nil
	}

	keyword := strings.TrimSpace(c.Text())
	if keyword == "" {
		return c.Send(enterKeywordMsg)
	}

	options, err := vm.SearchFunds(ctx, cred, keyword)
	if err != nil {
		return ctrl.fail(ctx, c, cred, err)
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	chatSession.Action = model.DefaultAction
	chatSession.FundOptions = options
	_ = ctrl.saveSession(ctx, c, chatSession)

	return c.Send(telebotConverter.FundOptionsResponse(keyword, options))
}

// SelectFund starts the creation dialog with the chosen fund filled in.
func (ctrl *Controller) SelectFund(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if _, _, ok := ctrl.authorized(c); !ok {
		return nil
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	idx, err := strconv.Atoi(c.Data())
	if err != nil || idx < 0 || idx >= len(chatSession.FundOptions) {
		return c.Send(fundOptionExpiredMsg)
	}
	option := chatSession.FundOptions[idx]

	chatSession.Reset()
	chatSession.Draft = model.NewHoldingInput{FundName: option.FundName, Code: option.Code}
	chatSession.Action = model.ExpectingInvestmentAmount
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.DraftText(chatSession.Draft) + "\n" + enterAmountMsg)
}

func (ctrl *Controller) RefreshPrices(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	cred, vm, ok := ctrl.authorized(c)
	if !ok {
		return nil
	}

	_ = c.Send(refreshStartedMsg)

	if _, err := vm.RefreshPrices(ctx, cred); err != nil {
		return ctrl.fail(ctx, c, cred, err)
	}

	return ctrl.reload(ctx, c, cred, vm)
}

func (ctrl *Controller) EditHolding(c tele.Context) error {
	cred, vm, ok := ctrl.authorized(c)
	if !ok {
		return nil
	}

	id, err := strconv.ParseInt(c.Data(), 10, 64)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	form, err := vm.BeginEdit(id)
	if err != nil {
		return ctrl.fail(utils.CreateCtxWithRqID(c), c, cred, err)
	}

	return c.Send(telebotConverter.EditFormResponse(form))
}

func (ctrl *Controller) EditField(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	_, vm, ok := ctrl.authorized(c)
	if !ok {
		return nil
	}
	if _, _, editing := vm.Editing(); !editing {
		return c.Send(nothingToSaveMsg)
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	field := model.EditField(c.Data())
	chatSession.Action = model.ExpectingEditValue
	chatSession.EditField = field
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(telebotConverter.EditFieldPrompt(field))
}

func (ctrl *Controller) ProcessEditValue(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	_, vm, ok := ctrl.authorized(c)
	if !ok {
		return nil
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	form, err := vm.SetEditField(chatSession.EditField, c.Text())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			// edit mode is gone, stop waiting for a value
			chatSession.Action = model.DefaultAction
			chatSession.EditField = ""
			_ = ctrl.saveSession(ctx, c, chatSession)
			return c.Send(nothingToSaveMsg)
		}
		return c.Send(userMessage(err))
	}

	chatSession.Action = model.DefaultAction
	chatSession.EditField = ""
	_ = ctrl.saveSession(ctx, c, chatSession)

	return c.Send(telebotConverter.EditFormResponse(form))
}

func (ctrl *Controller) SaveEdit(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	cred, vm, ok := ctrl.authorized(c)
	if !ok {
		return nil
	}

	id, form, editing := vm.Editing()
	if !editing {
		return c.Send(nothingToSaveMsg)
	}

	if err := vm.Update(ctx, cred, id, form); err != nil {
		return ctrl.fail(ctx, c, cred, err)
	}

	_ = c.Send(holdingUpdatedMsg)
	return ctrl.reload(ctx, c, cred, vm)
}

func (ctrl *Controller) CancelEdit(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	_, vm, ok := ctrl.authorized(c)
	if !ok {
		return nil
	}
	vm.CancelEdit()

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err == nil {
		chatSession.Reset()
		_ = ctrl.saveSession(ctx, c, chatSession)
	}

	_ = c.Send(editCancelledMsg)
	return ctrl.render(ctx, c, vm, false)
}

func (ctrl *Controller) DeleteHolding(c tele.Context) error {
	cred, vm, ok := ctrl.authorized(c)
	if !ok {
		return nil
	}

	id, err := strconv.ParseInt(c.Data(), 10, 64)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	h, found := vm.Snapshot().Find(id)
	if !found {
		return ctrl.fail(utils.CreateCtxWithRqID(c), c, cred, service.ErrNotFound)
	}

	return c.Send(telebotConverter.DeleteConfirmResponse(h))
}

func (ctrl *Controller) ConfirmDelete(c tele.Context) error {
	return ctrl.remove(c, true)
}

func (ctrl *Controller) CancelDelete(c tele.Context) error {
	return ctrl.remove(c, false)
}

func (ctrl *Controller) remove(c tele.Context, confirmed bool) error {
	ctx := utils.CreateCtxWithRqID(c)

	cred, vm, ok := ctrl.authorized(c)
	if !ok {
		return nil
	}

	var id int64
	if confirmed {
		var err error
		id, err = strconv.ParseInt(c.Data(), 10, 64)
		if err != nil {
			return c.Send(internalErrMsg)
		}
	}

	if err := vm.Remove(ctx, cred, id, confirmed); err != nil {
		if errors.Is(err, service.ErrNotConfirmed) {
			return c.Edit(deleteCancelledMsg)
		}
		return ctrl.fail(ctx, c, cred, err)
	}

	_ = c.Send(holdingDeletedMsg)
	return ctrl.reload(ctx, c, cred, vm)
}

func (ctrl *Controller) Export(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	cred, vm, ok := ctrl.authorized(c)
	if !ok {
		return nil
	}

	if snap := vm.Snapshot(); !snap.Loaded || snap.Stale() {
		if err := vm.LoadAll(ctx, cred); err != nil {
			return ctrl.fail(ctx, c, cred, err)
		}
	}

	report, err := ctrl.exporter.Export(ctx, cred.Username, vm.Snapshot())
	if err != nil {
		if errors.Is(err, service.ErrReportTooLarge) {
			return c.Send(userMessage(err))
		}
		return c.Send(internalErrMsg)
	}

	if report.Link != "" {
		return c.Send(fmt.Sprintf(reportLinkMsg, report.Link))
	}

	return c.Send(&tele.Document{
		File:     tele.FromReader(bytes.NewReader(report.Content)),
		FileName: report.FileName,
	})
}
