package tgbot

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/KotFed0t/fund_tracker_bot/config"
	"github.com/KotFed0t/fund_tracker_bot/internal/model"
	"github.com/KotFed0t/fund_tracker_bot/internal/model/tg/tgCallback"
	"github.com/KotFed0t/fund_tracker_bot/internal/transport/telegram"
	customMW "github.com/KotFed0t/fund_tracker_bot/internal/transport/telegram/middleware"
	"github.com/KotFed0t/fund_tracker_bot/utils"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
}

type TGBot struct {
	bot     *tele.Bot
	ctrl    *telegram.Controller
	session Session
}

func New(cfg *config.Config, ctrl *telegram.Controller, session Session) (*TGBot, error) {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
		OnError: func(err error, c tele.Context) {
			slog.Error("telebot error", slog.String("err", err.Error()))
		},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		return nil, err
	}

	return &TGBot{bot: b, ctrl: ctrl, session: session}, nil
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger())

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

// answered acknowledges the callback query so the client stops the button spinner.
func answered(h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() { _ = c.Respond() }()
		return h(c)
	}
}

func (b *TGBot) setupRoutes() {
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		// the dialog step of the chat picks the controller method
		ctx := utils.CreateCtxWithRqID(c)
		rqID := utils.GetRequestIDFromCtx(ctx)
		chatSession, err := b.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
		if err != nil {
			slog.Debug("no chat session", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return b.ctrl.Start(c)
		}

		c.Set("session", chatSession)

		switch chatSession.Action {
		case model.ExpectingUsername:
			return b.ctrl.ProcessUsername(c)
		case model.ExpectingPassword:
			return b.ctrl.ProcessPassword(c)
		case model.ExpectingFundName:
			return b.ctrl.ProcessFundName(c)
		case model.ExpectingCode:
			return b.ctrl.ProcessCode(c)
		case model.ExpectingInvestmentAmount:
			return b.ctrl.ProcessInvestmentAmount(c)
		case model.ExpectingAcquisitionPrice:
			return b.ctrl.ProcessAcquisitionPrice(c)
		case model.ExpectingInvestmentDate:
			return b.ctrl.ProcessInvestmentDate(c)
		case model.ExpectingSearchKeyword:
			return b.ctrl.ProcessSearchKeyword(c)
		case model.ExpectingEditValue:
			return b.ctrl.ProcessEditValue(c)
		default:
			slog.Info("unexpected chatSession action", slog.String("rqID", rqID), slog.Any("action", chatSession.Action))
			return b.ctrl.UnknownStep(c)
		}
	})

	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/login", b.ctrl.InitLogin)
	b.bot.Handle("/logout", b.ctrl.Logout)
	b.bot.Handle("/holdings", b.ctrl.ShowHoldings)
	b.bot.Handle("/add", b.ctrl.InitAddHolding)
	b.bot.Handle("/search", b.ctrl.InitSearch)
	b.bot.Handle("/refresh", b.ctrl.RefreshPrices)
	b.bot.Handle("/export", b.ctrl.Export)
	b.bot.Handle("/cancel", b.ctrl.Cancel)

	callbacks := map[string]tele.HandlerFunc{
		tgCallback.AddHolding:    b.ctrl.InitAddHolding,
		tgCallback.SearchFund:    b.ctrl.InitSearch,
		tgCallback.SelectFund:    b.ctrl.SelectFund,
		tgCallback.RefreshPrices: b.ctrl.RefreshPrices,
		tgCallback.Export:        b.ctrl.Export,
		tgCallback.EditHolding:   b.ctrl.EditHolding,
		tgCallback.EditField:     b.ctrl.EditField,
		tgCallback.SaveEdit:      b.ctrl.SaveEdit,
		tgCallback.CancelEdit:    b.ctrl.CancelEdit,
		tgCallback.DeleteHolding: b.ctrl.DeleteHolding,
		tgCallback.ConfirmDelete: b.ctrl.ConfirmDelete,
		tgCallback.CancelDelete:  b.ctrl.CancelDelete,
		tgCallback.SkipStep:      b.ctrl.SkipStep,
		tgCallback.Page:          b.ctrl.ChangePage,
		tgCallback.Logout:        b.ctrl.Logout,
	}
	for unique, h := range callbacks {
		b.bot.Handle(&tele.Btn{Unique: unique}, answered(h))
	}
}
