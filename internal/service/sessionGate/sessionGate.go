package sessionGate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/KotFed0t/fund_tracker_bot/internal/model"
	"github.com/KotFed0t/fund_tracker_bot/internal/service"
	"github.com/KotFed0t/fund_tracker_bot/utils"
)

type AssetsApi interface {
	Probe(ctx context.Context, cred *model.Credential) error
}

type entry struct {
	state   model.AuthState
	cred    *model.Credential
	pending *model.Credential
}

// Gate owns the credential of every chat: it is created on login and revoked on logout.
type Gate struct {
	api AssetsApi

	mu       sync.Mutex
	sessions map[int64]*entry
	onEnd    []func(chatID int64)
}

func New(api AssetsApi) *Gate {
	return &Gate{
		api:      api,
		sessions: make(map[int64]*entry),
	}
}

// OnSessionEnd registers fn to be called after a chat's credential is discarded.
func (g *Gate) OnSessionEnd(fn func(chatID int64)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onEnd = append(g.onEnd, fn)
}

func (g *Gate) State(chatID int64) model.AuthState {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.sessions[chatID]; ok {
		return e.state
	}
	return model.Unauthenticated
}

func (g *Gate) Credential(chatID int64) (*model.Credential, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.sessions[chatID]
	if !ok || e.state != model.Authenticated || e.cred == nil {
		return nil, service.ErrNotAuthenticated
	}
	return e.cred, nil
}

// AttemptLogin probes the backend with the given pair and keeps the credential on success.
// A chat that is already logged in is logged out first.
func (g *Gate) AttemptLogin(ctx context.Context, chatID int64, username, password string) (*model.Credential, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Gate.AttemptLogin"

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, service.Validation(errors.New("username is required"))
	}

	slog.Debug("AttemptLogin start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("chatID", chatID))

	cred := model.NewCredential(username, password)

	g.mu.Lock()
	e := g.entryLocked(chatID)
	if e.state == model.Authenticating {
		g.mu.Unlock()
		cred.Revoke()
		return nil, service.ErrBusy
	}
	previous := e.cred
	e.state = model.Authenticating
	e.cred = nil
	e.pending = cred
	g.mu.Unlock()

	if previous != nil {
		previous.Revoke()
		g.notifyEnd(chatID)
	}

	err := g.api.Probe(ctx, cred)

	g.mu.Lock()
	if e.pending != cred {
		// logged out while the probe was in flight
		g.mu.Unlock()
		cred.Revoke()
		slog.Info("login abandoned", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("chatID", chatID))
		return nil, service.ErrNotAuthenticated
	}
	e.pending = nil
	if err != nil {
		e.state = model.Unauthenticated
		g.mu.Unlock()
		cred.Revoke()
		err = service.Translate(err)
		slog.Warn("login failed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("chatID", chatID), slog.String("err", err.Error()))
		return nil, err
	}
	e.state = model.Authenticated
	e.cred = cred
	g.mu.Unlock()

	slog.Info("login succeeded", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("chatID", chatID), slog.Any("cred", cred))

	return cred, nil
}

// Logout revokes the chat's credential. Requests bound to it are aborted.
func (g *Gate) Logout(chatID int64) {
	g.mu.Lock()
	e, ok := g.sessions[chatID]
	if !ok {
		g.mu.Unlock()
		return
	}
	delete(g.sessions, chatID)
	pending, cred := e.pending, e.cred
	e.state, e.pending, e.cred = model.Unauthenticated, nil, nil
	g.mu.Unlock()

	if pending != nil {
		pending.Revoke()
	}
	if cred != nil {
		cred.Revoke()
	}

	slog.Info("logout", slog.Int64("chatID", chatID))

	g.notifyEnd(chatID)
}

// EndSession logs the chat out if cred is still its current credential.
// It is used when the backend rejects a credential after login.
func (g *Gate) EndSession(chatID int64, cred *model.Credential) bool {
	g.mu.Lock()
	e, ok := g.sessions[chatID]
	current := ok && e.cred == cred && cred != nil
	g.mu.Unlock()

	if !current {
		return false
	}

	slog.Warn("credential rejected mid-session, ending session", slog.Int64("chatID", chatID))
	g.Logout(chatID)
	return true
}

func (g *Gate) entryLocked(chatID int64) *entry {
	e, ok := g.sessions[chatID]
	if !ok {
		e = &entry{}
		g.sessions[chatID] = e
	}
	return e
}

func (g *Gate) notifyEnd(chatID int64) {
	g.mu.Lock()
	listeners := append([]func(int64){}, g.onEnd...)
	g.mu.Unlock()

	for _, fn := range listeners {
		fn(chatID)
	}
}
