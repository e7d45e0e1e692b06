package model

import (
	"context"
	"encoding/base64"
	"log/slog"
)

type AuthState int

const (
	Unauthenticated AuthState = iota
	Authenticating
	Authenticated
)

func (s AuthState) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Credential is a basic-auth token held in memory for one chat session.
// Revoke cancels every request bound to it.
type Credential struct {
	Username string
	token    string
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewCredential(username, password string) *Credential {
	ctx, cancel := context.WithCancel(context.Background())
	return &Credential{
		Username: username,
		token:    base64.StdEncoding.EncodeToString([]byte(username + ":" + password)),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Token is the base64(username:password) part of the Authorization header.
func (c *Credential) Token() string {
	return c.token
}

func (c *Credential) Revoke() {
	c.cancel()
}

func (c *Credential) Revoked() bool {
	return c.ctx.Err() != nil
}

// Bind derives a context from ctx that is also cancelled when the credential is revoked.
func (c *Credential) Bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// LogValue keeps the token out of logs.
func (c *Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.Bool("revoked", c.Revoked()),
	)
}
