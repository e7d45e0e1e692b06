package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/KotFed0t/fund_tracker_bot/internal/externalApi"
)

var (
	ErrValidation       = errors.New("error validation")
	ErrAuth             = errors.New("error credential rejected")
	ErrNetwork          = errors.New("error backend unreachable")
	ErrServer           = errors.New("error backend failure")
	ErrNotAuthenticated = errors.New("error not authenticated")
	ErrNotConfirmed     = errors.New("error not confirmed")
	ErrBusy             = errors.New("error operation in progress")
	ErrNotFound         = errors.New("error not found")
	ErrReportTooLarge   = errors.New("error report too large")
)

// Translate maps an externalApi error onto the service taxonomy, keeping the cause.
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, externalApi.ErrUnauthorized):
		return fmt.Errorf("%w: %w", ErrAuth, err)
	case errors.Is(err, externalApi.ErrCredentialRevoked):
		return fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	case errors.Is(err, externalApi.ErrTransport),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	default:
		return fmt.Errorf("%w: %w", ErrServer, err)
	}
}

func Validation(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
