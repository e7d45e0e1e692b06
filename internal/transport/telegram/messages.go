package telegram

import (
	"errors"
	"strings"

	"github.com/KotFed0t/fund_tracker_bot/internal/service"
)

const (
	internalErrMsg = "something went wrong..."

	startMsg = `Fund tracker.

/login - sign in to the holdings service
/holdings - show holdings and summary
/add - register a holding
/search - search the fund master list
/refresh - refresh market prices
/export - export holdings to a spreadsheet
/cancel - cancel the current step
/logout - sign out`

	enterUsernameMsg     = "Enter your username:"
	enterPasswordMsg     = "Enter your password (the message will be deleted):"
	loggedInMsg          = "✅ Logged in as %s"
	loggedOutMsg         = "You are logged out."
	enterFundNameMsg     = "Enter the fund name:"
	enterCodeMsg         = "Enter the fund code or skip:"
	enterAmountMsg       = "Enter the investment amount:"
	enterAcqPriceMsg     = "Enter the acquisition price (per unit):"
	enterDateMsg         = "Enter the investment date as YYYY-MM-DD or skip:"
	enterKeywordMsg      = "Enter a keyword to search the fund master list:"
	holdingCreatedMsg    = "✅ Added %s"
	holdingUpdatedMsg    = "✅ Saved"
	holdingDeletedMsg    = "🗑 Deleted"
	deleteCancelledMsg   = "Deletion cancelled."
	editCancelledMsg     = "Edit cancelled."
	cancelledMsg         = "Cancelled."
	nothingToSkipMsg     = "Nothing to skip."
	nothingToSaveMsg     = "Nothing is being edited."
	fundOptionExpiredMsg = "That search result has expired, please search again."
	refreshStartedMsg    = "Refreshing prices..."
	unknownStepMsg       = "Send one of the commands first, /start shows them."
	reportLinkMsg        = "📄 Report: %s"
)

// userMessage maps a service error to the text shown in the chat.
func userMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, service.ErrValidation):
		return "⚠️ " + validationDetail(err)
	case errors.Is(err, service.ErrAuth):
		return "🔒 Your credentials were rejected, the session has ended. Please /login again."
	case errors.Is(err, service.ErrNetwork):
		return "📡 The server is unreachable. Please try again later."
	case errors.Is(err, service.ErrNotAuthenticated):
		return "Please /login first."
	case errors.Is(err, service.ErrBusy):
		return "⏳ Prices are already being refreshed."
	case errors.Is(err, service.ErrNotFound):
		return "That holding is no longer listed."
	case errors.Is(err, service.ErrNotConfirmed):
		return deleteCancelledMsg
	case errors.Is(err, service.ErrReportTooLarge):
		return "The report is too large to send."
	case errors.Is(err, service.ErrServer):
		return "❗ The server could not complete the request."
	default:
		return internalErrMsg
	}
}

// loginErrorMessage keeps rejected credentials apart from connectivity problems.
func loginErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrAuth):
		return "❌ Wrong username or password. Send /login to try again."
	case errors.Is(err, service.ErrNetwork):
		return "📡 Could not reach the server to check your credentials. Try /login again later."
	case errors.Is(err, service.ErrBusy):
		return "⏳ Login is already in progress."
	case errors.Is(err, service.ErrNotAuthenticated):
		return "Login was cancelled."
	default:
		return userMessage(err)
	}
}

func validationDetail(err error) string {
	return strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
}
