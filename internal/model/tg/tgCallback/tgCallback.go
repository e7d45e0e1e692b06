package tgCallback

// Callback buttons uniques. Button payloads travel in the callback data.
const (
	AddHolding    string = "add_holding"
	SearchFund    string = "search_fund"
	SelectFund    string = "select_fund" // payload: index in the last search result
	RefreshPrices string = "refresh_prices"
	Export        string = "export"

	EditHolding   string = "edit_holding" // payload: holding id
	EditField     string = "edit_field"   // payload: model.EditField
	SaveEdit      string = "save_edit"
	CancelEdit    string = "cancel_edit"
	DeleteHolding string = "delete_holding" // payload: holding id
	ConfirmDelete string = "confirm_delete" // payload: holding id
	CancelDelete  string = "cancel_delete"

	SkipStep string = "skip_step"
	Page     string = "page" // payload: zero-based page
	Logout   string = "logout"
)
