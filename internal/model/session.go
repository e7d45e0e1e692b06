package model

type action int

const (
	DefaultAction action = iota
	ExpectingUsername
	ExpectingPassword
	ExpectingFundName
	ExpectingCode
	ExpectingInvestmentAmount
	ExpectingAcquisitionPrice
	ExpectingInvestmentDate
	ExpectingSearchKeyword
	ExpectingEditValue
)

// Session is the dialog state of one chat. It never carries the password or the credential.
type Session struct {
	Action      action
	Username    string
	Draft       NewHoldingInput
	FundOptions []FundOption
	EditField   EditField
	Page        int
}

func (s *Session) Reset() {
	*s = Session{Page: s.Page}
}
