package models

import "github.com/eaglebank/ledger/shared/money"

// AccountView is returned when an account is opened.
type AccountView struct {
	AccountID string `json:"accountId"`
}

// BalanceView is the result of every balance-changing or balance-reading
// operation. Balance is a decimal string with exactly two fraction digits.
type BalanceView struct {
	AccountID string       `json:"accountId"`
	Balance   string       `json:"balance"`
	Amount    money.Amount `json:"-"`
}

func NewBalanceView(accountID string, balance money.Amount) *BalanceView {
	return &BalanceView{AccountID: accountID, Balance: balance.String(), Amount: balance}
}
