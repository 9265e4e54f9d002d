package cqrs

import (
	"github.com/shopspring/decimal"

	"github.com/eaglebank/ledger/shared/money"
)

type OpenAccountCommand struct{}

type DepositCommand struct {
	AccountID string
	Amount    money.Amount
}

type WithdrawCommand struct {
	AccountID string
	Amount    money.Amount
}

// Rate is a percentage in [0, 100].
type AddInterestCommand struct {
	AccountID string
	Rate      decimal.Decimal
}
