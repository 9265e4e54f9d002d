package rpc

// Messages of bank.BankAccountService. Field names follow bank.proto so
// that JSON-speaking clients see the same shape.

type Empty struct{}

type AccountIdentifier struct {
	AccountID string `json:"account_id"`
}

type DepositAccountRequest struct {
	AccountID string  `json:"account_id"`
	Amount    float64 `json:"amount"`
}

type WithdrawAccountRequest struct {
	AccountID string  `json:"account_id"`
	Amount    float64 `json:"amount"`
}

// InterestRate is a percentage in [0, 100].
type AddInterestRequest struct {
	AccountID    string  `json:"account_id"`
	InterestRate float64 `json:"interestRate"`
}

type BalanceAccountRequest struct {
	AccountID string `json:"account_id"`
}

// Balance is rounded to the cent.
type AccountBalance struct {
	Balance float64 `json:"balance"`
}
