package cqrs

// GetBalanceQuery reads the committed balance of one account.
type GetBalanceQuery struct {
	AccountID string
}
