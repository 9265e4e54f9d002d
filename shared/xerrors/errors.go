// Package xerrors holds the ledger's error taxonomy. Every error here is a
// local validation failure: the caller must change the request, retrying it
// unchanged will fail the same way.
package xerrors

import "errors"

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidInterestRate = errors.New("invalid interest rate")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

// IsValidation reports whether err belongs to the ledger taxonomy above.
func IsValidation(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidInterestRate) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrBalanceOverflow)
}
