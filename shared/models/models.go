package models

import "github.com/shopspring/decimal"

// Request bodies for the HTTP API. Values are JSON numbers or numeric
// strings; money is rounded to the cent when it reaches the ledger.

type AmountRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
}

type InterestRequest struct {
	Rate *decimal.Decimal `json:"rate" validate:"required"`
}

type OpenAccountResponse struct {
	AccountID string `json:"accountId"`
}
