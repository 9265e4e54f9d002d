package events

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Event types
const (
	AccountOpened  = "account.opened"
	BalanceUpdated = "balance.updated"
)

// Operations carried by BalanceUpdatedEvent.
const (
	OperationDeposit  = "deposit"
	OperationWithdraw = "withdraw"
	OperationInterest = "interest"
)

const DefaultStream = "ledger.events"

// Base event structure
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	AccountID string    `json:"accountId"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// New stamps an event with a ULID, so ids sort in publish order.
func New(eventType, accountID string, data any) Event {
	return Event{
		ID:        ulid.Make().String(),
		Type:      eventType,
		AccountID: accountID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type AccountOpenedEvent struct {
	AccountID string `json:"accountId"`
}

// Amounts are decimal strings with two fraction digits.
type BalanceUpdatedEvent struct {
	AccountID  string `json:"accountId"`
	Operation  string `json:"operation"`
	Amount     string `json:"amount,omitempty"`
	Rate       string `json:"rate,omitempty"`
	NewBalance string `json:"newBalance"`
}
