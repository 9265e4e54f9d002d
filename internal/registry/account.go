package registry

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/eaglebank/ledger/shared/money"
	"github.com/eaglebank/ledger/shared/xerrors"
)

// Account is a live ledger entry. Its id and lock are fixed at creation;
// only the balance changes, and only through Update.
type Account struct {
	id string
	// lock has weight 1; waiting on it honours ctx cancellation.
	lock  *semaphore.Weighted
	cents atomic.Int64
}

func newAccount(id string) *Account {
	return &Account{
		id:   id,
		lock: semaphore.NewWeighted(1),
	}
}

func (a *Account) ID() string { return a.id }

// Balance returns the last committed balance without taking the lock.
func (a *Account) Balance() money.Amount {
	return money.Amount(a.cents.Load())
}

// Update runs fn while holding the account lock and commits the balance it
// returns. Acquisition is all-or-nothing: if ctx ends first, fn never runs
// and the balance is untouched. An error from fn also leaves it untouched.
func (a *Account) Update(ctx context.Context, fn func(balance money.Amount) (money.Amount, error)) (money.Amount, error) {
	if err := a.lock.Acquire(ctx, 1); err != nil {
		return 0, fmt.Errorf("waiting for account %s: %w", a.id, err)
	}
	defer a.lock.Release(1)

	next, err := fn(a.Balance())
	if err != nil {
		return 0, err
	}
	if next < 0 {
		return 0, fmt.Errorf("%w: account %s would reach %s", xerrors.ErrInsufficientFunds, a.id, next)
	}
	a.cents.Store(int64(next))
	return next, nil
}
