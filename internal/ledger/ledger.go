// Package ledger implements the account operations on top of the registry.
//
// Every mutating operation has the same shape: resolve the account (fail
// fast, no lock), validate what can be checked without the lock, then
// mutate through Account.Update. Errors are returned as values wrapping the
// sentinels in shared/xerrors; nothing here logs.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eaglebank/ledger/internal/registry"
	"github.com/eaglebank/ledger/shared/money"
	"github.com/eaglebank/ledger/shared/xerrors"
)

// Ledger is the set of operations the transports depend on.
type Ledger interface {
	OpenAccount() string
	Deposit(ctx context.Context, accountID string, amount money.Amount) (money.Amount, error)
	Withdraw(ctx context.Context, accountID string, amount money.Amount) (money.Amount, error)
	AddInterest(ctx context.Context, accountID string, rate decimal.Decimal) (money.Amount, error)
	GetBalance(accountID string) (money.Amount, error)
}

var (
	minRate = decimal.Zero
	maxRate = decimal.NewFromInt(100)
)

// Operations is stateless apart from the registry it was built with.
type Operations struct {
	accounts *registry.Registry
}

var _ Ledger = (*Operations)(nil)

func New(accounts *registry.Registry) *Operations {
	return &Operations{accounts: accounts}
}

func (o *Operations) OpenAccount() string {
	return o.accounts.OpenAccount()
}

func (o *Operations) Deposit(ctx context.Context, accountID string, amount money.Amount) (money.Amount, error) {
	account, err := o.accounts.Lookup(accountID)
	if err != nil {
		return 0, err
	}
	if err := checkAmount(amount); err != nil {
		return 0, err
	}

	return account.Update(ctx, func(balance money.Amount) (money.Amount, error) {
		return balance.Add(amount)
	})
}

// Withdraw checks funds twice. The first check reads the committed balance
// without the lock and rejects obvious overdrafts early; the second runs
// under the lock and is the one that counts, since another withdrawal may
// have committed in between.
func (o *Operations) Withdraw(ctx context.Context, accountID string, amount money.Amount) (money.Amount, error) {
	account, err := o.accounts.Lookup(accountID)
	if err != nil {
		return 0, err
	}
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	if _, err := account.Balance().Sub(amount); err != nil {
		return 0, fmt.Errorf("account %s: %w", accountID, err)
	}

	return account.Update(ctx, func(balance money.Amount) (money.Amount, error) {
		next, err := balance.Sub(amount)
		if err != nil {
			return 0, fmt.Errorf("account %s: %w", accountID, err)
		}
		return next, nil
	})
}

// AddInterest credits round(balance * rate / 100). rate is a percentage and
// must lie in [0, 100].
func (o *Operations) AddInterest(ctx context.Context, accountID string, rate decimal.Decimal) (money.Amount, error) {
	account, err := o.accounts.Lookup(accountID)
	if err != nil {
		return 0, err
	}
	if rate.LessThan(minRate) || rate.GreaterThan(maxRate) {
		return 0, fmt.Errorf("%w: %s is outside [0, 100]", xerrors.ErrInvalidInterestRate, rate)
	}

	return account.Update(ctx, func(balance money.Amount) (money.Amount, error) {
		delta, err := balance.Percent(rate)
		if err != nil {
			return 0, fmt.Errorf("%w: interest on %s", xerrors.ErrBalanceOverflow, balance)
		}
		return balance.Add(delta)
	})
}

// GetBalance does not take the account lock. Each mutation commits with a
// single atomic store, so the value returned is one that some completed
// operation produced.
func (o *Operations) GetBalance(accountID string) (money.Amount, error) {
	account, err := o.accounts.Lookup(accountID)
	if err != nil {
		return 0, err
	}
	return account.Balance(), nil
}

func checkAmount(amount money.Amount) error {
	if amount < 0 {
		return fmt.Errorf("%w: %s is negative", xerrors.ErrInvalidAmount, amount)
	}
	return nil
}
