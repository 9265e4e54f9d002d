package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaglebank/ledger/internal/registry"
	"github.com/eaglebank/ledger/shared/money"
	"github.com/eaglebank/ledger/shared/xerrors"
)

func newTestLedger(t *testing.T) (*Operations, string) {
	t.Helper()
	ops := New(registry.New())
	return ops, ops.OpenAccount()
}

func TestOpenAccount_StartsAtZero(t *testing.T) {
	ops, id := newTestLedger(t)
	assert.Equal(t, "1", id)
	assert.Equal(t, "2", ops.OpenAccount())

	balance, err := ops.GetBalance(id)
	require.NoError(t, err)
	assert.Equal(t, money.Zero, balance)
}

func TestDepositThenWithdraw(t *testing.T) {
	ops, id := newTestLedger(t)
	ctx := context.Background()

	balance, err := ops.Deposit(ctx, id, money.MustParse("50.00"))
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("50.00"), balance)

	balance, err = ops.Withdraw(ctx, id, money.MustParse("20.00"))
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("30.00"), balance)

	balance, err = ops.Withdraw(ctx, id, money.MustParse("30.00"))
	require.NoError(t, err)
	assert.Equal(t, money.Zero, balance, "withdrawing the full balance is allowed")
}

func TestDeposit_ZeroIsAllowed(t *testing.T) {
	ops, id := newTestLedger(t)

	balance, err := ops.Deposit(context.Background(), id, money.Zero)
	require.NoError(t, err)
	assert.Equal(t, money.Zero, balance)
}

func TestWithdraw_InsufficientFundsLeavesBalance(t *testing.T) {
	ops, id := newTestLedger(t)
	ctx := context.Background()

	_, err := ops.Deposit(ctx, id, money.MustParse("20.00"))
	require.NoError(t, err)

	_, err = ops.Withdraw(ctx, id, money.MustParse("20.01"))
	assert.ErrorIs(t, err, xerrors.ErrInsufficientFunds)

	balance, err := ops.GetBalance(id)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("20.00"), balance)
}

func TestAddInterest(t *testing.T) {
	tests := []struct {
		name    string
		balance string
		rate    string
		want    string
		wantErr error
	}{
		{name: "ten percent", balance: "100.00", rate: "10", want: "110.00"},
		{name: "zero rate", balance: "100.00", rate: "0", want: "100.00"},
		{name: "full rate doubles", balance: "42.10", rate: "100", want: "84.20"},
		{name: "delta rounds half up", balance: "0.05", rate: "10", want: "0.06"},
		{name: "empty account", balance: "0.00", rate: "5", want: "0.00"},
		{name: "above range", balance: "100.00", rate: "150", wantErr: xerrors.ErrInvalidInterestRate},
		{name: "negative", balance: "100.00", rate: "-0.01", wantErr: xerrors.ErrInvalidInterestRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, id := newTestLedger(t)
			ctx := context.Background()
			_, err := ops.Deposit(ctx, id, money.MustParse(tt.balance))
			require.NoError(t, err)

			got, err := ops.AddInterest(ctx, id, decimal.RequireFromString(tt.rate))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				after, _ := ops.GetBalance(id)
				assert.Equal(t, money.MustParse(tt.balance), after)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestAddInterest_Overflow(t *testing.T) {
	ops, id := newTestLedger(t)
	ctx := context.Background()
	_, err := ops.Deposit(ctx, id, money.Max-1)
	require.NoError(t, err)

	_, err = ops.AddInterest(ctx, id, decimal.NewFromInt(50))
	assert.ErrorIs(t, err, xerrors.ErrBalanceOverflow)

	balance, _ := ops.GetBalance(id)
	assert.Equal(t, money.Max-1, balance)
}

func TestDeposit_Overflow(t *testing.T) {
	ops, id := newTestLedger(t)
	ctx := context.Background()
	_, err := ops.Deposit(ctx, id, money.Max)
	require.NoError(t, err)

	_, err = ops.Deposit(ctx, id, 1)
	assert.ErrorIs(t, err, xerrors.ErrBalanceOverflow)
}

func TestNegativeAmountsRejected(t *testing.T) {
	ops, id := newTestLedger(t)
	ctx := context.Background()

	_, err := ops.Deposit(ctx, id, -1)
	assert.ErrorIs(t, err, xerrors.ErrInvalidAmount)
	_, err = ops.Withdraw(ctx, id, -1)
	assert.ErrorIs(t, err, xerrors.ErrInvalidAmount)

	balance, _ := ops.GetBalance(id)
	assert.Equal(t, money.Zero, balance)
}

func TestUnknownAccount(t *testing.T) {
	ops, id := newTestLedger(t)
	ctx := context.Background()
	_, err := ops.Deposit(ctx, id, money.MustParse("10.00"))
	require.NoError(t, err)

	const unknown = "99"
	_, err = ops.Deposit(ctx, unknown, money.MustParse("1.00"))
	assert.ErrorIs(t, err, xerrors.ErrAccountNotFound)
	_, err = ops.Withdraw(ctx, unknown, money.MustParse("1.00"))
	assert.ErrorIs(t, err, xerrors.ErrAccountNotFound)
	_, err = ops.AddInterest(ctx, unknown, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, xerrors.ErrAccountNotFound)
	_, err = ops.GetBalance(unknown)
	assert.ErrorIs(t, err, xerrors.ErrAccountNotFound)

	// an unknown id is reported before the rate is looked at
	_, err = ops.AddInterest(ctx, unknown, decimal.NewFromInt(500))
	assert.ErrorIs(t, err, xerrors.ErrAccountNotFound)

	balance, err := ops.GetBalance(id)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("10.00"), balance)
	assert.Equal(t, "2", ops.OpenAccount(), "failed calls must not consume ids")
}

func TestConcurrentDeposits(t *testing.T) {
	const n = 1000
	ops, id := newTestLedger(t)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ops.Deposit(context.Background(), id, money.MustParse("1.00"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	balance, err := ops.GetBalance(id)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", balance.String())
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	const (
		workers = 200
		funded  = 50
	)
	ops, id := newTestLedger(t)
	_, err := ops.Deposit(context.Background(), id, money.MustParse("50.00"))
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		ok       atomic.Int64
		rejected atomic.Int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ops.Withdraw(context.Background(), id, money.MustParse("1.00"))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, xerrors.ErrInsufficientFunds):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, funded, ok.Load())
	assert.EqualValues(t, workers-funded, rejected.Load())
	balance, _ := ops.GetBalance(id)
	assert.Equal(t, money.Zero, balance)
}

func TestMixedOperationsSerialize(t *testing.T) {
	ops, id := newTestLedger(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = ops.Deposit(ctx, id, money.MustParse("2.00"))
		}()
		go func() {
			defer wg.Done()
			_, _ = ops.Withdraw(ctx, id, money.MustParse("1.00"))
		}()
	}
	wg.Wait()

	balance, _ := ops.GetBalance(id)
	assert.GreaterOrEqual(t, balance, money.MustParse("100.00"))
	assert.LessOrEqual(t, balance, money.MustParse("200.00"))
	assert.Zero(t, int64(balance)%100, "only whole amounts were moved")
}

func TestDeposit_ContextCancelled(t *testing.T) {
	ops, id := newTestLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// hold the lock so the deposit has to wait on the cancelled context
	account, err := ops.accounts.Lookup(id)
	require.NoError(t, err)
	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = account.Update(context.Background(), func(b money.Amount) (money.Amount, error) {
			close(holding)
			<-release
			return b, nil
		})
	}()
	<-holding

	_, err = ops.Deposit(ctx, id, money.MustParse("5.00"))
	assert.ErrorIs(t, err, context.Canceled)
	close(release)

	assert.Eventually(t, func() bool {
		_, err := ops.Deposit(context.Background(), id, 0)
		return err == nil
	}, time.Second, 5*time.Millisecond)
	balance, _ := ops.GetBalance(id)
	assert.Equal(t, money.Zero, balance)
}

// GetBalance reads the last committed balance and never waits for an
// operation that is still inside the lock.
func TestGetBalance_DoesNotWaitForLock(t *testing.T) {
	ops, id := newTestLedger(t)
	_, err := ops.Deposit(context.Background(), id, money.MustParse("40.00"))
	require.NoError(t, err)

	account, err := ops.accounts.Lookup(id)
	require.NoError(t, err)
	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = account.Update(context.Background(), func(b money.Amount) (money.Amount, error) {
			close(holding)
			<-release
			return b + money.MustParse("60.00"), nil
		})
	}()
	<-holding

	read := make(chan money.Amount, 1)
	go func() {
		balance, err := ops.GetBalance(id)
		assert.NoError(t, err)
		read <- balance
	}()
	select {
	case balance := <-read:
		assert.Equal(t, money.MustParse("40.00"), balance, "in-flight update is not visible")
	case <-time.After(time.Second):
		t.Fatal("GetBalance blocked on the account lock")
	}

	close(release)
	<-done
	balance, err := ops.GetBalance(id)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("100.00"), balance)
}
