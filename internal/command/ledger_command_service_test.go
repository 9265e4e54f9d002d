package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/eaglebank/ledger/internal/ledger"
	"github.com/eaglebank/ledger/internal/registry"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/money"
	"github.com/eaglebank/ledger/shared/xerrors"
)

// ---- mock sink ----

type mockSink struct {
	mu        sync.Mutex
	published []events.Event
	publishFn func(context.Context, events.Event) error
}

func (m *mockSink) Publish(ctx context.Context, event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, event)
	if m.publishFn != nil {
		return m.publishFn(ctx, event)
	}
	return nil
}

func (m *mockSink) Close() error { return nil }

func (m *mockSink) recorded() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.published...)
}

func newTestService(sink events.Sink, logger *zap.Logger) *LedgerCommandService {
	return NewLedgerCommandService(ledger.New(registry.New()), sink, logger)
}

// ---- tests ----

func TestOpenAccount_PublishesEvent(t *testing.T) {
	sink := &mockSink{}
	svc := newTestService(sink, zap.NewNop())

	view, err := svc.OpenAccount(context.Background(), cqrs.OpenAccountCommand{})
	require.NoError(t, err)
	assert.Equal(t, "1", view.AccountID)

	published := sink.recorded()
	require.Len(t, published, 1)
	assert.Equal(t, events.AccountOpened, published[0].Type)
	assert.Equal(t, "1", published[0].AccountID)
	assert.NotEmpty(t, published[0].ID)
}

func TestBalanceCommands(t *testing.T) {
	sink := &mockSink{}
	svc := newTestService(sink, zap.NewNop())
	ctx := context.Background()
	account, err := svc.OpenAccount(ctx, cqrs.OpenAccountCommand{})
	require.NoError(t, err)
	id := account.AccountID

	view, err := svc.Deposit(ctx, cqrs.DepositCommand{AccountID: id, Amount: money.MustParse("100.00")})
	require.NoError(t, err)
	assert.Equal(t, "100.00", view.Balance)

	view, err = svc.AddInterest(ctx, cqrs.AddInterestCommand{AccountID: id, Rate: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Equal(t, "110.00", view.Balance)

	view, err = svc.Withdraw(ctx, cqrs.WithdrawCommand{AccountID: id, Amount: money.MustParse("10.50")})
	require.NoError(t, err)
	assert.Equal(t, "99.50", view.Balance)

	published := sink.recorded()
	require.Len(t, published, 4)
	updates := []events.BalanceUpdatedEvent{}
	for _, e := range published[1:] {
		assert.Equal(t, events.BalanceUpdated, e.Type)
		updates = append(updates, e.Data.(events.BalanceUpdatedEvent))
	}
	assert.Equal(t, events.OperationDeposit, updates[0].Operation)
	assert.Equal(t, "100.00", updates[0].Amount)
	assert.Equal(t, events.OperationInterest, updates[1].Operation)
	assert.Equal(t, "10", updates[1].Rate)
	assert.Equal(t, "110.00", updates[1].NewBalance)
	assert.Equal(t, events.OperationWithdraw, updates[2].Operation)
	assert.Equal(t, "99.50", updates[2].NewBalance)
}

func TestFailedCommandsPublishNothing(t *testing.T) {
	tests := []struct {
		name    string
		run     func(*LedgerCommandService, string) error
		wantErr error
	}{
		{
			name: "withdraw more than balance",
			run: func(s *LedgerCommandService, id string) error {
				_, err := s.Withdraw(context.Background(), cqrs.WithdrawCommand{AccountID: id, Amount: 1})
				return err
			},
			wantErr: xerrors.ErrInsufficientFunds,
		},
		{
			name: "deposit to unknown account",
			run: func(s *LedgerCommandService, _ string) error {
				_, err := s.Deposit(context.Background(), cqrs.DepositCommand{AccountID: "42", Amount: 1})
				return err
			},
			wantErr: xerrors.ErrAccountNotFound,
		},
		{
			name: "interest rate out of range",
			run: func(s *LedgerCommandService, id string) error {
				_, err := s.AddInterest(context.Background(), cqrs.AddInterestCommand{AccountID: id, Rate: decimal.NewFromInt(150)})
				return err
			},
			wantErr: xerrors.ErrInvalidInterestRate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &mockSink{}
			svc := newTestService(sink, zap.NewNop())
			account, err := svc.OpenAccount(context.Background(), cqrs.OpenAccountCommand{})
			require.NoError(t, err)

			err = tt.run(svc, account.AccountID)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, sink.recorded(), 1, "only account.opened")
		})
	}
}

func TestPublishFailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := &mockSink{publishFn: func(context.Context, events.Event) error { return errors.New("stream down") }}
	svc := newTestService(sink, zap.New(core))

	account, err := svc.OpenAccount(context.Background(), cqrs.OpenAccountCommand{})
	require.NoError(t, err)

	view, err := svc.Deposit(context.Background(), cqrs.DepositCommand{AccountID: account.AccountID, Amount: money.MustParse("5.00")})
	require.NoError(t, err)
	assert.Equal(t, "5.00", view.Balance)

	entries := logs.FilterMessage("failed to publish event").All()
	require.Len(t, entries, 2)
	assert.Equal(t, events.BalanceUpdated, entries[1].ContextMap()["type"])
}

func TestPublishSurvivesCancelledRequest(t *testing.T) {
	var publishCtxErr error
	sink := &mockSink{publishFn: func(ctx context.Context, _ events.Event) error {
		publishCtxErr = ctx.Err()
		return nil
	}}
	svc := newTestService(sink, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.OpenAccount(ctx, cqrs.OpenAccountCommand{})
	require.NoError(t, err)

	assert.Len(t, sink.recorded(), 1)
	assert.NoError(t, publishCtxErr, "a committed change is announced even if the caller went away")
}

func TestFailuresLoggedOnlyWhenNotRejections(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	accounts := registry.New()
	svc := NewLedgerCommandService(ledger.New(accounts), &mockSink{}, zap.New(core))
	id := accounts.OpenAccount()

	_, err := svc.Withdraw(context.Background(), cqrs.WithdrawCommand{AccountID: id, Amount: 1})
	require.ErrorIs(t, err, xerrors.ErrInsufficientFunds)
	assert.Zero(t, logs.FilterMessage("ledger operation failed").Len())

	account, err := accounts.Lookup(id)
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
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Deposit(ctx, cqrs.DepositCommand{AccountID: id, Amount: 1})
	require.ErrorIs(t, err, context.Canceled)

	entries := logs.FilterMessage("ledger operation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, events.OperationDeposit, entries[0].ContextMap()["operation"])
	assert.Equal(t, id, entries[0].ContextMap()["account_id"])
}

func TestNewLedgerCommandService_NilSink(t *testing.T) {
	svc := NewLedgerCommandService(ledger.New(registry.New()), nil, zap.NewNop())
	_, err := svc.OpenAccount(context.Background(), cqrs.OpenAccountCommand{})
	assert.NoError(t, err)
}
