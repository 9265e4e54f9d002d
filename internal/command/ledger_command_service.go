package command

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eaglebank/ledger/internal/ledger"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/xerrors"
)

const publishTimeout = 2 * time.Second

// LedgerCommandService runs the write-side operations and announces each
// committed change on the event sink.
type LedgerCommandService struct {
	ledger ledger.Ledger
	sink   events.Sink
	logger *zap.Logger
}

func NewLedgerCommandService(l ledger.Ledger, sink events.Sink, logger *zap.Logger) *LedgerCommandService {
	if sink == nil {
		sink = events.NopPublisher{}
	}
	return &LedgerCommandService{ledger: l, sink: sink, logger: logger}
}

func (s *LedgerCommandService) OpenAccount(ctx context.Context, _ cqrs.OpenAccountCommand) (*models.AccountView, error) {
	id := s.ledger.OpenAccount()
	s.publish(ctx, events.New(events.AccountOpened, id, events.AccountOpenedEvent{AccountID: id}))
	return &models.AccountView{AccountID: id}, nil
}

func (s *LedgerCommandService) Deposit(ctx context.Context, cmd cqrs.DepositCommand) (*models.BalanceView, error) {
	balance, err := s.ledger.Deposit(ctx, cmd.AccountID, cmd.Amount)
	if err != nil {
		return nil, s.failed(events.OperationDeposit, cmd.AccountID, err)
	}
	s.publish(ctx, events.New(events.BalanceUpdated, cmd.AccountID, events.BalanceUpdatedEvent{
		AccountID:  cmd.AccountID,
		Operation:  events.OperationDeposit,
		Amount:     cmd.Amount.String(),
		NewBalance: balance.String(),
	}))
	return models.NewBalanceView(cmd.AccountID, balance), nil
}

func (s *LedgerCommandService) Withdraw(ctx context.Context, cmd cqrs.WithdrawCommand) (*models.BalanceView, error) {
	balance, err := s.ledger.Withdraw(ctx, cmd.AccountID, cmd.Amount)
	if err != nil {
		return nil, s.failed(events.OperationWithdraw, cmd.AccountID, err)
	}
	s.publish(ctx, events.New(events.BalanceUpdated, cmd.AccountID, events.BalanceUpdatedEvent{
		AccountID:  cmd.AccountID,
		Operation:  events.OperationWithdraw,
		Amount:     cmd.Amount.String(),
		NewBalance: balance.String(),
	}))
	return models.NewBalanceView(cmd.AccountID, balance), nil
}

func (s *LedgerCommandService) AddInterest(ctx context.Context, cmd cqrs.AddInterestCommand) (*models.BalanceView, error) {
	balance, err := s.ledger.AddInterest(ctx, cmd.AccountID, cmd.Rate)
	if err != nil {
		return nil, s.failed(events.OperationInterest, cmd.AccountID, err)
	}
	s.publish(ctx, events.New(events.BalanceUpdated, cmd.AccountID, events.BalanceUpdatedEvent{
		AccountID:  cmd.AccountID,
		Operation:  events.OperationInterest,
		Rate:       cmd.Rate.String(),
		NewBalance: balance.String(),
	}))
	return models.NewBalanceView(cmd.AccountID, balance), nil
}

// failed passes err through. Rejected requests are the caller's problem and
// stay quiet; anything else, such as giving up on the account lock, is logged.
func (s *LedgerCommandService) failed(operation, accountID string, err error) error {
	if !xerrors.IsValidation(err) {
		s.logger.Warn("ledger operation failed",
			zap.String("operation", operation),
			zap.String("account_id", accountID),
			zap.Error(err),
		)
	}
	return err
}

// publish runs after the account lock is released. The change is already
// committed, so a failed publish is logged and never reaches the caller.
func (s *LedgerCommandService) publish(ctx context.Context, event events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.sink.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("type", event.Type),
			zap.String("event_id", event.ID),
			zap.String("account_id", event.AccountID),
			zap.Error(err),
		)
	}
}
