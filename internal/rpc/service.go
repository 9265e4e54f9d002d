package rpc

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/limiter"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
	"github.com/eaglebank/ledger/shared/xerrors"
)

const ServiceName = "bank.BankAccountService"

// BankAccountServiceServer is the server API for bank.BankAccountService.
type BankAccountServiceServer interface {
	OpenAccount(context.Context, *Empty) (*AccountIdentifier, error)
	DepositAccount(context.Context, *DepositAccountRequest) (*AccountBalance, error)
	WithdrawAccount(context.Context, *WithdrawAccountRequest) (*AccountBalance, error)
	GetBalance(context.Context, *BalanceAccountRequest) (*AccountBalance, error)
	AddInterest(context.Context, *AddInterestRequest) (*AccountBalance, error)
}

type Commander interface {
	OpenAccount(context.Context, cqrs.OpenAccountCommand) (*models.AccountView, error)
	Deposit(context.Context, cqrs.DepositCommand) (*models.BalanceView, error)
	Withdraw(context.Context, cqrs.WithdrawCommand) (*models.BalanceView, error)
	AddInterest(context.Context, cqrs.AddInterestCommand) (*models.BalanceView, error)
}

type Querier interface {
	GetBalance(cqrs.GetBalanceQuery) (*models.BalanceView, error)
}

// BankService adapts the command and query services to the wire API.
type BankService struct {
	commands Commander
	queries  Querier
}

var _ BankAccountServiceServer = (*BankService)(nil)

func NewBankService(commands Commander, queries Querier) *BankService {
	return &BankService{commands: commands, queries: queries}
}

func (s *BankService) OpenAccount(ctx context.Context, _ *Empty) (*AccountIdentifier, error) {
	view, err := s.commands.OpenAccount(ctx, cqrs.OpenAccountCommand{})
	if err != nil {
		return nil, toStatus(err)
	}
	return &AccountIdentifier{AccountID: view.AccountID}, nil
}

func (s *BankService) DepositAccount(ctx context.Context, req *DepositAccountRequest) (*AccountBalance, error) {
	amount, err := money.FromFloat(req.Amount)
	if err != nil {
		return nil, s.rejectInput(req.AccountID, err)
	}
	view, err := s.commands.Deposit(ctx, cqrs.DepositCommand{AccountID: req.AccountID, Amount: amount})
	if err != nil {
		return nil, toStatus(err)
	}
	return balanceOf(view), nil
}

func (s *BankService) WithdrawAccount(ctx context.Context, req *WithdrawAccountRequest) (*AccountBalance, error) {
	amount, err := money.FromFloat(req.Amount)
	if err != nil {
		return nil, s.rejectInput(req.AccountID, err)
	}
	view, err := s.commands.Withdraw(ctx, cqrs.WithdrawCommand{AccountID: req.AccountID, Amount: amount})
	if err != nil {
		return nil, toStatus(err)
	}
	return balanceOf(view), nil
}

func (s *BankService) GetBalance(_ context.Context, req *BalanceAccountRequest) (*AccountBalance, error) {
	view, err := s.queries.GetBalance(cqrs.GetBalanceQuery{AccountID: req.AccountID})
	if err != nil {
		return nil, toStatus(err)
	}
	return balanceOf(view), nil
}

func (s *BankService) AddInterest(ctx context.Context, req *AddInterestRequest) (*AccountBalance, error) {
	if math.IsNaN(req.InterestRate) || math.IsInf(req.InterestRate, 0) {
		return nil, s.rejectInput(req.AccountID, fmt.Errorf("%w: %v", xerrors.ErrInvalidInterestRate, req.InterestRate))
	}
	view, err := s.commands.AddInterest(ctx, cqrs.AddInterestCommand{
		AccountID: req.AccountID,
		Rate:      decimal.NewFromFloat(req.InterestRate),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return balanceOf(view), nil
}

// rejectInput reports err for a request whose payload cannot be converted,
// unless the account is unknown: that is always reported first.
func (s *BankService) rejectInput(accountID string, err error) error {
	if _, lookupErr := s.queries.GetBalance(cqrs.GetBalanceQuery{AccountID: accountID}); errors.Is(lookupErr, xerrors.ErrAccountNotFound) {
		return toStatus(lookupErr)
	}
	return toStatus(err)
}

func balanceOf(view *models.BalanceView) *AccountBalance {
	return &AccountBalance{Balance: view.Amount.Float64()}
}

// toStatus keeps the codes and messages existing bank clients expect.
func toStatus(err error) error {
	switch {
	case errors.Is(err, xerrors.ErrAccountNotFound):
		return status.Error(codes.NotFound, "Account does not exist in the bank server")
	case errors.Is(err, xerrors.ErrInsufficientFunds):
		return status.Error(codes.InvalidArgument, "Not enough funds to withdraw from the account")
	case errors.Is(err, xerrors.ErrInvalidInterestRate):
		return status.Error(codes.InvalidArgument, "Invalid input of interest rate")
	case errors.Is(err, xerrors.ErrInvalidAmount):
		return status.Error(codes.InvalidArgument, "Invalid amount")
	case errors.Is(err, xerrors.ErrBalanceOverflow):
		return status.Error(codes.OutOfRange, "Resulting balance is too large")
	case errors.Is(err, limiter.ErrBusy):
		return status.Error(codes.ResourceExhausted, "Server busy, retry later")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, "Unexpected error")
	}
}

func RegisterBankAccountServiceServer(s grpc.ServiceRegistrar, srv BankAccountServiceServer) {
	s.RegisterService(&BankAccountServiceDesc, srv)
}

// BankAccountServiceDesc describes bank.BankAccountService for a codec
// that does not need generated message types.
var BankAccountServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BankAccountServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "OpenAccount", Handler: openAccountHandler},
		{MethodName: "DepositAccount", Handler: depositAccountHandler},
		{MethodName: "WithdrawAccount", Handler: withdrawAccountHandler},
		{MethodName: "GetBalance", Handler: getBalanceHandler},
		{MethodName: "AddInterest", Handler: addInterestHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bank.proto",
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func openAccountHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankAccountServiceServer).OpenAccount(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("OpenAccount")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BankAccountServiceServer).OpenAccount(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func depositAccountHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DepositAccountRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankAccountServiceServer).DepositAccount(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("DepositAccount")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BankAccountServiceServer).DepositAccount(ctx, req.(*DepositAccountRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func withdrawAccountHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(WithdrawAccountRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankAccountServiceServer).WithdrawAccount(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("WithdrawAccount")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BankAccountServiceServer).WithdrawAccount(ctx, req.(*WithdrawAccountRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getBalanceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(BalanceAccountRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankAccountServiceServer).GetBalance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("GetBalance")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BankAccountServiceServer).GetBalance(ctx, req.(*BalanceAccountRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func addInterestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AddInterestRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankAccountServiceServer).AddInterest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("AddInterest")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BankAccountServiceServer).AddInterest(ctx, req.(*AddInterestRequest))
	}
	return interceptor(ctx, in, info, handler)
}
