package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a typed stub for bank.BankAccountService.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects lazily; the first call establishes the connection.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) OpenAccount(ctx context.Context) (string, error) {
	out := new(AccountIdentifier)
	if err := c.conn.Invoke(ctx, fullMethod("OpenAccount"), &Empty{}, out); err != nil {
		return "", err
	}
	return out.AccountID, nil
}

func (c *Client) DepositAccount(ctx context.Context, accountID string, amount float64) (float64, error) {
	out := new(AccountBalance)
	in := &DepositAccountRequest{AccountID: accountID, Amount: amount}
	if err := c.conn.Invoke(ctx, fullMethod("DepositAccount"), in, out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

func (c *Client) WithdrawAccount(ctx context.Context, accountID string, amount float64) (float64, error) {
	out := new(AccountBalance)
	in := &WithdrawAccountRequest{AccountID: accountID, Amount: amount}
	if err := c.conn.Invoke(ctx, fullMethod("WithdrawAccount"), in, out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

func (c *Client) GetBalance(ctx context.Context, accountID string) (float64, error) {
	out := new(AccountBalance)
	if err := c.conn.Invoke(ctx, fullMethod("GetBalance"), &BalanceAccountRequest{AccountID: accountID}, out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

func (c *Client) AddInterest(ctx context.Context, accountID string, rate float64) (float64, error) {
	out := new(AccountBalance)
	in := &AddInterestRequest{AccountID: accountID, InterestRate: rate}
	if err := c.conn.Invoke(ctx, fullMethod("AddInterest"), in, out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}
