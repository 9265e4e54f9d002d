// Command client drives a bank server over gRPC: it opens an account,
// deposits, adds interest, withdraws and prints the balance. With -watch it
// instead follows the server's Redis event stream and keeps a balance
// projection per account in Redis.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eaglebank/ledger/internal/rpc"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/models"
	redisClient "github.com/eaglebank/ledger/shared/redis"
)

const balanceKeyPrefix = "ledger:balance:"

func main() {
	var (
		addr     = flag.String("addr", "localhost:9001", "bank server gRPC address")
		deposit  = flag.Float64("deposit", 100, "amount to deposit")
		interest = flag.Float64("interest", 5, "interest rate in percent")
		withdraw = flag.Float64("withdraw", 20, "amount to withdraw")
		timeout  = flag.Duration("timeout", 5*time.Second, "deadline for the whole session")

		watch     = flag.Bool("watch", false, "follow the event stream instead of running a session")
		redisAddr = flag.String("redis", "localhost:6379", "Redis address for -watch")
		stream    = flag.String("stream", events.DefaultStream, "event stream for -watch")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *watch {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := runWatch(ctx, logger, *redisAddr, *stream); err != nil && ctx.Err() == nil {
			logger.Fatal("watch failed", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := runSession(ctx, *addr, *deposit, *interest, *withdraw); err != nil {
		logger.Fatal("session failed", zap.Error(err))
	}
}

func runSession(ctx context.Context, addr string, deposit, interest, withdraw float64) error {
	client, err := rpc.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	accountID, err := client.OpenAccount(ctx)
	if err != nil {
		return fmt.Errorf("open account: %w", err)
	}
	fmt.Printf("Account %s is opened\n", accountID)

	balance, err := client.DepositAccount(ctx, accountID, deposit)
	if err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	fmt.Printf("Deposited %.2f to account %s. Balance: %.2f\n", deposit, accountID, balance)

	balance, err = client.AddInterest(ctx, accountID, interest)
	if err != nil {
		return fmt.Errorf("add interest: %w", err)
	}
	fmt.Printf("%g%% Interest added to account %s. Balance: %.2f\n", interest, accountID, balance)

	balance, err = client.WithdrawAccount(ctx, accountID, withdraw)
	if err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	fmt.Printf("Withdrew %.2f from account %s. Balance: %.2f\n", withdraw, accountID, balance)

	balance, err = client.GetBalance(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}
	fmt.Printf("Balance of account %s is %.2f\n", accountID, balance)
	return nil
}

func runWatch(ctx context.Context, logger *zap.Logger, redisAddr, stream string) error {
	client, err := redisClient.NewClient(ctx, redisAddr, "", 0)
	if err != nil {
		return err
	}
	defer client.Close()

	host, _ := os.Hostname()
	p := &projector{
		balances: redisClient.NewViewCache[models.BalanceView](client.Client, logger, balanceKeyPrefix, 0),
		logger:   logger,
	}
	sub := events.NewSubscriber(client.Client, logger, events.SubscriberConfig{
		Group:    "ledger-watch",
		Consumer: fmt.Sprintf("%s-%d", host, os.Getpid()),
		Stream:   stream,
		Handler:  p.handle,
	})
	return sub.Start(ctx)
}

type balanceCache interface {
	Get(ctx context.Context, id string) (*models.BalanceView, bool)
	Set(ctx context.Context, id string, value *models.BalanceView)
}

// projector prints each event and keeps the latest balance per account.
type projector struct {
	balances balanceCache
	logger   *zap.Logger
}

func (p *projector) handle(ctx context.Context, event events.Event) error {
	fmt.Printf("%s %s %s account=%s\n", event.Timestamp.Format(time.RFC3339), event.ID, event.Type, event.AccountID)

	switch event.Type {
	case events.AccountOpened:
		// A redelivered open must not wipe a balance projected after it.
		if _, ok := p.balances.Get(ctx, event.AccountID); ok {
			return nil
		}
		p.balances.Set(ctx, event.AccountID, &models.BalanceView{AccountID: event.AccountID, Balance: "0.00"})
	case events.BalanceUpdated:
		// Data arrives as a generic map after the JSON round trip.
		raw, err := json.Marshal(event.Data)
		if err != nil {
			return err
		}
		var update events.BalanceUpdatedEvent
		if err := json.Unmarshal(raw, &update); err != nil {
			return fmt.Errorf("decoding %s: %w", event.ID, err)
		}
		p.balances.Set(ctx, update.AccountID, &models.BalanceView{AccountID: update.AccountID, Balance: update.NewBalance})
	default:
		p.logger.Debug("ignoring event", zap.String("type", event.Type))
	}
	return nil
}
