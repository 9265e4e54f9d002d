package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/eaglebank/ledger/internal/command"
	"github.com/eaglebank/ledger/internal/config"
	"github.com/eaglebank/ledger/internal/handler"
	"github.com/eaglebank/ledger/internal/ledger"
	"github.com/eaglebank/ledger/internal/query"
	"github.com/eaglebank/ledger/internal/registry"
	"github.com/eaglebank/ledger/internal/rpc"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/limiter"
	"github.com/eaglebank/ledger/shared/middleware"
	redisClient "github.com/eaglebank/ledger/shared/redis"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\nusage: server [serverName grpcPort maxInFlight]\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Production() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, err := newSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("closing event sink", zap.Error(err))
		}
	}()

	// --- CQRS wiring ---
	accounts := registry.New()
	ops := ledger.New(accounts)
	commandSvc := command.NewLedgerCommandService(ops, sink, logger)
	querySvc := query.NewLedgerQueryService(ops)

	pool := limiter.NewPool(cfg.MaxInFlight, cfg.AdmissionTimeout)

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: newRouter(cfg, logger, metrics, pool, accounts, handler.NewLedgerHandler(commandSvc, querySvc)),
	}

	grpcSrv := rpc.NewServer(rpc.ServerConfig{
		ServerName: cfg.ServerName,
		Logger:     logger,
		Pool:       pool,
		Registerer: metrics,
	}, rpc.NewBankService(commandSvc, querySvc))
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen on gRPC port %s: %w", cfg.GRPCPort, err)
	}

	logger.Info("bank server started",
		zap.String("server", cfg.ServerName),
		zap.String("grpc_port", cfg.GRPCPort),
		zap.String("http_port", cfg.HTTPPort),
		zap.Int("max_in_flight", cfg.MaxInFlight),
		zap.String("events", cfg.EventsBackend),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		grpcSrv.Drain()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newRouter(
	cfg config.Config,
	logger *zap.Logger,
	metrics *prometheus.Registry,
	pool limiter.Limiter,
	accounts *registry.Registry,
	ledgerHandler *handler.LedgerHandler,
) *gin.Engine {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.NewMetricsBuilder("ledger", "http", "request", "HTTP request latency in milliseconds", cfg.ServerName).Build(metrics),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"server":   cfg.ServerName,
			"accounts": accounts.Len(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})))

	v1 := router.Group("/v1/accounts", middleware.Admission(pool))
	ledgerHandler.Register(v1)

	return router
}

func newSink(ctx context.Context, cfg config.Config, logger *zap.Logger) (events.Sink, error) {
	switch cfg.EventsBackend {
	case config.EventsRedis:
		client, err := redisClient.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return &closingSink{
			Sink:  events.NewPublisher(client.Client, cfg.EventsStream, cfg.EventsMaxLen),
			close: client.Close,
		}, nil
	case config.EventsKafka:
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.EventsStream, logger), nil
	default:
		return events.NopPublisher{}, nil
	}
}

// closingSink also closes the Redis client the publisher borrowed.
type closingSink struct {
	events.Sink
	close func() error
}

func (s *closingSink) Close() error {
	return errors.Join(s.Sink.Close(), s.close())
}
