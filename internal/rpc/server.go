package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/eaglebank/ledger/shared/limiter"
)

type ServerConfig struct {
	ServerName string
	Logger     *zap.Logger
	Pool       limiter.Limiter
	Registerer prometheus.Registerer
}

// Server bundles the grpc.Server with its health service so that the
// caller can flip the serving status during shutdown.
type Server struct {
	*grpc.Server
	Health *health.Server
}

// NewServer builds a server with bank.BankAccountService and health
// registered. Interceptors run metrics, logging, then admission,
// so time spent queueing for a worker shows up in latency.
func NewServer(cfg ServerConfig, svc BankAccountServiceServer) *Server {
	metrics := MetricsInterceptorBuilder{
		Namespace:  "ledger",
		Subsystem:  "grpc",
		InstanceID: cfg.ServerName,
	}

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			metrics.Build(cfg.Registerer),
			LoggingInterceptor(cfg.Logger),
			AdmissionInterceptor(cfg.Pool),
		),
	)
	RegisterBankAccountServiceServer(s, svc)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	return &Server{Server: s, Health: hs}
}

// Drain marks every service NOT_SERVING and waits for in-flight calls.
func (s *Server) Drain() {
	s.Health.Shutdown()
	s.GracefulStop()
}
