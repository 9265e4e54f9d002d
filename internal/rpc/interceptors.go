package rpc

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/eaglebank/ledger/shared/limiter"
)

// bankMethod reports whether fullMethod belongs to bank.BankAccountService.
// Health checks and other infrastructure services bypass admission and
// metrics.
func bankMethod(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/"+ServiceName+"/")
}

// AdmissionInterceptor holds a worker slot while a bank method runs.
func AdmissionInterceptor(pool limiter.Limiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !bankMethod(info.FullMethod) {
			return handler(ctx, req)
		}
		release, err := pool.Acquire(ctx)
		if err != nil {
			return nil, toStatus(err)
		}
		defer release()
		return handler(ctx, req)
	}
}

func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		st := status.Convert(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", st.Code().String()),
			zap.Duration("latency", time.Since(start)),
		}
		if err != nil {
			logger.Warn("rpc", append(fields, zap.String("error", st.Message()))...)
		} else {
			logger.Info("rpc", fields...)
		}
		return resp, err
	}
}

type MetricsInterceptorBuilder struct {
	Namespace  string
	Subsystem  string
	InstanceID string
}

// Build registers its collectors on reg.
func (b MetricsInterceptorBuilder) Build(reg prometheus.Registerer) grpc.UnaryServerInterceptor {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   b.Namespace,
		Subsystem:   b.Subsystem,
		Name:        "requests_total",
		Help:        "Unary RPCs handled, by method and status code.",
		ConstLabels: prometheus.Labels{"instance_id": b.InstanceID},
	}, []string{"method", "code"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   b.Namespace,
		Subsystem:   b.Subsystem,
		Name:        "request_duration_seconds",
		Help:        "Unary RPC latency.",
		ConstLabels: prometheus.Labels{"instance_id": b.InstanceID},
		Buckets:     prometheus.DefBuckets,
	}, []string{"method"})
	reg.MustRegister(requests, latency)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !bankMethod(info.FullMethod) {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		latency.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		requests.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}
