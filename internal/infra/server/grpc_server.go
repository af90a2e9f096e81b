package server

import (
	"context"
	"errors"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/vinylkeeper/vinylkeeper-back/internal/adapters/transport/grpc/middleware"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type GRPCOptions struct {
	Address   string
	CertFile  string
	KeyFile   string
	RateLimit int
	Burst     int
	// Services names the services reported by the health endpoint.
	Services []string
}

// HealthProbe reports whether the backing stores are reachable.
type HealthProbe interface {
	Check(ctx context.Context) error
}

// StartGRPCServer serves until ctx is cancelled, then stops gracefully
// within five seconds. register attaches the application services.
func StartGRPCServer(
	ctx context.Context,
	opts GRPCOptions,
	register func(grpc.ServiceRegistrar),
	probe HealthProbe,
	logger *zap.Logger,
) error {
	lis, err := net.Listen("tcp", opts.Address)
	if err != nil {
		return err
	}
	return Serve(ctx, lis, opts, register, probe, logger)
}

func Serve(
	ctx context.Context,
	lis net.Listener,
	opts GRPCOptions,
	register func(grpc.ServiceRegistrar),
	probe HealthProbe,
	logger *zap.Logger,
) error {
	serverOpts := []grpc.ServerOption{
		grpc.UnaryInterceptor(middleware.ChainUnaryServer(ctx, logger, opts.RateLimit, opts.Burst)),
	}
	if opts.CertFile != "" && opts.KeyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(opts.CertFile, opts.KeyFile)
		if err != nil {
			return err
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
	}

	grpcServer := grpc.NewServer(serverOpts...)
	register(grpcServer)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	grpc_prometheus.Register(grpcServer)
	grpc_prometheus.EnableHandlingTimeHistogram()

	go watchHealth(ctx, hs, probe, opts.Services, logger)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("ctx cancelled, stopping gRPC server")
	hs.Shutdown()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-stopCtx.Done():
		grpcServer.Stop()
	case <-done:
	}
	logger.Info("gRPC server stopped")
	return nil
}

// watchHealth flips the serving status whenever the probe result changes.
func watchHealth(ctx context.Context, hs *health.Server, probe HealthProbe, services []string, logger *zap.Logger) {
	set := func(st healthpb.HealthCheckResponse_ServingStatus) {
		hs.SetServingStatus("", st)
		for _, s := range services {
			hs.SetServingStatus(s, st)
		}
	}

	check := func() {
		if probe == nil {
			set(healthpb.HealthCheckResponse_SERVING)
			return
		}
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := probe.Check(pctx); err != nil {
			if ctx.Err() == nil {
				logger.Warn("health probe failed", zap.Error(err))
			}
			set(healthpb.HealthCheckResponse_NOT_SERVING)
			return
		}
		set(healthpb.HealthCheckResponse_SERVING)
	}

	check()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
