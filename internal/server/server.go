// Package server implements the framework's process lifecycle: binding a
// grpc.Server, starting one Batcher per non-streaming batched model, wiring the
// dynamic dispatcher and the standard health/reflection services, and
// draining in-flight RPCs within a bounded grace period on shutdown.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Ifihan/blazerpc/internal/batcher"
	"github.com/Ifihan/blazerpc/internal/config"
	"github.com/Ifihan/blazerpc/internal/dispatcher"
	"github.com/Ifihan/blazerpc/internal/executor"
	"github.com/Ifihan/blazerpc/internal/metrics"
	"github.com/Ifihan/blazerpc/internal/registry"
	"github.com/Ifihan/blazerpc/internal/schema"
)

// Server owns everything started by Serve: the batchers, the grpc.Server,
// and the health service whose per-model status tracks batcher liveness.
type Server struct {
	opts     config.ServeOptions
	logger   *zap.Logger
	grpcSrv  *grpc.Server
	httpSrv  *http.Server
	health   *health.Server
	batchers map[string]*batcher.Batcher
	schema   *schema.Schema
}

// New builds a Server from a frozen registry: it generates the schema,
// starts one Batcher per non-streaming model that has a Batched callable
// (unless batching is globally disabled), constructs the dynamic dispatcher, and assembles the
// grpc.Server with the standard interceptor chain, compressor, health and
// reflection services. It does not yet listen; call Serve for that.
func New(opts config.ServeOptions, reg *registry.Registry, logger *zap.Logger, metricsReg *metrics.Registry) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg.Freeze()
	models := reg.List()

	sc, err := schema.Generate(models)
	if err != nil {
		return nil, fmt.Errorf("generating schema: %w", err)
	}

	healthSrv := health.NewServer()
	batchers := make(map[string]*batcher.Batcher)
	for _, m := range models {
		if m.Streaming || !opts.Batching() || m.Batched == nil {
			continue
		}
		maxBatch := opts.Batch.MaxBatchSize
		timeout := opts.Batch.BatchTimeout
		var bmetrics *metrics.BatcherMetrics
		if metricsReg != nil {
			bmetrics = metricsReg.ForModel(m.Name)
		}
		b := batcher.New(batcher.Options{
			ModelName:    m.Name,
			MaxBatchSize: maxBatch,
			Timeout:      timeout,
			Callable:     m.Batched,
			Logger:       logger.With(zap.String("model", m.Name)),
			Metrics:      bmetrics,
		})
		batchers[m.Name] = b
		healthSrv.SetServingStatus(m.Name, healthpb.HealthCheckResponse_SERVING)
	}
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	exec := executor.New(opts.WorkerPoolSize)
	disp, err := dispatcher.New(sc, batchers, exec, logger)
	if err != nil {
		return nil, fmt.Errorf("building dispatcher: %w", err)
	}

	registerZstdCompressor()

	srvMetrics := grpc_prometheus.NewServerMetrics()
	if metricsReg != nil {
		metricsReg.MustRegister(srvMetrics)
	}

	accessLog := loggingUnaryInterceptor(logger)
	grpcSrv := grpc.NewServer(
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(accessLog, srvMetrics.UnaryServerInterceptor())),
		grpc.StreamInterceptor(grpc_middleware.ChainStreamServer(srvMetrics.StreamServerInterceptor())),
	)
	grpcSrv.RegisterService(disp.ServiceDesc(), nil)
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)
	srvMetrics.InitializeMetrics(grpcSrv)

	var httpSrv *http.Server
	if metricsReg != nil && opts.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metricsReg.Gatherer(), promhttp.HandlerOpts{}))
		httpSrv = &http.Server{Addr: opts.MetricsAddr, Handler: mux}
	}

	return &Server{
		opts:     opts,
		logger:   logger,
		grpcSrv:  grpcSrv,
		httpSrv:  httpSrv,
		health:   healthSrv,
		batchers: batchers,
		schema:   sc,
	}, nil
}

// loggingUnaryInterceptor logs each unary call's method and outcome at
// Debug, and any non-OK status at Warn, with the call's latency attached.
func loggingUnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{zap.String("method", info.FullMethod), zap.Duration("latency", time.Since(start))}
		if err != nil {
			logger.Warn("rpc failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("rpc completed", fields...)
		}
		return resp, err
	}
}

// Schema exposes the generated schema (text + FileDescriptor) for callers
// that want to print or persist the .proto document.
func (s *Server) Schema() *schema.Schema { return s.schema }

// Serve binds the listener and blocks until ctx is cancelled (typically by
// a signal-driven context from the host process), then drains in-flight
// RPCs within opts.GracePeriod before forcing a hard stop. It returns the
// aggregate of any shutdown-path errors.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.grpcSrv.Serve(lis) }()

	if s.httpSrv != nil {
		go func() {
			if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Warn("metrics server exited", zap.Error(err))
			}
		}()
	}

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	return s.shutdown(ctx.Err())
}

// shutdown implements the drain-then-force sequence: GracefulStop is given
// opts.GracePeriod to finish in-flight RPCs; if it hasn't returned by then,
// Stop forcibly closes every connection. The metrics server and then every
// Batcher are stopped after the RPC drain has ended; the metrics server's
// shutdown error and any panic while stopping a batcher are aggregated with
// go.uber.org/multierr rather than reported piecemeal.
func (s *Server) shutdown(reason error) error {
	start := time.Now()
	s.logger.Info("shutdown starting", zap.Error(reason))

	for name := range s.batchers {
		s.health.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
	}

	stopped := make(chan struct{})
	go func() {
		s.grpcSrv.GracefulStop()
		close(stopped)
	}()

	var forced bool
	select {
	case <-stopped:
	case <-time.After(s.opts.GracePeriod):
		forced = true
		s.grpcSrv.Stop()
		<-stopped
	}

	var errs error
	if s.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.GracePeriod)
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("stopping metrics server: %w", err))
		}
		cancel()
	}
	for name, b := range s.batchers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					errs = multierr.Append(errs, fmt.Errorf("batcher %q panicked while stopping: %v", name, r))
				}
			}()
			b.Stop()
		}()
	}

	s.logger.Info("shutdown complete",
		zap.Duration("drain_duration", time.Since(start)),
		zap.Bool("forced", forced),
		zap.Int("batchers_stopped", len(s.batchers)),
	)
	return errs
}
