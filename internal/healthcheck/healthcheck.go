// Package healthcheck publishes database reachability over the standard
// gRPC health protocol and to HTTP probes.
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the named service reported next to the overall "" entry.
const ServiceName = "villa"

const (
	defaultInterval = 15 * time.Second
	defaultTimeout  = 3 * time.Second
)

var ErrInvalidCheckerConfig = errors.New("invalid health checker config")

// Pinger is satisfied by the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Option adjusts a Checker.
type Option func(*Checker)

// WithInterval sets the delay between probes.
func WithInterval(interval time.Duration) Option {
	return func(checker *Checker) {
		if interval > 0 {
			checker.interval = interval
		}
	}
}

// WithTimeout bounds a single probe.
func WithTimeout(timeout time.Duration) Option {
	return func(checker *Checker) {
		if timeout > 0 {
			checker.timeout = timeout
		}
	}
}

// Checker probes the database and mirrors the outcome into a grpc health
// server.
type Checker struct {
	pinger   Pinger
	logger   *zap.Logger
	server   *health.Server
	interval time.Duration
	timeout  time.Duration

	mu      sync.RWMutex
	healthy bool
	lastErr error
}

// New builds a Checker that reports NOT_SERVING until the first probe.
func New(pinger Pinger, logger *zap.Logger, options ...Option) (*Checker, error) {
	if pinger == nil {
		return nil, fmt.Errorf("%w: pinger is nil", ErrInvalidCheckerConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	checker := &Checker{
		pinger:   pinger,
		logger:   logger,
		server:   health.NewServer(),
		interval: defaultInterval,
		timeout:  defaultTimeout,
	}
	for _, option := range options {
		if option != nil {
			option(checker)
		}
	}
	checker.publish(healthpb.HealthCheckResponse_NOT_SERVING)
	return checker, nil
}

// Probe pings once and updates the published status.
func (checker *Checker) Probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, checker.timeout)
	defer cancel()
	err := checker.pinger.Ping(probeCtx)

	checker.mu.Lock()
	changed := checker.healthy != (err == nil)
	checker.healthy = err == nil
	checker.lastErr = err
	checker.mu.Unlock()

	if err != nil {
		checker.publish(healthpb.HealthCheckResponse_NOT_SERVING)
		if changed {
			checker.logger.Warn("database unreachable", zap.Error(err))
		}
		return err
	}
	checker.publish(healthpb.HealthCheckResponse_SERVING)
	if changed {
		checker.logger.Info("database reachable")
	}
	return nil
}

// Run probes immediately and then on every interval until ctx is done.
func (checker *Checker) Run(ctx context.Context) error {
	_ = checker.Probe(ctx)
	ticker := time.NewTicker(checker.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			checker.server.Shutdown()
			return nil
		case <-ticker.C:
			_ = checker.Probe(ctx)
		}
	}
}

// Healthy reports the outcome of the last probe.
func (checker *Checker) Healthy() bool {
	checker.mu.RLock()
	defer checker.mu.RUnlock()
	return checker.healthy
}

// LastError returns the error of the last failed probe, if any.
func (checker *Checker) LastError() error {
	checker.mu.RLock()
	defer checker.mu.RUnlock()
	return checker.lastErr
}

// Register attaches the health service to server.
func (checker *Checker) Register(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, checker.server)
}

// Serve runs a gRPC server carrying only the health service until ctx is
// done, then stops it gracefully.
func (checker *Checker) Serve(ctx context.Context, listener net.Listener) error {
	grpcServer := grpc.NewServer()
	checker.Register(grpcServer)

	errCh := make(chan error, 1)
	go func() {
		checker.logger.Info("gRPC health server starting", zap.String("listen_addr", listener.Addr().String()))
		errCh <- grpcServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		grpcServer.GracefulStop()
		if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			return serveErr
		}
		return nil
	case serveErr := <-errCh:
		if errors.Is(serveErr, grpc.ErrServerStopped) {
			return nil
		}
		return serveErr
	}
}

// GinHandler answers HTTP liveness probes from the last probe result.
func (checker *Checker) GinHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !checker.Healthy() {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func (checker *Checker) publish(status healthpb.HealthCheckResponse_ServingStatus) {
	checker.server.SetServingStatus("", status)
	checker.server.SetServingStatus(ServiceName, status)
}
