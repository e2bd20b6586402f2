// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/gurkanbulca/kanboard/internal/api"
	"github.com/gurkanbulca/kanboard/internal/app"
	"github.com/gurkanbulca/kanboard/internal/config"
	"github.com/gurkanbulca/kanboard/internal/service"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	board, err := app.Build(ctx, cfg, cfg.Server.AutoMigrate, logger)
	if err != nil {
		log.Fatalf("Failed to assemble board: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           api.New(board.Service, board.Auth, logger).Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	if cfg.IsDevelopment() {
		reflection.Register(grpcServer)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Server.GRPCPort))
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}

	go func() {
		logger.Info("grpc health server listening", "port", cfg.Server.GRPCPort)
		if err := grpcServer.Serve(listener); err != nil {
			logger.Error("grpc server stopped", "error", err)
		}
	}()
	go func() {
		logger.Info("http server listening", "port", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve http: %v", err)
		}
	}()

	jobsDone := make(chan struct{})
	go func() {
		defer close(jobsDone)
		startOverdueRefreshJob(ctx, board.Service, cfg.Board.OverdueRefreshInterval, logger)
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"kanboard": func(ctx context.Context) error {
				logger.Info("shutting down")
				healthServer.Shutdown()
				err := httpServer.Shutdown(ctx)
				grpcServer.GracefulStop()
				cancelJobs()
				<-jobsDone
				return errors.Join(err, board.Close())
			},
		},
	)

	exitCode := <-wait
	logger.Info("server exited", "code", exitCode)
	os.Exit(exitCode)
}

// startOverdueRefreshJob recomputes overdue counters on a fixed interval
// until ctx is done. A zero interval disables the job.
func startOverdueRefreshJob(ctx context.Context, board *service.BoardService, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		logger.Info("overdue refresh job disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("overdue refresh job started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := board.RefreshOverdue(ctx)
			if err != nil {
				logger.Error("overdue refresh failed", "error", err)
				continue
			}
			logger.Debug("overdue refresh completed", "projects_changed", n)
		}
	}
}

// loggingInterceptor logs incoming gRPC requests
func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Error("grpc call failed", "method", info.FullMethod, "duration", time.Since(start), "error", err)
			return resp, err
		}
		logger.Debug("grpc call", "method", info.FullMethod, "duration", time.Since(start))
		return resp, err
	}
}
