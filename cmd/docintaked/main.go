// Package main runs the docintake daemon: the task orchestrator and its
// worker pool, backed by Postgres for tasks and SQLite for the response
// cache, with a gRPC health endpoint for probes.
package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/docintake/internal/cache"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/extract"
	"github.com/joseph-ayodele/docintake/internal/gateway"
	"github.com/joseph-ayodele/docintake/internal/inference/openai"
	"github.com/joseph-ayodele/docintake/internal/mapping"
	"github.com/joseph-ayodele/docintake/internal/pipeline"
	"github.com/joseph-ayodele/docintake/internal/ratelimit"
	"github.com/joseph-ayodele/docintake/internal/retry"
	"github.com/joseph-ayodele/docintake/internal/review"
	"github.com/joseph-ayodele/docintake/internal/task"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Task store
	pool, err := task.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("creating DB pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := task.HealthCheck(ctx, pool, cfg.Database.DialTimeout); err != nil {
		logger.Error("DB health failed", "error", err)
		os.Exit(1)
	}
	logger.Info("DB health OK")

	// Response cache
	store, err := cache.NewSQLiteStore(cfg.Cache.Path, logger)
	if err != nil {
		logger.Error("opening cache store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("cache close error", "error", err)
		}
	}()

	// Inference gateway
	client := openai.NewClient(openai.Config{
		APIKey:      cfg.Inference.APIKey,
		BaseURL:     cfg.Inference.BaseURL,
		Model:       cfg.Inference.Model,
		Temperature: cfg.Inference.Temperature,
		Timeout:     cfg.Inference.Timeout,
	}, logger)
	limiter := ratelimit.NewLimiter(cfg.RateLimit.Ceiling, cfg.RateLimit.Window)
	policy := retry.Policy{MaxAttempts: cfg.Inference.MaxRetries, BaseDelay: cfg.Inference.RetryBase}
	gw := gateway.New(client, store, limiter, policy, cfg.Cache.TTL, logger)

	// Pipeline
	engine := extract.NewEngine(gw, logger)
	mapper := mapping.NewMapper(gw, logger)
	reviews := review.NewService(review.NewPostgresCommitter(pool, logger), logger)
	processor := pipeline.NewProcessor(engine, mapper, reviews, logger)

	orchestrator, err := task.NewOrchestrator(
		task.NewPostgresRepository(pool, logger),
		logger,
		task.WithPoolSize(cfg.Worker.PoolSize),
		task.WithTaskTimeout(cfg.Worker.TaskTimeout),
	)
	if err != nil {
		logger.Error("creating orchestrator", "error", err)
		os.Exit(1)
	}
	processor.Register(orchestrator)

	if resumed, err := orchestrator.ResumePending(ctx); err != nil {
		logger.Warn("resuming pending tasks failed", "error", err)
	} else if resumed > 0 {
		logger.Info("resumed pending tasks", "count", resumed)
	}

	// gRPC health surface for probes, reflection for grpcurl
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("listen", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	logger.Info("gRPC serving", "addr", cfg.Server.GRPCAddr)

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	grpcServer.GracefulStop()

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	orchestrator.Shutdown(drainCtx)
	logger.Info("stopped")
}
