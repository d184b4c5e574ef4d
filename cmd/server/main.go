package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/advisorhub/internal/app"
	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/internal/infrastructure/consumers"
	"github.com/turtacn/advisorhub/internal/infrastructure/monitoring"
	"github.com/turtacn/advisorhub/internal/infrastructure/persistence/postgres"
	grpcserver "github.com/turtacn/advisorhub/internal/interfaces/grpc"
	httpserver "github.com/turtacn/advisorhub/internal/interfaces/http"
	"github.com/turtacn/advisorhub/internal/interfaces/http/handlers"
	"github.com/turtacn/advisorhub/pkg/logger"
)

func main() {
	var configFile string
	cmd := &cobra.Command{
		Use:           "advisorhub-server",
		Short:         "Runs the AdvisorHub REST and gRPC API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", os.Getenv("ADVISORHUB_CONFIG"), "path to config.yaml")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "advisorhub-server:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string) error {
	// 1. Configuration and logging
	startupLogger, _ := monitoring.NewZapLogger(&config.LogConfig{Level: "info"})
	cfg, vault, err := app.LoadConfig(ctx, configFile, startupLogger)
	if err != nil {
		return err
	}
	appLogger, level := monitoring.NewZapLogger(&cfg.Log)
	cfg.Watch(func(fresh *config.Config) {
		if err := level.Set(fresh.Log.Level); err != nil {
			appLogger.Warn(ctx, "Ignoring log level change", logger.Err(err))
			return
		}
		appLogger.Info(ctx, "Log level changed", logger.String("level", level.String()))
	})

	// 2. Tracing
	tracing, err := monitoring.NewTracingManager(cfg, appLogger)
	if err != nil {
		return err
	}

	// 3. Dependencies and services
	c, err := app.New(ctx, cfg, vault, appLogger)
	if err != nil {
		return err
	}
	defer c.Close()

	checks := map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error { return postgres.Ping(ctx, c.DB) },
		"redis":    c.Redis.Ping,
	}
	if c.Vault != nil {
		checks["vault"] = c.Vault.Health
	}

	// 4. HTTP surface
	router := httpserver.NewRouter(cfg, appLogger, &httpserver.Handlers{
		Health:     handlers.NewHealthHandler(checks, appLogger),
		Auth:       handlers.NewAuthHandler(c.Services.Identity),
		Firm:       handlers.NewFirmHandler(c.Services.Firm),
		Client:     handlers.NewClientHandler(c.Services.Client),
		Engagement: handlers.NewEngagementHandler(c.Services.Engagement),
		Document:   handlers.NewDocumentHandler(c.Services.Document),
		Report:     handlers.NewReportHandler(c.Services.BBA),
		Workbook:   handlers.NewWorkbookHandler(c.Services.Workbook),
		Audit:      handlers.NewAuditHandler(c.Services.Audit),
	}, &httpserver.Dependencies{
		Tokens:      c.Tokens,
		Blacklist:   c.Blacklist,
		RateLimiter: c.RateLimiter,
		Idempotency: c.Idempotency,
		Metrics:     c.Metrics,
		Tracer:      tracing.Tracer(),
	})

	// 5. gRPC surface
	grpcSrv := grpcserver.NewServer(
		c.Services.BBA,
		grpcserver.NewInterceptorChain(appLogger, c.Tokens, c.Blacklist, c.RateLimiter),
		appLogger,
	)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr())
	if err != nil {
		return fmt.Errorf("listen for gRPC: %w", err)
	}

	// 6. Serve until a signal arrives or a server fails
	g, gctx := errgroup.WithContext(ctx)
	g.Go(router.Start)
	g.Go(func() error { return grpcSrv.Serve(lis) })
	if cfg.Kafka.Enabled {
		consumer := consumers.NewSubscriptionConsumer(&cfg.Kafka, c.Subscriptions, appLogger)
		g.Go(func() error { return consumer.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info(context.Background(), "Shutting down", logger.Duration("timeout", cfg.Server.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		grpcSrv.Stop(shutdownCtx)
		err := router.Stop(shutdownCtx)
		if tErr := tracing.Shutdown(shutdownCtx); tErr != nil {
			appLogger.Warn(shutdownCtx, "Tracing shutdown failed", logger.Err(tErr))
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error(context.Background(), "Server stopped with error", err)
		return err
	}
	appLogger.Info(context.Background(), "Server stopped")
	return nil
}

//Personal.AI order the ending
