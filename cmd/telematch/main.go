package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/telematch-lab/telematch/internal/aggregation"
	"github.com/telematch-lab/telematch/internal/alerting"
	"github.com/telematch-lab/telematch/internal/core/config"
	"github.com/telematch-lab/telematch/internal/core/storage/postgres"
	"github.com/telematch-lab/telematch/internal/ingestion"
	"github.com/telematch-lab/telematch/internal/migrations"
	"github.com/telematch-lab/telematch/internal/query"
	"github.com/telematch-lab/telematch/internal/server"
	"github.com/telematch-lab/telematch/internal/streaming"
)

func main() {
	configPath := flag.String("config", "telematch.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration (includes alert rule preloading)
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"preloaded_rules", len(cfg.PreloadedRules),
	)

	// 2. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// 3. Initialize Alerting (registry + evaluator + stream hub)
	registry := alerting.NewRegistry()
	for _, rule := range cfg.PreloadedRules {
		registry.Register(rule)
	}
	hub := streaming.NewHub(cfg.Alerting.ChannelBufferSize)
	alertingSvc := alerting.NewService(registry, hub)

	// 4. Initialize Ingestion (stored events feed alert evaluation)
	ingestionSvc := ingestion.NewService(dbAdapter, alertingSvc, cfg.Server.MaxBodySizeMB)

	// 5. Initialize Query (read API + bucketed aggregation)
	engine := aggregation.NewEngine(dbAdapter)
	querySvc := query.NewService(dbAdapter, engine, cfg.Query.DefaultLimit, cfg.Query.MaxLimit)

	// 6. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter.DB(), cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)
	alertingSvc.RegisterRoutes(srv.Engine)
	querySvc.RegisterRoutes(srv.Engine)

	// 7. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
