package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/satlomas/station-ingest/internal/adapter/auditlog"
	httpadapter "github.com/satlomas/station-ingest/internal/adapter/http"
	mqttadapter "github.com/satlomas/station-ingest/internal/adapter/mqtt"
	"github.com/satlomas/station-ingest/internal/adapter/postgres"
	"github.com/satlomas/station-ingest/internal/config"
	"github.com/satlomas/station-ingest/internal/observability"
	"github.com/satlomas/station-ingest/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The store must be ready before any message can arrive: connect to
	// Postgres first, subscribe to the broker last.
	store, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	audit, err := auditlog.Open(cfg.AuditLogPath)
	if err != nil {
		logger.Error("failed to open audit log", "path", cfg.AuditLogPath, "error", err)
		os.Exit(1)
	}
	logger.Info("audit log open", "path", cfg.AuditLogPath)

	broker := mqttadapter.NewClient(cfg, logger)

	p := pipeline.New(
		broker.Messages(),
		cfg.StationCodeSource,
		store.Resolver(cfg.SiteLookup),
		audit,
		store,
		logger,
		metrics,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	logger.Info("connecting to broker", "url", cfg.MQTTURL, "client_id", cfg.MQTTClientID)
	if err := broker.Connect(ctx); err != nil {
		logger.Error("failed to connect to broker", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("caught termination signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	broker.Close()
	if err := audit.Close(); err != nil {
		logger.Error("audit log close error", "error", err)
	}
	store.Close()

	logger.Info("shutdown complete")
}
