// Package main is the entry point for the visitor portal.
// It loads configuration, opens the session storage, wires the visitor API
// client and serves the pages until interrupted.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tsedenia-Nega/Appointment-management/internal/backend"
	"github.com/Tsedenia-Nega/Appointment-management/internal/config"
	"github.com/Tsedenia-Nega/Appointment-management/internal/database"
	"github.com/Tsedenia-Nega/Appointment-management/internal/handlers"
	"github.com/Tsedenia-Nega/Appointment-management/internal/identity"
	"github.com/Tsedenia-Nega/Appointment-management/internal/middleware"
	"github.com/Tsedenia-Nega/Appointment-management/internal/security"
	"github.com/Tsedenia-Nega/Appointment-management/internal/server"
	"github.com/Tsedenia-Nega/Appointment-management/internal/sessionstore"
	"github.com/Tsedenia-Nega/Appointment-management/internal/telemetry"
	"github.com/Tsedenia-Nega/Appointment-management/internal/ws"
	"github.com/Tsedenia-Nega/Appointment-management/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured security logger
	logger := security.NewLogger()

	// Tracing of outbound API calls; exporter settings come from OTEL_* variables.
	shutdownTracing := telemetry.Setup(cfg.ServiceName)
	metrics := telemetry.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session storage: memory, postgres (with migrations) or redis.
	storage, err := sessionstore.Open(ctx, cfg, logger)
	if err != nil {
		logger.Critical("Failed to open session storage", err)
		os.Exit(1)
	}
	defer storage.Close()

	// Security configuration, with the session settings from the environment.
	secCfg := security.DefaultSecurityConfig()
	secCfg.SessionTimeout = cfg.SessionTimeout
	secCfg.SessionSecure = cfg.IsProduction()

	guard := middleware.NewSecurityMiddleware(logger, secCfg)
	defer guard.Stop()

	store := server.NewStore(secCfg, storage.Storage)
	hub := ws.NewHub(logger)
	provider := identity.NewProvider(store, identity.WithNotifier(hub))

	opts := []backend.Option{
		backend.WithRecorder(metrics),
		backend.WithRoleRetry(secCfg.RoleFetchAttempts, secCfg.RoleFetchBaseWait),
	}
	if cfg.BackendTimeout > 0 {
		opts = append(opts, backend.WithTimeout(cfg.BackendTimeout))
	}
	api := backend.New(cfg.BackendURL, opts...)

	var health func(context.Context) bool
	if storage.DB != nil {
		db := storage.DB
		health = func(ctx context.Context) bool { return database.Healthy(ctx, db) }
	}

	h := handlers.New(handlers.Deps{
		API:      api,
		Identity: provider,
		Logger:   logger,
		Security: guard,
		Config:   secCfg,
		Health:   health,
	})

	app := server.New(server.Options{
		Security: secCfg,
		Logger:   logger,
		Store:    store,
		Guard:    guard,
		Identity: provider,
		Handler:  h,
		Hub:      hub,
		Metrics:  metrics,
		Views:    web.NewEngine(cfg.TemplatesDir),
	})

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("Server shutdown", err)
		}
	}()

	logger.Info(fmt.Sprintf("Visitor portal listening on :%s (backend %s, sessions %s)",
		cfg.Port, cfg.BackendURL, cfg.SessionStorage))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Critical("Failed to start server", err)
	}

	tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(tctx); err != nil {
		logger.Error("Tracing shutdown", err)
	}
}
