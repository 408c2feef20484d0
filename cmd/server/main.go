// Package main is the entry point for the stockledger API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stockledger/internal/config"
	v1 "stockledger/internal/infrastructure/http/v1"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.App.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetDefault(log)

	ctx := context.Background()
	log.Infow("starting stockledger server", "version", version, "env", cfg.App.Env)

	// --- Database ---
	if cfg.Database.AutoMigrate {
		if err := migrate(ctx, cfg.Database.DSN); err != nil {
			log.Fatalw("failed to apply migrations", "error", err)
		}
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime
	poolCfg.ApplicationName = cfg.App.Name

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	checks := map[string]handlers.Pinger{"postgres": pool}

	// --- Services ---
	app, err := buildApp(ctx, cfg, pool)
	if err != nil {
		log.Fatalw("failed to wire services", "error", err)
	}
	defer func() { _ = app.Close(context.Background()) }()
	if app.redis != nil {
		checks["redis"] = redisPinger{app.redis}
	}

	variancePolicy, err := cfg.Variance.Detector()
	if err != nil {
		log.Fatalw("invalid variance policy", "error", err)
	}

	routerCfg := v1.RouterConfig{
		Logger:          log,
		Release:         !cfg.App.IsDevelopment(),
		AppName:         cfg.App.Name,
		Version:         version,
		HealthChecks:    checks,
		MaxBodySize:     cfg.HTTP.MaxBodySize,
		Variance:        variancePolicy,
		Periods:         app.periods,
		Deliveries:      app.deliveries,
		Issues:          app.issues,
		Transfers:       app.transfers,
		NCRs:            app.ncrs,
		Reconciliations: app.reconciliations,
		Stock:           app.stock,
		Catalog:         app.catalog,
	}
	if cfg.Idempotency.Enabled {
		routerCfg.Idempotency = postgres.NewIdempotencyStore(app.txManager, cfg.Idempotency.TTL)
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func migrate(ctx context.Context, dsn string) error {
	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up(ctx)
}
