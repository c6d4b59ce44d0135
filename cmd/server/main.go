package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/pricemerge/internal/app"
	"github.com/JonMunkholm/pricemerge/internal/catalog"
	"github.com/JonMunkholm/pricemerge/internal/config"
	"github.com/JonMunkholm/pricemerge/internal/logging"
	"github.com/JonMunkholm/pricemerge/internal/metrics"
	"github.com/JonMunkholm/pricemerge/internal/rates"
	"github.com/JonMunkholm/pricemerge/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)

	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"data_dir", cfg.Catalog.DataDir,
		"reference_currency", cfg.Catalog.ReferenceCurrency,
		"rates_mode", cfg.Rates.Mode,
		"database", cfg.Database.Enabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.Database.Enabled() {
		pool, err = app.OpenPool(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	}

	m := metrics.New()
	provider := rates.NewCache(app.RateProvider(cfg.Rates), cfg.Rates.CacheTTL)
	pipeline := app.NewPipeline(cfg.Catalog, provider, m, logger)

	opts := web.Options{
		Margin:         cfg.Rates.ProtectionMargin,
		RequestTimeout: cfg.Server.RequestTimeout,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TrustedProxies: cfg.Security.TrustedProxies,
		ReloadKeys:     cfg.Security.ReloadKeys,
		Sinks:          app.PersistSinks(cfg.Output, pool),
		Metrics:        m,
		Logger:         logger,
	}
	if cfg.Rate.Enabled {
		opts.RequestsPerMinute = cfg.Rate.RequestsPerMinute
		opts.ReloadPerMinute = cfg.Rate.ReloadLimit
	}
	server := web.NewServer(pipeline, opts)

	// Build the first catalog in the background; /healthz reports 503 until it lands.
	buildCtx, cancelBuild := context.WithCancel(ctx)
	go func() {
		if _, err := server.Reload(buildCtx); err != nil {
			um := catalog.MapError(err)
			logger.Error("initial catalog build failed",
				"code", um.Code,
				"action", um.Action,
				"error", err,
			)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")
		cancelBuild()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
