// Command pricemerge builds the merged supplier catalog once and writes it
// to the configured outputs.
//
// It exits 0 on success and 1 when configuration is invalid, the data
// directory is missing, no source could be merged, or an output failed.
// Logs always go to stderr so stream mode keeps stdout clean.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/pricemerge/internal/app"
	"github.com/JonMunkholm/pricemerge/internal/catalog"
	"github.com/JonMunkholm/pricemerge/internal/config"
	"github.com/JonMunkholm/pricemerge/internal/logging"
	"github.com/JonMunkholm/pricemerge/internal/output"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, stdout, stderr io.Writer) int {
	// A missing .env file is normal; real environment variables win.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", "text", stderr).Error("failed to load configuration", "error", err)
		return 1
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, stderr)
	if envErr == nil {
		logger.Debug("loaded .env file")
	}
	logger.Debug("configuration loaded", "config", cfg.String())

	var sinks []output.Sink
	if cfg.Database.Enabled() {
		pool, err := app.OpenPool(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("database unavailable", "error", err)
			return 1
		}
		defer pool.Close()
		sinks = app.CLISinks(cfg.Output, stdout, pool)
	} else {
		sinks = app.CLISinks(cfg.Output, stdout, nil)
	}

	pipeline := app.NewPipeline(cfg.Catalog, app.RateProvider(cfg.Rates), nil, logger)
	res, err := pipeline.Build(ctx)
	if err != nil {
		logFatal(logger, "catalog build failed", err)
		return 1
	}

	if err := output.WriteAll(ctx, res.Snapshot, sinks...); err != nil {
		logFatal(logger, "catalog output failed", err)
		return 1
	}

	rep := res.Report
	logger.Info("catalog written",
		"run_id", rep.RunID,
		"sources", len(rep.Sources),
		"committed", rep.Committed(),
		"suppliers", rep.Suppliers,
		"products", rep.Products,
		"offers", rep.Offers,
		"diagnostics", len(rep.Diagnostics),
		"rates_fell_back", rep.RatesFellBack,
		"duration", rep.Duration,
	)
	return 0
}

func logFatal(logger *slog.Logger, msg string, err error) {
	um := catalog.MapError(err)
	logger.Error(msg,
		"code", um.Code,
		"message", um.Message,
		"action", um.Action,
		"error", err,
	)
}
