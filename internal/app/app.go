// Package app assembles the catalog components from configuration. Both
// the batch command and the HTTP server are built from these pieces.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/pricemerge/internal/config"
	"github.com/JonMunkholm/pricemerge/internal/ingest"
	"github.com/JonMunkholm/pricemerge/internal/metrics"
	"github.com/JonMunkholm/pricemerge/internal/output"
	"github.com/JonMunkholm/pricemerge/internal/rates"
)

// RateProvider returns the provider selected by RATES_MODE.
func RateProvider(cfg config.RatesConfig) rates.Provider {
	if strings.EqualFold(cfg.Mode, "live") {
		return rates.NewHTTPProvider(cfg.URL, cfg.Timeout)
	}
	return rates.Static{}
}

// NewPipeline builds a catalog pipeline from the catalog settings.
func NewPipeline(cfg config.CatalogConfig, p rates.Provider, m *metrics.Collector, logger *slog.Logger) *ingest.Pipeline {
	return &ingest.Pipeline{
		DataDir:           cfg.DataDir,
		Patterns:          cfg.Patterns,
		ManifestPath:      cfg.SourcesFile,
		ReferenceCurrency: strings.ToUpper(strings.TrimSpace(cfg.ReferenceCurrency)),
		Rates:             p,
		Metrics:           m,
		Logger:            logger,
	}
}

// OpenPool connects to PostgreSQL and verifies the connection.
func OpenPool(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		logger.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		logger.Info("connected to database")
	}
	return pool, nil
}

// PersistSinks returns the optional database sinks: SQLite when a path is
// configured, PostgreSQL when pool is non-nil.
func PersistSinks(cfg config.OutputConfig, pool *pgxpool.Pool) []output.Sink {
	var sinks []output.Sink
	if cfg.SQLitePath != "" {
		sinks = append(sinks, &output.SQLiteSink{Path: cfg.SQLitePath})
	}
	if pool != nil {
		sinks = append(sinks, &output.PostgresSink{Pool: pool})
	}
	return sinks
}

// CLISinks returns the primary sink selected by OUTPUT_MODE followed by the
// persistence sinks. stdout receives the stream in stream mode.
func CLISinks(cfg config.OutputConfig, stdout io.Writer, pool *pgxpool.Pool) []output.Sink {
	var primary output.Sink
	if strings.EqualFold(cfg.Mode, "stream") {
		primary = &output.StreamSink{W: stdout, Delimiter: cfg.Delimiter, Pretty: cfg.Pretty}
	} else {
		primary = &output.FileSink{Path: cfg.Path, Pretty: cfg.Pretty}
	}
	return append([]output.Sink{primary}, PersistSinks(cfg, pool)...)
}
