// Package ingest drives a catalog build: sources are read, rows normalized
// and merged, and every recoverable condition is collected into a report.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/pricemerge/internal/catalog"
	"github.com/JonMunkholm/pricemerge/internal/logging"
	"github.com/JonMunkholm/pricemerge/internal/metrics"
	"github.com/JonMunkholm/pricemerge/internal/source"
)

// ContextCheckInterval is how many rows are merged between cancellation checks.
const ContextCheckInterval = 1000

// Options configures a single Run.
type Options struct {
	ReferenceCurrency string
	Rates             catalog.RateTable

	// Diagnostics receives every recorded condition. When nil a fresh list
	// is used. Passing one in lets discovery and rate warnings land in the
	// same report.
	Diagnostics *catalog.Diagnostics

	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// pendingRow is a normalized row waiting for its source to be committed.
type pendingRow struct {
	line int
	row  catalog.Row
}

// Run merges sources, in order, into a fresh catalog.
//
// Per-row and per-source problems never stop the run; they are recorded in
// the report. A source is committed only after its whole file decoded, so a
// failed file contributes neither offers nor a supplier entry. Returns
// ErrNoSources when no source could be committed.
func Run(ctx context.Context, sources []source.Source, opts Options) (catalog.Snapshot, *Report, error) {
	start := time.Now()
	runID := logging.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logging.WithRunID(ctx, runID)
	}
	logger := logging.Enrich(ctx, opts.Logger)

	diags := opts.Diagnostics
	if diags == nil {
		diags = &catalog.Diagnostics{}
	}

	merger := catalog.NewMerger(opts.ReferenceCurrency, opts.Rates)
	report := &Report{
		RunID:             runID,
		StartedAt:         start,
		ReferenceCurrency: merger.Reference(),
		Sources:           make([]SourceReport, 0, len(sources)),
	}

	record := func(file string, line int, err error) {
		d := diags.Record(file, line, err)
		opts.Metrics.Diagnostic(d.Code)
	}

	logger.Info("catalog build started", "sources", len(sources), "reference_currency", merger.Reference())

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return catalog.Snapshot{}, nil, fmt.Errorf("build cancelled: %w", err)
		}

		sr := SourceReport{
			Supplier:     src.Supplier,
			Manufacturer: src.Manufacturer,
			File:         src.Name(),
		}
		srcLogger := logger.With("supplier", src.Supplier, "file", src.Name())

		res, err := source.Load(src)
		if err != nil {
			sr.Error = err.Error()
			record(src.Name(), 0, err)
			opts.Metrics.SourceProcessed(metrics.SourceSkipped)
			srcLogger.Warn("source skipped", "code", catalog.MapError(err).Code, "error", err)
			report.Sources = append(report.Sources, sr)
			continue
		}

		sr.Encoding = res.Encoding
		sr.FellBack = res.FellBack
		sr.Bytes = res.Bytes
		sr.Records = len(res.Records)
		if res.FellBack {
			srcLogger.Warn("utf-8 decode failed, re-read with fallback encoding",
				"encoding", res.Encoding,
				"error", res.PrimaryErr,
			)
		}

		// Normalize the whole file before touching the merger.
		pending := make([]pendingRow, 0, len(res.Records))
		for _, rec := range res.Records {
			row, err := catalog.NormalizeRow(rec.Fields, src.Manufacturer)
			if err != nil {
				sr.Skipped++
				record(src.Name(), rec.Line, err)
				continue
			}
			pending = append(pending, pendingRow{line: rec.Line, row: row})
		}

		merger.AddSupplier(src.Supplier)
		for i, p := range pending {
			if i%ContextCheckInterval == 0 && ctx.Err() != nil {
				return catalog.Snapshot{}, nil, fmt.Errorf("build cancelled: %w", ctx.Err())
			}
			warnings, err := merger.Add(src.Supplier, p.row)
			if err != nil {
				sr.Skipped++
				record(src.Name(), p.line, err)
				continue
			}
			sr.Merged++
			for _, w := range warnings {
				sr.Warnings++
				record(src.Name(), p.line, w)
			}
		}
		sr.Committed = true

		outcome := metrics.SourceCommitted
		if res.FellBack {
			outcome = metrics.SourceFallback
		}
		opts.Metrics.SourceProcessed(outcome)
		opts.Metrics.RowsProcessed(metrics.RowMerged, sr.Merged)
		opts.Metrics.RowsProcessed(metrics.RowSkipped, sr.Skipped)

		srcLogger.Info("source merged",
			"encoding", sr.Encoding,
			"records", sr.Records,
			"merged", sr.Merged,
			"skipped", sr.Skipped,
			"warnings", sr.Warnings,
		)
		report.Sources = append(report.Sources, sr)
	}

	snap := merger.Snapshot()
	report.Duration = time.Since(start)
	report.Suppliers = len(snap.Suppliers)
	report.Products = len(snap.Products)
	report.Offers = snap.OfferCount()
	report.Diagnostics = diags.Entries()
	report.Counts = diags.Counts()

	if report.Committed() == 0 {
		err := fmt.Errorf("%w: none of %d sources could be read", catalog.ErrNoSources, len(sources))
		record("", 0, err)
		report.Diagnostics = diags.Entries()
		report.Counts = diags.Counts()
		return snap, report, err
	}

	opts.Metrics.BuildFinished(report.Duration, report.Suppliers, report.Products, report.Offers)
	logger.Info("catalog build finished",
		"suppliers", report.Suppliers,
		"products", report.Products,
		"offers", report.Offers,
		"diagnostics", len(report.Diagnostics),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return snap, report, nil
}
