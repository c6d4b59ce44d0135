package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JonMunkholm/pricemerge/internal/catalog"
	"github.com/JonMunkholm/pricemerge/internal/logging"
	"github.com/JonMunkholm/pricemerge/internal/metrics"
	"github.com/JonMunkholm/pricemerge/internal/rates"
	"github.com/JonMunkholm/pricemerge/internal/source"
)

// Pipeline builds a catalog end to end: source discovery, rate resolution
// and the merge run. A Pipeline holds no state between builds and may be
// reused.
type Pipeline struct {
	// DataDir and Patterns drive the directory scan. ManifestPath, when set,
	// replaces the scan with an explicit source list.
	DataDir      string
	Patterns     []string
	ManifestPath string

	ReferenceCurrency string
	Rates             rates.Provider

	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Result is everything a build produced.
type Result struct {
	Snapshot catalog.Snapshot
	Report   *Report
	Sources  []source.Source
	Rates    catalog.RateTable
}

// Manufacturers returns the distinct manufacturers known to the build, from
// source names and product records, sorted.
func (r *Result) Manufacturers() []string {
	all := append([]source.Source(nil), r.Sources...)
	for _, p := range r.Snapshot.Products {
		all = append(all, source.Source{Manufacturer: p.Manufacturer})
	}
	return source.Manufacturers(all)
}

// Sources lists the price lists the pipeline would read.
// Non-fatal problems (badly named files) are returned as warnings.
func (p *Pipeline) Sources() ([]source.Source, []error, error) {
	if p.ManifestPath != "" {
		sources, err := source.LoadManifest(p.ManifestPath)
		if err != nil {
			return nil, nil, err
		}
		if len(sources) == 0 {
			return nil, nil, fmt.Errorf("%w in manifest %s", catalog.ErrNoSources, p.ManifestPath)
		}
		return sources, nil, nil
	}
	return source.Discover(p.DataDir, p.Patterns)
}

// Build runs one complete catalog build.
//
// Fatal conditions (missing data directory, no sources, an unreadable
// manifest, cancellation) return an error. A failed rate fetch is not fatal:
// built-in rates are used and the condition is recorded in the report.
func (p *Pipeline) Build(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.Enrich(ctx, p.Logger)

	diags := &catalog.Diagnostics{}

	sources, warnings, err := p.Sources()
	for _, w := range warnings {
		d := diags.Record("", 0, w)
		p.Metrics.Diagnostic(d.Code)
		logger.Warn("file ignored", "code", d.Code, "error", w)
	}
	if err != nil {
		return nil, err
	}

	table, rateErr := rates.Resolve(ctx, p.Rates, p.ReferenceCurrency)
	providerName := "static"
	if p.Rates != nil {
		providerName = p.Rates.Name()
	}
	p.Metrics.RateFetch(providerName, rateErr == nil)
	if rateErr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("build cancelled: %w", ctx.Err())
		}
		d := diags.Record("", 0, rateErr)
		p.Metrics.Diagnostic(d.Code)
		logger.Warn("using built-in exchange rates", "code", d.Code, "error", rateErr)
	}

	snap, report, err := Run(ctx, sources, Options{
		ReferenceCurrency: p.ReferenceCurrency,
		Rates:             table,
		Diagnostics:       diags,
		Metrics:           p.Metrics,
		Logger:            p.Logger,
	})
	if err != nil {
		return nil, err
	}
	report.RateProvider = providerName
	report.RatesFellBack = rateErr != nil

	return &Result{
		Snapshot: snap,
		Report:   report,
		Sources:  sources,
		Rates:    table,
	}, nil
}
