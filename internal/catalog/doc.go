// Package catalog merges supplier price-list rows into one product catalog.
//
// This package is the heart of the merger, containing all domain logic
// independent of file formats, rate providers and output sinks. It can be
// driven by the batch CLI, the HTTP server or tests without modification.
//
// # Architecture
//
// The package is organized around four steps applied to every row:
//
//   - Row normalization: [NormalizeRow] trims field names and maps the fixed
//     supplier schema onto a [Row].
//   - Price parsing: [ParsePrice] turns the raw price text into a number and a
//     [PriceStatus].
//   - Currency normalization: [ToReference] converts a price into the
//     reference currency using a [RateTable].
//   - Merging: a [Merger] folds rows into products with a first-wins fill
//     policy and appends one [Offer] per row.
//
// # Merging
//
// A product is created the first time its item number is seen. Later rows for
// the same item number only fill descriptive fields that are still empty, and
// always append an offer:
//
//	m := catalog.NewMerger("USD", rates)
//	m.AddSupplier("MRS")
//	warnings, err := m.Add("MRS", row)
//	snap := m.Snapshot()
//
// # Error Handling
//
// Per-row and per-source conditions are never fatal. They are reported as
// sentinel errors ([ErrSkippedRow], [ErrPriceParse], [ErrRateUnavailable], ...)
// and collected into [Diagnostics], each tagged with a short code from
// [MapError] for support reference.
package catalog
