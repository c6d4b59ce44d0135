// Package rates provides the exchange-rate tables used to normalize offer
// prices: a built-in static matrix, a live HTTP provider, the fallback
// policy combining the two, and a TTL cache for long-running processes.
package rates

import "github.com/JonMunkholm/pricemerge/internal/catalog"

// builtin holds reference -> foreign rates for the currencies suppliers
// quote in. Each inner table maps one unit of the base into the other codes.
var builtin = map[string]catalog.RateTable{
	"USD": {"USD": 1, "EUR": 0.92, "GBP": 0.78, "TRY": 32.5, "CNY": 7.2},
	"EUR": {"USD": 1.09, "EUR": 1, "GBP": 0.85, "TRY": 35.3, "CNY": 7.8},
	"GBP": {"USD": 1.28, "EUR": 1.18, "GBP": 1, "TRY": 41.5, "CNY": 9.1},
	"TRY": {"USD": 0.031, "EUR": 0.028, "GBP": 0.024, "TRY": 1, "CNY": 0.22},
	"CNY": {"USD": 0.14, "EUR": 0.13, "GBP": 0.11, "TRY": 4.5, "CNY": 1},
}

// Defaults returns a copy of the built-in table for base.
// A base outside the built-in matrix gets a table containing only itself.
func Defaults(base string) catalog.RateTable {
	base = catalog.NormalizeCode(base)
	table, ok := builtin[base]
	if !ok {
		return catalog.RateTable{base: 1}
	}
	out := table.Clone()
	out[base] = 1
	return out
}

// Bases returns the reference currencies with a built-in table.
func Bases() []string {
	t := make(catalog.RateTable, len(builtin))
	for code := range builtin {
		t[code] = 1
	}
	return t.Codes()
}
