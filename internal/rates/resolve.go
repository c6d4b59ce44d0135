package rates

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/pricemerge/internal/catalog"
)

// Resolve returns a usable rate table for base from p.
//
// The table always contains base -> 1. Built-in rates fill every code the
// provider did not return (or returned as unusable). When the provider fails
// the built-in table is returned together with an error wrapping
// ErrRateFetch; callers log it and carry on.
func Resolve(ctx context.Context, p Provider, base string) (catalog.RateTable, error) {
	base = catalog.NormalizeCode(base)
	table := Defaults(base)
	if p == nil {
		return table, nil
	}

	fetched, err := p.Rates(ctx, base)
	if err != nil {
		return table, fmt.Errorf("%w: %s provider: %v", catalog.ErrRateFetch, p.Name(), err)
	}

	for code := range fetched {
		if r, ok := fetched.Rate(code); ok {
			table[catalog.NormalizeCode(code)] = r
		}
	}
	table[base] = 1
	return table, nil
}
