package catalog

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// RateTable maps a currency code to the factor converting one unit of the
// reference currency into that currency (reference -> foreign).
type RateTable map[string]float64

// NormalizeCode trims and upper-cases a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Rate returns the usable rate for code. Zero, negative and missing rates are
// reported as unavailable.
func (t RateTable) Rate(code string) (float64, bool) {
	r, ok := t[NormalizeCode(code)]
	if !ok || r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

// Codes returns the currency codes in the table, sorted.
func (t RateTable) Codes() []string {
	codes := make([]string, 0, len(t))
	for c := range t {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Clone returns an independent copy of the table.
func (t RateTable) Clone() RateTable {
	out := make(RateTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ToReference converts price from currency code into the reference currency.
//
// A price already in the reference currency is returned unchanged. Otherwise
// the price is divided by the table rate and rounded to two decimals. When no
// usable rate exists the original price is returned together with an error
// wrapping ErrRateUnavailable; the price is never zeroed.
func ToReference(price float64, code, reference string, table RateTable) (float64, error) {
	code = NormalizeCode(code)
	reference = NormalizeCode(reference)
	if code == "" || code == reference {
		return price, nil
	}

	rate, ok := table.Rate(code)
	if !ok {
		return price, fmt.Errorf("%w: %s -> %s", ErrRateUnavailable, code, reference)
	}
	return Round2(price / rate), nil
}
