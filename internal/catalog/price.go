package catalog

// price.go converts supplier price text to numbers.
//
// Supplier exports are messy: thousands separators, blank cells, "N/A",
// "call for price". Parsing never fails hard; callers get a usable number
// plus a PriceStatus telling "no price" apart from "bad price".

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a plain decimal after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ParsePrice converts raw price text to a non-negative number.
//
//   - "" (or whitespace) returns 0 with PriceEmpty
//   - thousands separators (",") are stripped before parsing
//   - anything that is not a non-negative decimal returns 0 with PriceInvalid
func ParsePrice(s string) (float64, PriceStatus) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, PriceEmpty
	}

	s = strings.ReplaceAll(s, ",", "")
	if !numericRegex.MatchString(s) {
		return 0, PriceInvalid
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) {
		return 0, PriceInvalid
	}
	return v, PriceOK
}
