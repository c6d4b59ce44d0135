// Package source finds supplier price lists and reads them into raw records.
//
// Sources come either from an explicit YAML manifest or from a directory
// scan. CSV files are decoded as UTF-8 first and re-read as ISO-8859-1 when
// the primary pass hits an invalid byte sequence. XLSX files are read with
// excelize and never need a fallback.
package source

import (
	"path/filepath"
	"strings"
)

// Source is one supplier price-list file.
type Source struct {
	Supplier     string `json:"supplier" yaml:"supplier"`
	Manufacturer string `json:"manufacturer" yaml:"manufacturer"`
	Path         string `json:"path" yaml:"path"`
}

// Name returns the file name of the source.
func (s Source) Name() string {
	return filepath.Base(s.Path)
}

// Format returns the lower-cased file extension without the dot.
func (s Source) Format() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(s.Path)), ".")
}
