package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JonMunkholm/pricemerge/internal/catalog"
)

// DefaultPatterns are the glob patterns scanned when none are configured.
var DefaultPatterns = []string{"*.csv", "*.xlsx"}

// ParseFileName splits a file name of the form <supplier>_<manufacturer>.<ext>.
//
// The supplier is the token before the first underscore and the manufacturer
// is the second token with the extension removed. Any further tokens are
// ignored. Names without both tokens return ErrSourceNameInvalid.
func ParseFileName(name string) (supplier, manufacturer string, err error) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	parts := strings.Split(stem, "_")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("%w: %s", catalog.ErrSourceNameInvalid, base)
	}
	supplier = strings.TrimSpace(parts[0])
	manufacturer = strings.TrimSpace(parts[1])
	if supplier == "" || manufacturer == "" {
		return "", "", fmt.Errorf("%w: %s", catalog.ErrSourceNameInvalid, base)
	}
	return supplier, manufacturer, nil
}

// Discover scans dir for files matching patterns and returns them sorted by
// file name.
//
// Files whose names do not follow the naming contract are skipped and
// reported in warnings. A missing directory returns ErrSourceDirMissing and
// an empty result returns ErrNoSources.
func Discover(dir string, patterns []string) ([]Source, []error, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", catalog.ErrSourceDirMissing, dir)
		}
		return nil, nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", catalog.ErrSourceDirMissing, dir)
	}

	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
				paths = append(paths, m)
			}
		}
	}
	sort.Slice(paths, func(i, j int) bool {
		return filepath.Base(paths[i]) < filepath.Base(paths[j])
	})

	var (
		sources  []Source
		warnings []error
	)
	for _, p := range paths {
		supplier, manufacturer, err := ParseFileName(p)
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		sources = append(sources, Source{
			Supplier:     supplier,
			Manufacturer: manufacturer,
			Path:         p,
		})
	}

	if len(sources) == 0 {
		return nil, warnings, fmt.Errorf("%w in %s", catalog.ErrNoSources, dir)
	}
	return sources, warnings, nil
}

// Manufacturers returns the distinct manufacturer tokens of sources, sorted.
func Manufacturers(sources []Source) []string {
	set := make(map[string]struct{})
	for _, s := range sources {
		if s.Manufacturer != "" {
			set[s.Manufacturer] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
