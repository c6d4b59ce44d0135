package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// Manifest is the YAML document listing sources explicitly:
//
//	sources:
//	  - supplier: MRS
//	    manufacturer: Thermo
//	    path: prices/mrs-thermo-2024.csv
type Manifest struct {
	Sources []Source `yaml:"sources"`
}

// LoadManifest reads the manifest at path and returns its sources in the
// listed order.
//
// Relative source paths are resolved against the manifest's directory. An
// entry without a manufacturer takes it from its file name when the name
// follows the <supplier>_<manufacturer>.<ext> contract.
func LoadManifest(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	var errs []error
	sources := make([]Source, 0, len(m.Sources))
	for i, s := range m.Sources {
		s.Supplier = strings.TrimSpace(s.Supplier)
		s.Manufacturer = strings.TrimSpace(s.Manufacturer)
		s.Path = strings.TrimSpace(s.Path)

		if s.Supplier == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: supplier is required", i))
		}
		if s.Path == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: path is required", i))
			continue
		}
		if !filepath.IsAbs(s.Path) {
			s.Path = filepath.Join(base, s.Path)
		}
		if s.Manufacturer == "" {
			if _, mfr, err := ParseFileName(s.Path); err == nil {
				s.Manufacturer = mfr
			}
		}
		sources = append(sources, s)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("manifest %s: %w", path, errors.Join(errs...))
	}
	return sources, nil
}
