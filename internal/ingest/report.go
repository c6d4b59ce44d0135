package ingest

import (
	"time"

	"github.com/JonMunkholm/pricemerge/internal/catalog"
	"github.com/JonMunkholm/pricemerge/internal/source"
)

// SourceReport describes what happened to one price list during a run.
type SourceReport struct {
	Supplier     string          `json:"supplier"`
	Manufacturer string          `json:"manufacturer"`
	File         string          `json:"file"`
	Encoding     source.Encoding `json:"encoding,omitempty"`
	FellBack     bool            `json:"fellBack"`
	Bytes        int64           `json:"bytes"`
	Records      int             `json:"records"`
	Merged       int             `json:"merged"`
	Skipped      int             `json:"skipped"`
	Warnings     int             `json:"warnings"`
	Committed    bool            `json:"committed"`
	Error        string          `json:"error,omitempty"` // Non-empty if the source was skipped
}

// Report summarizes a catalog build.
type Report struct {
	RunID             string               `json:"runId"`
	StartedAt         time.Time            `json:"startedAt"`
	Duration          time.Duration        `json:"duration"`
	ReferenceCurrency string               `json:"referenceCurrency"`
	RateProvider      string               `json:"rateProvider,omitempty"`
	RatesFellBack     bool                 `json:"ratesFellBack"`
	Sources           []SourceReport       `json:"sources"`
	Suppliers         int                  `json:"suppliers"`
	Products          int                  `json:"products"`
	Offers            int                  `json:"offers"`
	Diagnostics       []catalog.Diagnostic `json:"diagnostics"`
	Counts            map[string]int       `json:"counts"`
}

// Committed returns the number of sources merged into the catalog.
func (r *Report) Committed() int {
	n := 0
	for _, s := range r.Sources {
		if s.Committed {
			n++
		}
	}
	return n
}
