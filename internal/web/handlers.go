package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/pricemerge/internal/catalog"
	"github.com/JonMunkholm/pricemerge/internal/ingest"
	"github.com/JonMunkholm/pricemerge/internal/lookup"
)

// maxBodySize bounds lookup request bodies.
const maxBodySize = 1 << 20

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status   string     `json:"status"`
	Ready    bool       `json:"ready"`
	BuiltAt  *time.Time `json:"builtAt,omitempty"`
	RunID    string     `json:"runId,omitempty"`
	Products int        `json:"products"`
}

// ProductsResponse is returned by GET /api/products.
type ProductsResponse struct {
	Count    int               `json:"count"`
	Products []catalog.Product `json:"products"`
}

// LookupBody is the POST /api/lookup payload. Text is free-form part numbers
// (one per line or comma separated) merged into PartNumbers.
type LookupBody struct {
	lookup.Request
	Text string `json:"text,omitempty"`
}

// LookupResponse is returned by POST /api/lookup.
type LookupResponse struct {
	ReferenceCurrency string              `json:"referenceCurrency"`
	Margin            float64             `json:"margin"`
	Results           []lookup.PartResult `json:"results"`
}

// RatesResponse is returned by GET /api/rates.
type RatesResponse struct {
	Base     string            `json:"base"`
	Provider string            `json:"provider"`
	FellBack bool              `json:"fellBack"`
	Rates    catalog.RateTable `json:"rates"`
}

// ReloadResponse is returned by POST /api/reload.
type ReloadResponse struct {
	RunID       string        `json:"runId"`
	Duration    time.Duration `json:"duration"`
	Sources     int           `json:"sources"`
	Committed   int           `json:"committed"`
	Suppliers   int           `json:"suppliers"`
	Products    int           `json:"products"`
	Offers      int           `json:"offers"`
	Diagnostics int           `json:"diagnostics"`
}

// catalogOrFail returns the served catalog, or writes 503 and returns nil.
func (s *Server) catalogOrFail(w http.ResponseWriter, r *http.Request) *ingest.Result {
	res := s.current.Load()
	if res == nil {
		respondError(w, r, errNotReady, http.StatusServiceUnavailable)
	}
	return res
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	res := s.current.Load()
	if res == nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, HealthResponse{Status: "building"})
		return
	}
	render.JSON(w, r, HealthResponse{
		Status:   "ok",
		Ready:    true,
		BuiltAt:  s.builtAt.Load(),
		RunID:    res.Report.RunID,
		Products: len(res.Snapshot.Products),
	})
}

func (s *Server) handleSuppliers(w http.ResponseWriter, r *http.Request) {
	res := s.catalogOrFail(w, r)
	if res == nil {
		return
	}
	suppliers := res.Snapshot.Suppliers
	if suppliers == nil {
		suppliers = []string{}
	}
	render.JSON(w, r, map[string][]string{"suppliers": suppliers})
}

func (s *Server) handleManufacturers(w http.ResponseWriter, r *http.Request) {
	res := s.catalogOrFail(w, r)
	if res == nil {
		return
	}
	manufacturers := res.Manufacturers()
	if manufacturers == nil {
		manufacturers = []string{}
	}
	render.JSON(w, r, map[string][]string{"manufacturers": manufacturers})
}

// handleProducts lists products, optionally filtered by ?manufacturer=
// (case-insensitive).
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	res := s.catalogOrFail(w, r)
	if res == nil {
		return
	}

	want := strings.TrimSpace(r.URL.Query().Get("manufacturer"))
	products := make([]catalog.Product, 0, len(res.Snapshot.Products))
	for _, p := range res.Snapshot.Products {
		if want != "" && !strings.EqualFold(strings.TrimSpace(p.Manufacturer), want) {
			continue
		}
		products = append(products, p)
	}
	render.JSON(w, r, ProductsResponse{Count: len(products), Products: products})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	res := s.catalogOrFail(w, r)
	if res == nil {
		return
	}

	itemNo := chi.URLParam(r, "itemNo")
	p, ok := res.Snapshot.Product(itemNo)
	if !ok {
		respondError(w, r, fmt.Errorf("%w: %q", errProductNotFound, itemNo), http.StatusNotFound)
		return
	}
	render.JSON(w, r, p)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	res := s.catalogOrFail(w, r)
	if res == nil {
		return
	}

	var body LookupBody
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodySize), &body); err != nil {
		respondError(w, r, fmt.Errorf("%w: malformed JSON: %v", errBadRequest, err), http.StatusBadRequest)
		return
	}

	req := body.Request
	req.PartNumbers = append(req.PartNumbers, lookup.SplitPartNumbers(body.Text)...)
	req.Normalize()
	if err := req.Validate(); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), http.StatusBadRequest)
		return
	}

	render.JSON(w, r, LookupResponse{
		ReferenceCurrency: res.Report.ReferenceCurrency,
		Margin:            s.opts.Margin,
		Results:           lookup.Lookup(res.Snapshot, req, s.opts.Margin),
	})
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	res := s.catalogOrFail(w, r)
	if res == nil {
		return
	}
	render.JSON(w, r, RatesResponse{
		Base:     res.Report.ReferenceCurrency,
		Provider: res.Report.RateProvider,
		FellBack: res.Report.RatesFellBack,
		Rates:    res.Rates,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res := s.catalogOrFail(w, r)
	if res == nil {
		return
	}
	render.JSON(w, r, res.Report)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	res, err := s.Reload(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errReloadInProgress) {
			status = http.StatusConflict
		}
		respondError(w, r, err, status)
		return
	}

	rep := res.Report
	render.JSON(w, r, ReloadResponse{
		RunID:       rep.RunID,
		Duration:    rep.Duration,
		Sources:     len(rep.Sources),
		Committed:   rep.Committed(),
		Suppliers:   rep.Suppliers,
		Products:    rep.Products,
		Offers:      rep.Offers,
		Diagnostics: len(rep.Diagnostics),
	})
}
