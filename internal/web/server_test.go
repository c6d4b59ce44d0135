package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/pricemerge/internal/catalog"
	"github.com/JonMunkholm/pricemerge/internal/ingest"
	"github.com/JonMunkholm/pricemerge/internal/metrics"
	"github.com/JonMunkholm/pricemerge/internal/output"
	"github.com/JonMunkholm/pricemerge/internal/rates"
	"github.com/JonMunkholm/pricemerge/internal/source"
)

type stubBuilder struct {
	mu    sync.Mutex
	res   *ingest.Result
	err   error
	calls int
	block chan struct{}
}

func (b *stubBuilder) Build(ctx context.Context) (*ingest.Result, error) {
	b.mu.Lock()
	b.calls++
	block := b.block
	b.mu.Unlock()
	if block != nil {
		<-block
	}
	return b.res, b.err
}

type failingSink struct{}

func (failingSink) Name() string { return "failing" }
func (failingSink) Write(context.Context, catalog.Snapshot) error {
	return catalog.ErrOutputWrite
}

func testResult() *ingest.Result {
	ok := catalog.PriceOK
	return &ingest.Result{
		Snapshot: catalog.Snapshot{
			Suppliers: []string{"MRS", "Mizala"},
			Products: []catalog.Product{
				{ItemNo: "00.1001", Manufacturer: "Thermo", SupplierOffers: []catalog.Offer{
					{SupplierName: "MRS", NormalizedPrice: 630.29, OriginalPrice: 491.63, OriginalCurrency: "GBP", CatalogNo: "00.1001", PriceStatus: ok},
					{SupplierName: "Mizala", NormalizedPrice: 600, OriginalPrice: 552, OriginalCurrency: "EUR", CatalogNo: "TF-1", PriceStatus: ok},
				}},
				{ItemNo: "N-1", Manufacturer: "Nunc", SupplierOffers: []catalog.Offer{
					{SupplierName: "MRS", NormalizedPrice: 5, OriginalPrice: 5, OriginalCurrency: "USD", CatalogNo: "N-1", PriceStatus: ok},
				}},
			},
		},
		Report: &ingest.Report{
			RunID:             "run-1",
			ReferenceCurrency: "USD",
			RateProvider:      "static",
			Sources:           []ingest.SourceReport{{Supplier: "MRS", Committed: true}, {Supplier: "Mizala", Committed: true}},
			Suppliers:         2,
			Products:          2,
			Offers:            3,
		},
		Sources: []source.Source{{Supplier: "MRS", Manufacturer: "Thermo"}, {Supplier: "Mizala", Manufacturer: "Thermo"}},
		Rates:   catalog.RateTable{"USD": 1, "GBP": 0.78},
	}
}

func loadedServer(t *testing.T, opts Options) *Server {
	t.Helper()
	s := NewServer(&stubBuilder{res: testResult()}, opts)
	if _, err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestServer_NotReady(t *testing.T) {
	s := NewServer(&stubBuilder{}, Options{})

	for _, path := range []string{"/api/suppliers", "/api/products", "/api/report", "/api/rates"} {
		rec := do(t, s, http.MethodGet, path, "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, rec.Code)
		}
		if got := decode[ErrorResponse](t, rec); got.Code != "WEB001" {
			t.Errorf("%s code = %q, want WEB001", path, got.Code)
		}
	}

	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz status = %d, want 503", rec.Code)
	}
}

func TestServer_ReadEndpoints(t *testing.T) {
	s := loadedServer(t, Options{})

	t.Run("healthz", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/healthz", "")
		got := decode[HealthResponse](t, rec)
		if rec.Code != http.StatusOK || !got.Ready || got.RunID != "run-1" || got.BuiltAt == nil {
			t.Errorf("healthz = %d %+v", rec.Code, got)
		}
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Error("security headers missing")
		}
	})

	t.Run("suppliers", func(t *testing.T) {
		got := decode[map[string][]string](t, do(t, s, http.MethodGet, "/api/suppliers", ""))
		if strings.Join(got["suppliers"], ",") != "MRS,Mizala" {
			t.Errorf("suppliers = %v", got)
		}
	})

	t.Run("manufacturers", func(t *testing.T) {
		got := decode[map[string][]string](t, do(t, s, http.MethodGet, "/api/manufacturers", ""))
		if strings.Join(got["manufacturers"], ",") != "Nunc,Thermo" {
			t.Errorf("manufacturers = %v", got)
		}
	})

	t.Run("products filtered", func(t *testing.T) {
		got := decode[ProductsResponse](t, do(t, s, http.MethodGet, "/api/products?manufacturer=thermo", ""))
		if got.Count != 1 || got.Products[0].ItemNo != "00.1001" {
			t.Errorf("products = %+v", got)
		}
		all := decode[ProductsResponse](t, do(t, s, http.MethodGet, "/api/products", ""))
		if all.Count != 2 {
			t.Errorf("unfiltered count = %d, want 2", all.Count)
		}
	})

	t.Run("product", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/products/00.1001", "")
		got := decode[catalog.Product](t, rec)
		if rec.Code != http.StatusOK || len(got.SupplierOffers) != 2 {
			t.Errorf("product = %d %+v", rec.Code, got)
		}
		if strings.Contains(rec.Body.String(), "RawPrice") {
			t.Error("raw price leaked into API output")
		}
	})

	t.Run("product not found", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/products/nope", "")
		if rec.Code != http.StatusNotFound || decode[ErrorResponse](t, rec).Code != "WEB002" {
			t.Errorf("missing product = %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("rates", func(t *testing.T) {
		got := decode[RatesResponse](t, do(t, s, http.MethodGet, "/api/rates", ""))
		if got.Base != "USD" || got.Provider != "static" || got.Rates["GBP"] != 0.78 {
			t.Errorf("rates = %+v", got)
		}
	})

	t.Run("report", func(t *testing.T) {
		got := decode[ingest.Report](t, do(t, s, http.MethodGet, "/api/report", ""))
		if got.RunID != "run-1" || got.Offers != 3 {
			t.Errorf("report = %+v", got)
		}
	})
}

func TestServer_Lookup(t *testing.T) {
	s := loadedServer(t, Options{Margin: 0.03})

	rec := do(t, s, http.MethodPost, "/api/lookup", `{"manufacturer":"thermo","partNumbers":["00.1001"],"text":"missing\n00.1001"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[LookupResponse](t, rec)
	if len(got.Results) != 2 {
		t.Fatalf("results = %+v, want deduplicated 2", got.Results)
	}
	first := got.Results[0]
	if !first.Found || first.Suppliers[0].Supplier != "Mizala" || first.Suppliers[0].ProtectedPrice != 618 || !first.Suppliers[0].IsWinner {
		t.Errorf("first result = %+v", first)
	}
	if got.Results[1].PartNumber != "MISSING" || got.Results[1].Found {
		t.Errorf("second result = %+v", got.Results[1])
	}
	if got.ReferenceCurrency != "USD" || got.Margin != 0.03 {
		t.Errorf("response meta = %+v", got)
	}
}

func TestServer_LookupBadRequest(t *testing.T) {
	s := loadedServer(t, Options{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"manufacturer":`},
		{"missing manufacturer", `{"partNumbers":["A"]}`},
		{"no part numbers", `{"manufacturer":"Thermo","partNumbers":[" "]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/lookup", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			got := decode[ErrorResponse](t, rec)
			if got.Code != "WEB003" || got.Detail == "" {
				t.Errorf("error = %+v", got)
			}
		})
	}
}

func TestServer_Reload(t *testing.T) {
	b := &stubBuilder{res: testResult()}
	s := NewServer(b, Options{})

	rec := do(t, s, http.MethodPost, "/api/reload", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[ReloadResponse](t, rec)
	if got.RunID != "run-1" || got.Committed != 2 || got.Products != 2 {
		t.Errorf("reload = %+v", got)
	}
	if s.Current() == nil {
		t.Error("catalog not swapped in")
	}
}

func TestServer_ReloadFailureKeepsCatalog(t *testing.T) {
	b := &stubBuilder{res: testResult()}
	s := NewServer(b, Options{})
	if _, err := s.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := s.Current()

	b.res, b.err = nil, catalog.ErrNoSources
	rec := do(t, s, http.MethodPost, "/api/reload", "")
	if rec.Code != http.StatusInternalServerError || decode[ErrorResponse](t, rec).Code != "SRC003" {
		t.Errorf("reload failure = %d %s", rec.Code, rec.Body.String())
	}
	if s.Current() != before {
		t.Error("failed reload replaced the served catalog")
	}
}

func TestServer_ReloadInProgress(t *testing.T) {
	b := &stubBuilder{res: testResult(), block: make(chan struct{})}
	s := NewServer(b, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Reload(context.Background())
		done <- err
	}()

	// Wait for the first build to start.
	deadline := time.Now().Add(2 * time.Second)
	for {
		b.mu.Lock()
		calls := b.calls
		b.mu.Unlock()
		if calls == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("build never started")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := s.Reload(context.Background())
	if !errors.Is(err, errReloadInProgress) {
		t.Errorf("concurrent Reload() error = %v, want errReloadInProgress", err)
	}

	close(b.block)
	if err := <-done; err != nil {
		t.Errorf("first Reload() error = %v", err)
	}
}

func TestServer_ReloadSinkFailure(t *testing.T) {
	s := NewServer(&stubBuilder{res: testResult()}, Options{Sinks: []output.Sink{failingSink{}}})

	rec := do(t, s, http.MethodPost, "/api/reload", "")
	if rec.Code != http.StatusInternalServerError || decode[ErrorResponse](t, rec).Code != "OUT001" {
		t.Errorf("sink failure = %d %s", rec.Code, rec.Body.String())
	}
	if s.Current() == nil {
		t.Error("catalog should be served even when a sink fails")
	}
}

func TestServer_ReloadRequiresKey(t *testing.T) {
	s := NewServer(&stubBuilder{res: testResult()}, Options{ReloadKeys: []string{"secret"}})

	if rec := do(t, s, http.MethodPost, "/api/reload", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/reload", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with key status = %d, want 200", rec.Code)
	}
}

func TestServer_RateLimit(t *testing.T) {
	s := loadedServer(t, Options{RequestsPerMinute: 2})

	for i := 0; i < 2; i++ {
		if rec := do(t, s, http.MethodGet, "/api/suppliers", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := do(t, s, http.MethodGet, "/api/suppliers", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" || decode[ErrorResponse](t, rec).Code != "WEB005" {
		t.Errorf("429 response = %v %s", rec.Header(), rec.Body.String())
	}
}

func TestRateLimiter_PerIPAndSweep(t *testing.T) {
	now := time.Unix(0, 0)
	rl := newRateLimiter(1)
	rl.now = func() time.Time { return now }

	if !rl.allow("a") || rl.allow("a") {
		t.Error("a: want one request then limit")
	}
	if !rl.allow("b") {
		t.Error("b has its own bucket")
	}

	now = now.Add(10 * time.Minute)
	rl.allow("c")
	if _, ok := rl.visitors["a"]; ok {
		t.Error("idle visitor not swept")
	}
}

func TestServer_Metrics(t *testing.T) {
	m := metrics.New()
	s := loadedServer(t, Options{Metrics: m})
	do(t, s, http.MethodGet, "/api/suppliers", "")

	rec := do(t, s, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), `pricemerge_http_requests_total{method="GET",route="/api/suppliers",status="200"} 1`) {
		t.Errorf("metrics output missing request counter")
	}
}

func TestServer_ReloadEndToEnd(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("MRS_Thermo.csv", "PART #,DESCRIPTION,PRICE,CURRENCY\n00.1001,Pipette,491.63,GBP\n")
	write("Mizala_Thermo.csv", "PART #,DESCRIPTION,PRICE,CURRENCY\n00.1001,Pipette,\"1,200.00\",EUR\n")

	p := &ingest.Pipeline{
		DataDir:           dir,
		Patterns:          source.DefaultPatterns,
		ReferenceCurrency: "USD",
		Rates:             rates.Static{},
	}
	s := NewServer(p, Options{})

	if rec := do(t, s, http.MethodPost, "/api/reload", ""); rec.Code != http.StatusOK {
		t.Fatalf("reload status = %d: %s", rec.Code, rec.Body.String())
	}
	rec := do(t, s, http.MethodPost, "/api/lookup", `{"manufacturer":"Thermo","partNumbers":["00.1001"]}`)
	got := decode[LookupResponse](t, rec)
	if len(got.Results) != 1 || len(got.Results[0].Suppliers) != 2 || got.Results[0].Suppliers[0].Supplier != "MRS" {
		t.Errorf("lookup = %+v", got)
	}
}
