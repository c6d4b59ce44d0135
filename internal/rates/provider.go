package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/JonMunkholm/pricemerge/internal/catalog"
)

// Provider returns reference -> foreign rates for a base currency.
type Provider interface {
	Name() string
	Rates(ctx context.Context, base string) (catalog.RateTable, error)
}

// Static serves the built-in table and never fails.
type Static struct{}

func (Static) Name() string { return "static" }

func (Static) Rates(_ context.Context, base string) (catalog.RateTable, error) {
	return Defaults(base), nil
}

// DefaultTimeout bounds a live fetch when HTTPProvider.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps the rate response body.
const maxResponseBytes = 1 << 20

// HTTPProvider fetches rates from an exchangerate.host style endpoint:
//
//	GET {URL}?base=USD  ->  {"success": true, "rates": {"EUR": 0.92, ...}}
//
// One request per call; no retries.
type HTTPProvider struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPProvider creates a provider for url with the given timeout.
func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		URL:     url,
		Client:  &http.Client{},
		Timeout: timeout,
	}
}

func (p *HTTPProvider) Name() string { return "live" }

type rateResponse struct {
	Success bool               `json:"success"`
	Rates   map[string]float64 `json:"rates"`
}

// Rates performs the fetch. The request is bounded by p.Timeout.
func (p *HTTPProvider) Rates(ctx context.Context, base string) (catalog.RateTable, error) {
	base = catalog.NormalizeCode(base)

	u, err := url.Parse(p.URL)
	if err != nil {
		return nil, fmt.Errorf("parse rates url: %w", err)
	}
	q := u.Query()
	q.Set("base", base)
	u.RawQuery = q.Encode()

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates endpoint returned status %d", resp.StatusCode)
	}

	var payload rateResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if !payload.Success || len(payload.Rates) == 0 {
		return nil, errors.New("rates endpoint reported no rates")
	}

	table := make(catalog.RateTable, len(payload.Rates))
	for code, rate := range payload.Rates {
		table[catalog.NormalizeCode(code)] = rate
	}
	return table, nil
}
