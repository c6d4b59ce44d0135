package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/pricemerge/internal/metrics"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:    "untrusted peer keeps remote addr",
			trusted: []string{"10.0.0.0/8"},
			remote:  "203.0.113.7:5555",
			headers: map[string]string{"X-Real-IP": "1.2.3.4"},
			want:    "203.0.113.7:5555",
		},
		{
			name:    "trusted proxy uses X-Real-IP",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.1.2.3:5555",
			headers: map[string]string{"X-Real-IP": "1.2.3.4"},
			want:    "1.2.3.4",
		},
		{
			name:    "trusted proxy uses first forwarded hop",
			trusted: []string{"127.0.0.1"},
			remote:  "127.0.0.1:80",
			headers: map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.1"},
			want:    "5.6.7.8",
		},
		{
			name:    "invalid header ignored",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.1.2.3:5555",
			headers: map[string]string{"X-Real-IP": "not-an-ip"},
			want:    "10.1.2.3:5555",
		},
		{
			name:    "no trusted proxies",
			remote:  "10.1.2.3:5555",
			headers: map[string]string{"X-Real-IP": "1.2.3.4"},
			want:    "10.1.2.3:5555",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name string
		keys []string
		key  string
		want int
	}{
		{"disabled", nil, "", http.StatusNoContent},
		{"missing key", []string{"k1"}, "", http.StatusUnauthorized},
		{"wrong key", []string{"k1"}, "nope", http.StatusForbidden},
		{"second key", []string{"k1", "k2"}, "k2", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/reload", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(tt.keys)(ok).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestLogger_RecordsRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(Logger(m))
	r.Get("/api/products/{itemNo}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products/ABC", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	want := `pricemerge_http_requests_total{method="GET",route="/api/products/{itemNo}",status="404"} 1`
	if !strings.Contains(string(body), want) {
		t.Errorf("metrics missing %s", want)
	}
}
