// Package metrics exposes Prometheus collectors for catalog builds, rate
// fetches and the HTTP API.
//
// All recording methods are safe to call on a nil *Collector, so packages can
// take an optional collector without guarding every call.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pricemerge"

// Source outcomes.
const (
	SourceCommitted = "committed"
	SourceFallback  = "fallback"
	SourceSkipped   = "skipped"
)

// Row outcomes.
const (
	RowMerged  = "merged"
	RowSkipped = "skipped"
)

// Collector owns a private registry and the metrics registered on it.
type Collector struct {
	registry *prometheus.Registry

	sources      *prometheus.CounterVec
	rows         *prometheus.CounterVec
	diagnostics  *prometheus.CounterVec
	rateFetches  *prometheus.CounterVec
	buildSeconds prometheus.Histogram
	products     prometheus.Gauge
	offers       prometheus.Gauge
	suppliers    prometheus.Gauge
	lastBuild    prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpSeconds  *prometheus.HistogramVec
}

// New creates a Collector with its own registry, including Go runtime and
// process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sources_total",
			Help:      "Price list files processed, by outcome.",
		}, []string{"outcome"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Price list rows processed, by outcome.",
		}, []string{"outcome"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostics recorded during catalog builds, by code.",
		}, []string{"code"}),
		rateFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_fetches_total",
			Help:      "Exchange rate resolutions, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		buildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of catalog builds.",
			Buckets:   prometheus.DefBuckets,
		}),
		products: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_products",
			Help:      "Products in the current catalog.",
		}),
		offers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_offers",
			Help:      "Supplier offers in the current catalog.",
		}),
		suppliers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_suppliers",
			Help:      "Suppliers in the current catalog.",
		}),
		lastBuild: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_build_timestamp_seconds",
			Help:      "Unix time of the last successful catalog build.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.sources, c.rows, c.diagnostics, c.rateFetches, c.buildSeconds,
		c.products, c.offers, c.suppliers, c.lastBuild,
		c.httpRequests, c.httpSeconds,
	)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) SourceProcessed(outcome string) {
	if c == nil {
		return
	}
	c.sources.WithLabelValues(outcome).Inc()
}

func (c *Collector) RowsProcessed(outcome string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.rows.WithLabelValues(outcome).Add(float64(n))
}

func (c *Collector) Diagnostic(code string) {
	if c == nil {
		return
	}
	c.diagnostics.WithLabelValues(code).Inc()
}

// RateFetch records one rate resolution. ok is false when defaults were used
// because the provider failed.
func (c *Collector) RateFetch(provider string, ok bool) {
	if c == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "fallback"
	}
	c.rateFetches.WithLabelValues(provider, outcome).Inc()
}

// BuildFinished records a successful build of a catalog.
func (c *Collector) BuildFinished(d time.Duration, suppliers, products, offers int) {
	if c == nil {
		return
	}
	c.buildSeconds.Observe(d.Seconds())
	c.suppliers.Set(float64(suppliers))
	c.products.Set(float64(products))
	c.offers.Set(float64(offers))
	c.lastBuild.SetToCurrentTime()
}

func (c *Collector) HTTPRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpSeconds.WithLabelValues(route).Observe(d.Seconds())
}
