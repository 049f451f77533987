// Package metrics exposes Prometheus collectors for HTTP traffic and the
// cart and checkout flows.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "storefront"

// Metrics holds every collector. A nil *Metrics records nothing.
type Metrics struct {
	Requests       *prometheus.CounterVec
	Latency        *prometheus.HistogramVec
	OrdersPlaced   prometheus.Counter
	Revenue        prometheus.Counter
	StockConflicts *prometheus.CounterVec
	CartLines      *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders created by checkout.",
		}),
		Revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_revenue_total",
			Help:      "Sum of placed order totals.",
		}),
		StockConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_conflicts_total",
			Help:      "Operations rejected for insufficient stock.",
		}, []string{"operation"}),
		CartLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_line_changes_total",
			Help:      "Successful cart line mutations.",
		}, []string{"operation"}),
		gatherer: reg,
	}

	reg.MustRegister(m.Requests, m.Latency, m.OrdersPlaced, m.Revenue, m.StockConflicts, m.CartLines)
	return m
}

// OrderPlaced records a committed order.
func (m *Metrics) OrderPlaced(total decimal.Decimal) {
	if m == nil {
		return
	}
	m.OrdersPlaced.Inc()
	m.Revenue.Add(total.InexactFloat64())
}

// StockConflict records a rejection by operation (add, update, checkout, merge).
func (m *Metrics) StockConflict(operation string) {
	if m == nil {
		return
	}
	m.StockConflicts.WithLabelValues(operation).Inc()
}

// CartChanged records a successful cart line mutation.
func (m *Metrics) CartChanged(operation string) {
	if m == nil {
		return
	}
	m.CartLines.WithLabelValues(operation).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.Latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
