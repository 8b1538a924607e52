// Package metrics exposes the shop's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric the API records.
type Collector struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	ordersCreated  prometheus.Counter
	uploadRejected prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shop_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shop_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shop_orders_created_total",
			Help: "Orders successfully placed.",
		}),
		uploadRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shop_uploads_rejected_total",
			Help: "Uploads rejected for an unsupported image type.",
		}),
	}

	reg.MustRegister(c.requests, c.duration, c.ordersCreated, c.uploadRejected)
	return c
}

// RecordRequest records one served request. route is the matched pattern,
// not the raw path.
func (c *Collector) RecordRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) RecordOrderCreated() { c.ordersCreated.Inc() }

func (c *Collector) RecordUploadRejected() { c.uploadRejected.Inc() }

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
