package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "smartshop"

// Collector is a prometheus.Collector for the storefront. All recording
// methods are safe on a nil *Collector so services can run without metrics.
type Collector struct {
	requestDuration   *prometheus.HistogramVec
	ordersCreated     prometheus.Counter
	paymentsFinalized *prometheus.CounterVec
	emailsSent        *prometheus.CounterVec
	recommendations   *prometheus.CounterVec
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency of HTTP requests by route and status.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "route", "status"},
		),
		ordersCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_created_total",
				Help:      "The number of orders placed.",
			},
		),
		paymentsFinalized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_finalized_total",
				Help:      "The number of payments moved out of pending, by outcome.",
			}, []string{"status"},
		),
		emailsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_total",
				Help:      "Transactional email attempts by kind and result.",
			}, []string{"kind", "result"},
		),
		recommendations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recommendations_total",
				Help:      "Recommendation requests by the source that answered them.",
			}, []string{"source"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.requestDuration.Describe(ch)
	c.ordersCreated.Describe(ch)
	c.paymentsFinalized.Describe(ch)
	c.emailsSent.Describe(ch)
	c.recommendations.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.requestDuration.Collect(ch)
	c.ordersCreated.Collect(ch)
	c.paymentsFinalized.Collect(ch)
	c.emailsSent.Collect(ch)
	c.recommendations.Collect(ch)
}

// NewRegistry returns a registry holding c and the Go runtime collectors.
func NewRegistry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (c *Collector) OrderCreated() {
	if c == nil {
		return
	}
	c.ordersCreated.Inc()
}

func (c *Collector) PaymentFinalized(status string) {
	if c == nil {
		return
	}
	c.paymentsFinalized.WithLabelValues(status).Inc()
}

func (c *Collector) EmailSent(kind string, err error) {
	if c == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	c.emailsSent.WithLabelValues(kind, result).Inc()
}

func (c *Collector) Recommended(source string) {
	if c == nil {
		return
	}
	c.recommendations.WithLabelValues(source).Inc()
}
