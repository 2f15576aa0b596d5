// Package metrics holds the prometheus counters of the shop choreography.
// Each service builds its own registry so tests never share state.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shop"

const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultNotFound  = "not_found"
	ResultInvalid   = "invalid"
	ResultDuplicate = "duplicate"
	ResultDropped   = "dropped"
)

type Metrics struct {
	registry *prometheus.Registry

	ItemsAdded        *prometheus.CounterVec
	Checkouts         *prometheus.CounterVec
	OrdersReceived    *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
	AggregateConflict *prometheus.CounterVec
}

func New(service string) *Metrics {
	labels := prometheus.Labels{"service": service}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ItemsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cart_items_added_total",
			Help:        "Add-to-cart requests by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cart_checkouts_total",
			Help:        "Checkout requests by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		OrdersReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "orders_received_total",
			Help:        "Orders handled by the order aggregator by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "events_published_total",
			Help:        "Events handed to the broker by topic and result.",
			ConstLabels: labels,
		}, []string{"topic", "result"}),
		AggregateConflict: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "aggregate_write_conflicts_total",
			Help:        "Conditional aggregate writes rejected by etag mismatch.",
			ConstLabels: labels,
		}, []string{"key"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ItemsAdded,
		m.Checkouts,
		m.OrdersReceived,
		m.EventsPublished,
		m.AggregateConflict,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Conflict is shaped to be passed as an aggregate conflict hook.
func (m *Metrics) Conflict(key string) {
	m.AggregateConflict.WithLabelValues(key).Inc()
}

func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
