package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type OrderMetrics struct {
	// Orders counts terminal submission outcomes:
	// confirmed, rejected, exhausted, error.
	Orders    *prometheus.CounterVec
	Conflicts prometheus.Counter
	Attempts  prometheus.Histogram
}

func NewOrderMetrics() *OrderMetrics {
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderengine",
		Subsystem: "commit",
		Name:      "orders_total",
		Help:      "Order submissions by terminal outcome.",
	}, []string{"outcome"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "orderengine",
		Subsystem: "commit",
		Name:      "conflicts_total",
		Help:      "Version conflicts observed during commit attempts.",
	})
	attempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "orderengine",
		Subsystem: "commit",
		Name:      "attempts_per_order",
		Help:      "Commit attempts consumed per confirmed order.",
		Buckets:   []float64{1, 2, 3, 4, 5},
	})

	prometheus.MustRegister(orders, conflicts, attempts)
	return &OrderMetrics{Orders: orders, Conflicts: conflicts, Attempts: attempts}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
