package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records the outcome of checkout attempts and the stock
// contention they hit.
type CheckoutMetrics struct {
	attempts       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	stockConflicts prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided
// registerer. A nil registerer yields a no-op collector, so tests and
// tools that do not serve /metrics can pass nil.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by final result.",
	}, []string{"result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of the checkout transaction in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	stockConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_stock_conflicts_total",
		Help: "Checkouts rejected because a line had insufficient stock.",
	})
	reg.MustRegister(attempts, duration, stockConflicts)
	return &CheckoutMetrics{
		attempts:       attempts,
		duration:       duration,
		stockConflicts: stockConflicts,
	}
}

// ObserveAttempt records one finished checkout with its result label.
func (m *CheckoutMetrics) ObserveAttempt(result string, elapsed time.Duration) {
	if m == nil || m.attempts == nil {
		return
	}
	label := normalizeLabel(result)
	m.attempts.WithLabelValues(label).Inc()
	m.duration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// IncStockConflict counts a checkout aborted by the stock ledger.
func (m *CheckoutMetrics) IncStockConflict() {
	if m == nil || m.stockConflicts == nil {
		return
	}
	m.stockConflicts.Inc()
}

// OrderMetrics counts order lifecycle transitions.
type OrderMetrics struct {
	transitions *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transitions by source and target status.",
	}, []string{"from", "to"})
	reg.MustRegister(transitions)
	return &OrderMetrics{transitions: transitions}
}

// IncTransition counts one applied status transition.
func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
