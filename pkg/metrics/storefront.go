package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const namespace = "cinepass"

// StorefrontMetrics records cart and checkout activity. A nil receiver is a
// no-op so domain code can run without a registry.
type StorefrontMetrics struct {
	mutations  *prometheus.CounterVec
	checkouts  *prometheus.CounterVec
	orderTotal prometheus.Histogram
}

// NewStorefrontMetrics registers the storefront collectors on reg.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Cart mutations applied, by operation.",
	}, []string{"op"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Checkout attempts, by outcome.",
	}, []string{"outcome"})
	orderTotal := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "order_total_amount",
		Help:      "Grand total of confirmed orders.",
		Buckets:   []float64{10, 25, 50, 75, 100, 150, 250, 500},
	})
	reg.MustRegister(mutations, checkouts, orderTotal)
	return &StorefrontMetrics{
		mutations:  mutations,
		checkouts:  checkouts,
		orderTotal: orderTotal,
	}
}

// IncMutation counts one applied cart mutation.
func (m *StorefrontMetrics) IncMutation(op string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncCheckout counts one checkout attempt with the given outcome.
func (m *StorefrontMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveOrderTotal records the total of a confirmed order.
func (m *StorefrontMetrics) ObserveOrderTotal(total decimal.Decimal) {
	if m == nil || m.orderTotal == nil {
		return
	}
	m.orderTotal.Observe(total.InexactFloat64())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
