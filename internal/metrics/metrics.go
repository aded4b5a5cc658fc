package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes of a pre-payment price check.
const (
	OutcomeUnchanged        = "unchanged"
	OutcomeApplied          = "applied"
	OutcomeRequiresApproval = "requires_approval"
	OutcomeBlocked          = "blocked"
)

// Metrics exposes Prometheus collectors for quote pricing. All methods are nil-safe.
type Metrics struct {
	registry     *prometheus.Registry
	selections   *prometheus.CounterVec
	validations  *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	priceDriftPc prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quote",
			Name:      "price_list_selections_total",
			Help:      "Price list selections by kind of list applied.",
		}, []string{"applied"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quote",
			Name:      "price_validations_total",
			Help:      "Pre-payment price checks by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quote",
			Name:      "payment_transitions_total",
			Help:      "Payment status transitions.",
		}, []string{"from", "to"}),
		priceDriftPc: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quote",
			Name:      "price_drift_percent",
			Help:      "Absolute percentage change found by price validation.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 50, 100},
		}),
	}
	registry.MustRegister(m.selections, m.validations, m.transitions, m.priceDriftPc)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveSelection(isDefault bool) {
	if m == nil {
		return
	}
	label := "conditional"
	if isDefault {
		label = "default"
	}
	m.selections.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveValidation(outcome string, absPercent float64) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(outcome).Inc()
	if outcome != OutcomeUnchanged && outcome != OutcomeBlocked {
		m.priceDriftPc.Observe(absPercent)
	}
}

func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}
