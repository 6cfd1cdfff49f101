package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rateScope/internal/model"
)

const namespace = "ratescope"

// Quote results.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultMismatch = "mismatch"
)

// Metrics holds the quoter collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Quotes       *prometheus.CounterVec
	Mismatches   *prometheus.CounterVec
	Utilization  *prometheus.GaugeVec
	BorrowAPR    *prometheus.GaugeVec
	SupplyAPY    *prometheus.GaugeVec
	QuoteLatency *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, so several instances can
// coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := []string{"pool", "asset"}
	return &Metrics{
		registry: reg,
		Quotes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Total number of quote attempts by result",
		}, []string{"pool", "asset", "result"}),
		Mismatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consistency_mismatches_total",
			Help:      "Total number of offchain rates that disagreed with the reference",
		}, labels),
		Utilization: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "utilization_ratio",
			Help:      "Last observed utilization as a fraction",
		}, labels),
		BorrowAPR: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "borrow_apr_ratio",
			Help:      "Last quoted borrow APR as a fraction",
		}, labels),
		SupplyAPY: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "supply_apy_ratio",
			Help:      "Last quoted supply APY as a fraction",
		}, labels),
		QuoteLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_latency_seconds",
			Help:      "Time spent producing one quote, RPC included",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, labels),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveQuote records a successful quote.
func (m *Metrics) ObserveQuote(q model.Quote, utilization float64, elapsed time.Duration) {
	pool, asset := q.Ref.Pool, q.Ref.Asset
	m.Quotes.WithLabelValues(pool, asset, ResultOK).Inc()
	m.Utilization.WithLabelValues(pool, asset).Set(utilization)
	m.BorrowAPR.WithLabelValues(pool, asset).Set(q.Rates.BorrowAPR)
	m.SupplyAPY.WithLabelValues(pool, asset).Set(q.Rates.SupplyAPY)
	m.QuoteLatency.WithLabelValues(pool, asset).Observe(elapsed.Seconds())
}

// ObserveFailure records a failed quote. Mismatches are also counted apart.
func (m *Metrics) ObserveFailure(ref model.AssetRef, mismatch bool) {
	result := ResultError
	if mismatch {
		result = ResultMismatch
		m.Mismatches.WithLabelValues(ref.Pool, ref.Asset).Inc()
	}
	m.Quotes.WithLabelValues(ref.Pool, ref.Asset, result).Inc()
}
