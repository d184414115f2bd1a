// internal/metrics/metrics.go

// Package metrics exposes Prometheus instruments for RPC traffic, dashboard
// actions and position health.
package metrics

import (
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/sui-lending/internal/risk"
)

const namespace = "sui_lending"

// Collector owns the instruments; it is registered on an injected registry.
type Collector struct {
	registry     *prometheus.Registry
	rpcLatency   *prometheus.HistogramVec
	rpcErrors    *prometheus.CounterVec
	actions      *prometheus.CounterVec
	actionTime   *prometheus.HistogramVec
	healthFactor prometheus.Gauge
	ltv          prometheus.Gauge
	price        *prometheus.GaugeVec
}

// NewCollector registers all instruments on registry. A nil registry gets a
// fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		rpcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_latency_seconds",
			Help:      "JSON-RPC call latency",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "node"}),
		rpcErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_errors_total",
			Help:      "Failed JSON-RPC calls",
		}, []string{"method", "node"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Lending actions by outcome",
		}, []string{"action", "status"}),
		actionTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Time from submit to finality",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"action"}),
		healthFactor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position_health_factor",
			Help:      "Health factor of the connected position, +Inf without debt",
		}),
		ltv: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position_ltv_percent",
			Help:      "Loan-to-value of the connected position",
		}),
		price: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "oracle_price_usd",
			Help:      "Collateral price used for risk math",
		}, []string{"stale"}),
	}

	registry.MustRegister(c.rpcLatency, c.rpcErrors, c.actions, c.actionTime, c.healthFactor, c.ltv, c.price)
	return c
}

// ObserveRPC records one RPC attempt; it satisfies rpc.Observer.
func (c *Collector) ObserveRPC(method, node string, duration time.Duration, err error) {
	c.rpcLatency.WithLabelValues(method, node).Observe(duration.Seconds())
	if err != nil {
		c.rpcErrors.WithLabelValues(method, node).Inc()
	}
}

// RecordAction counts an action outcome and its duration.
func (c *Collector) RecordAction(action risk.Action, status string, duration time.Duration) {
	c.actions.WithLabelValues(string(action), status).Inc()
	if duration > 0 {
		c.actionTime.WithLabelValues(string(action)).Observe(duration.Seconds())
	}
}

// SetPosition updates the position gauges.
func (c *Collector) SetPosition(m risk.Metrics) {
	if m.Health.Infinite {
		c.healthFactor.Set(math.Inf(1))
	} else {
		c.healthFactor.Set(m.Health.Factor.InexactFloat64())
	}
	c.ltv.Set(m.LTV.InexactFloat64())
}

// SetPrice records the oracle price; stale prices go to a separate series.
func (c *Collector) SetPrice(price decimal.Decimal, stale bool) {
	label := "false"
	if stale {
		label = "true"
	}
	c.price.Reset()
	c.price.WithLabelValues(label).Set(price.InexactFloat64())
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
