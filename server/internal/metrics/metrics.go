package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names. The agent probe reads the same names.
const (
	ProducedTotal     = "tidepool_items_produced_total"
	ConsumedTotal     = "tidepool_items_consumed_total"
	ConsumeEmptyTotal = "tidepool_consume_empty_total"
	ExpiredTotal      = "tidepool_items_expired_total"
	ContainerItems    = "tidepool_container_items"
	ContainerLimit    = "tidepool_container_threshold"
)

// Metrics holds the collectors for one container.
type Metrics struct {
	reg *prometheus.Registry

	produced     prometheus.Counter
	consumed     *prometheus.CounterVec
	consumeEmpty prometheus.Counter
	expired      prometheus.Counter
	items        prometheus.Gauge
	threshold    prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		produced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: ProducedTotal,
			Help: "Items appended to the container.",
		}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: ConsumedTotal,
			Help: "Items removed by consume, by removal policy.",
		}, []string{"policy"}),
		consumeEmpty: prometheus.NewCounter(prometheus.CounterOpts{
			Name: ConsumeEmptyTotal,
			Help: "Consume calls against an empty container.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: ExpiredTotal,
			Help: "Items removed by the TTL sweeper.",
		}),
		items: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: ContainerItems,
			Help: "Items currently held in the container.",
		}),
		threshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: ContainerLimit,
			Help: "Occupancy at which consume switches to stack mode.",
		}),
	}
	m.reg.MustRegister(m.produced, m.consumed, m.consumeEmpty, m.expired, m.items, m.threshold)
	return m
}

// Produced records one produce and the resulting size.
func (m *Metrics) Produced(size int) {
	m.produced.Inc()
	m.items.Set(float64(size))
}

// Consumed records one consume. policy is "queue", "stack" or "none"; "none"
// counts as an empty consume.
func (m *Metrics) Consumed(policy string, size int) {
	if policy == "none" {
		m.consumeEmpty.Inc()
	} else {
		m.consumed.WithLabelValues(policy).Inc()
	}
	m.items.Set(float64(size))
}

// Expired records n items removed by a sweep and the resulting size.
func (m *Metrics) Expired(n, size int) {
	m.expired.Add(float64(n))
	m.items.Set(float64(size))
}

// SetThreshold publishes the active threshold.
func (m *Metrics) SetThreshold(n int) {
	m.threshold.Set(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
