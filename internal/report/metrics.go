package report

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// Metrics holds the generation gauges on a private registry so repeated runs
// in one process never collide with the default registry.
type Metrics struct {
	registry *prometheus.Registry

	rows          *prometheus.GaugeVec
	target        *prometheus.GaugeVec
	stageSessions *prometheus.GaugeVec
	stageEvents   *prometheus.GaugeVec
	abConversion  *prometheus.GaugeVec
	revenue       prometheus.Gauge
	aov           prometheus.Gauge
	noiseRate     *prometheus.GaugeVec
	elapsed       prometheus.Gauge
}

// NewMetrics registers every collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ecomsim_rows",
				Help: "Generated rows by table.",
			},
			[]string{"table"},
		),
		target: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ecomsim_target_rows",
				Help: "Configured row targets by table.",
			},
			[]string{"table"},
		),
		stageSessions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ecomsim_funnel_sessions",
				Help: "Sessions reaching each funnel stage.",
			},
			[]string{"stage"},
		),
		stageEvents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ecomsim_funnel_events",
				Help: "Events emitted per funnel stage.",
			},
			[]string{"stage"},
		),
		abConversion: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ecomsim_ab_conversion_ratio",
				Help: "Checkout to purchase conversion by experiment arm.",
			},
			[]string{"variant"},
		),
		revenue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ecomsim_revenue",
			Help: "Revenue of successful orders.",
		}),
		aov: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ecomsim_average_order_value",
			Help: "Average value of successful orders.",
		}),
		noiseRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ecomsim_noise_ratio",
				Help: "Fraction of events with a corrupted session_id, by kind.",
			},
			[]string{"kind"},
		),
		elapsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ecomsim_generation_seconds",
			Help: "Wall time of the generation run.",
		}),
	}

	m.registry.MustRegister(
		m.rows, m.target, m.stageSessions, m.stageEvents,
		m.abConversion, m.revenue, m.aov, m.noiseRate, m.elapsed,
	)
	return m
}

// Observe records a summary.
func (m *Metrics) Observe(s Summary) {
	m.rows.WithLabelValues("users").Set(float64(s.Users))
	m.rows.WithLabelValues("sessions").Set(float64(s.Sessions))
	m.rows.WithLabelValues("events").Set(float64(s.Events))
	m.rows.WithLabelValues("orders").Set(float64(s.Orders))

	m.target.WithLabelValues("sessions").Set(float64(s.TargetSessions))
	m.target.WithLabelValues("events").Set(float64(s.TargetEvents))
	m.target.WithLabelValues("orders").Set(float64(s.TargetOrders))

	for _, et := range types.EventTypes() {
		m.stageSessions.WithLabelValues(et.String()).Set(float64(s.SessionsReaching[et]))
		m.stageEvents.WithLabelValues(et.String()).Set(float64(s.EventCounts[et]))
	}
	for _, v := range types.Variants() {
		m.abConversion.WithLabelValues(string(v)).Set(s.AB[v].Rate)
	}

	m.revenue.Set(s.Revenue)
	m.aov.Set(s.AOV)
	m.noiseRate.WithLabelValues("missing").Set(s.MissingSessionRate)
	m.noiseRate.WithLabelValues("duplicate").Set(s.DuplicateRate)
}

// ObserveElapsed records the generation wall time in seconds.
func (m *Metrics) ObserveElapsed(seconds float64) {
	m.elapsed.Set(seconds)
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
