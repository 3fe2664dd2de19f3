package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rainverif"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// count and verify stages.
type Metrics struct {
	StageRunning  *prometheus.GaugeVec     // labels: stage={count,verify}
	StageDuration *prometheus.HistogramVec // labels: stage

	// Count stage.
	RecordsCounted *prometheus.CounterVec // labels: system
	MissingInputs  *prometheus.CounterVec // labels: system, kind={forecast,observation,counts}
	ArraysWritten  *prometheus.CounterVec // labels: kind={counts,summary,curve}

	// Verify stage.
	BootstrapEvaluations *prometheus.CounterVec // labels: system
	DegenerateStatistics *prometheus.CounterVec // labels: system, statistic
	SummariesPublished   prometheus.Counter

	// Observation field cache.
	FieldCache *prometheus.CounterVec // labels: result={hit,miss}
}

func newMetrics() *Metrics {
	return &Metrics{
		StageRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_running",
			Help:      "1 while a pipeline stage is active, 0 otherwise.",
		}, []string{"stage"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_unit_duration_seconds",
			Help:      "Duration of one unit of stage work (a base date or a system/threshold pair).",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"stage"}),
		RecordsCounted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_counted_total",
			Help:      "Exceedance records computed by the count stage.",
		}, []string{"system"}),
		MissingInputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_inputs_total",
			Help:      "Input files that did not exist and were skipped.",
		}, []string{"system", "kind"}),
		ArraysWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arrays_written_total",
			Help:      "Array files persisted, by kind.",
		}, []string{"kind"}),
		BootstrapEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bootstrap_evaluations_total",
			Help:      "Samples evaluated, original plus bootstrap repetitions.",
		}, []string{"system"}),
		DegenerateStatistics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_statistics_total",
			Help:      "Original-sample statistics that came out NaN.",
		}, []string{"system", "statistic"}),
		SummariesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_published_total",
			Help:      "Summary rows published to Kafka.",
		}),
		FieldCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_cache_total",
			Help:      "Observation field cache lookups by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.StageRunning,
		m.StageDuration,
		m.RecordsCounted,
		m.MissingInputs,
		m.ArraysWritten,
		m.BootstrapEvaluations,
		m.DegenerateStatistics,
		m.SummariesPublished,
		m.FieldCache,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}

// ObserveFieldCache records one observation-cache lookup.
func (m *Metrics) ObserveFieldCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.FieldCache.WithLabelValues(result).Inc()
}
