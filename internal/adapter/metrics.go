package adapter

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// MetricsRecorder receives evaluation events.
type MetricsRecorder interface {
	ObserveExample(levelReached int, elapsed time.Duration)
	ObserveFault(level int, kind m.FaultKind)
	ObserveMutations(tested, killed int)
	ObserveVerdict(checker string, outcome m.Outcome)
}

// NopMetrics discards every event.
type NopMetrics struct{}

func (NopMetrics) ObserveExample(int, time.Duration) {}
func (NopMetrics) ObserveFault(int, m.FaultKind)     {}
func (NopMetrics) ObserveMutations(int, int)         {}
func (NopMetrics) ObserveVerdict(string, m.Outcome)  {}

// PrometheusMetrics records evaluation events on a private registry that
// can be written out as a node_exporter textfile.
type PrometheusMetrics struct {
	registry      *prometheus.Registry
	examples      *prometheus.CounterVec
	duration      prometheus.Histogram
	faults        *prometheus.CounterVec
	mutantsTested prometheus.Counter
	mutantsKilled prometheus.Counter
	verdicts      *prometheus.CounterVec
}

// NewPrometheusMetrics registers the oracle collectors on a fresh registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,
		examples: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tcoracle_examples_total",
			Help: "Examples evaluated by the level that settled them",
		}, []string{"level"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tcoracle_example_duration_seconds",
			Help:    "Wall time spent evaluating one example",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		faults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tcoracle_faults_total",
			Help: "Faults found by level and kind",
		}, []string{"level", "kind"}),
		mutantsTested: factory.NewCounter(prometheus.CounterOpts{
			Name: "tcoracle_mutants_tested_total",
			Help: "Mutants that ran to a classified outcome",
		}),
		mutantsKilled: factory.NewCounter(prometheus.CounterOpts{
			Name: "tcoracle_mutants_killed_total",
			Help: "Mutants killed by a type-classified crash",
		}),
		verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tcoracle_verdicts_total",
			Help: "Verdicts by analyzer and outcome",
		}, []string{"checker", "outcome"}),
	}
}

func (p *PrometheusMetrics) ObserveExample(levelReached int, elapsed time.Duration) {
	p.examples.WithLabelValues(strconv.Itoa(levelReached)).Inc()
	p.duration.Observe(elapsed.Seconds())
}

func (p *PrometheusMetrics) ObserveFault(level int, kind m.FaultKind) {
	p.faults.WithLabelValues(strconv.Itoa(level), string(kind)).Inc()
}

func (p *PrometheusMetrics) ObserveMutations(tested, killed int) {
	p.mutantsTested.Add(float64(tested))
	p.mutantsKilled.Add(float64(killed))
}

func (p *PrometheusMetrics) ObserveVerdict(checker string, outcome m.Outcome) {
	p.verdicts.WithLabelValues(checker, string(outcome)).Inc()
}

// WriteTextfile writes the current values in the Prometheus text format.
func (p *PrometheusMetrics) WriteTextfile(path m.Path) error {
	if err := prometheus.WriteToTextfile(string(path), p.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}

	return nil
}
