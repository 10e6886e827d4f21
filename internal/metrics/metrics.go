// Package metrics exports search statistics as Prometheus metrics on a
// private registry. The CLI writes them to a node-exporter textfile after
// each run.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gitrdm/goclafer/pkg/fd"
)

const namespace = "claferfd"

// ErrEmptyModelName is returned by Observe for an unnamed run.
var ErrEmptyModelName = errors.New("metrics: model name is required")

// Recorder holds the collectors of one process. Every metric carries a
// "model" label.
type Recorder struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	instances    *prometheus.CounterVec
	nodes        *prometheus.CounterVec
	backtracks   *prometheus.CounterVec
	restarts     *prometheus.CounterVec
	propagations *prometheus.CounterVec
	failures     *prometheus.CounterVec
	propagators  *prometheus.GaugeVec
	peakTrail    *prometheus.GaugeVec
	maxDepth     *prometheus.GaugeVec
	searchTime   *prometheus.HistogramVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: name, Help: help,
		}, append([]string{"model"}, labels...))
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: name, Help: help,
		}, []string{"model"})
	}
	r := &Recorder{
		registry:     prometheus.NewRegistry(),
		runs:         counter("runs_total", "Searches run, by final state.", "state"),
		instances:    counter("instances_total", "Instances reported."),
		nodes:        counter("nodes_total", "Decisions taken."),
		backtracks:   counter("backtracks_total", "Refuted branches."),
		restarts:     counter("restarts_total", "Restarts in restart mode."),
		propagations: counter("propagations_total", "Propagator executions."),
		failures:     counter("contradictions_total", "Failed fixpoint runs."),
		propagators:  gauge("propagators", "Propagators posted by the last compiled model."),
		peakTrail:    gauge("peak_trail_size", "Peak size of the undo trail in the last search."),
		maxDepth:     gauge("max_depth", "Deepest decision stack in the last search."),
		searchTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_seconds",
			Help:      "Wall time of a search.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"model"}),
	}
	r.registry.MustRegister(r.runs, r.instances, r.nodes, r.backtracks, r.restarts,
		r.propagations, r.failures, r.propagators, r.peakTrail, r.maxDepth, r.searchTime)
	return r
}

// Registry returns the registry the collectors are registered on.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Observe records one finished search of model.
func (r *Recorder) Observe(model string, state fd.State, stats fd.SolverStats) error {
	if model == "" {
		return ErrEmptyModelName
	}
	r.runs.WithLabelValues(model, state.String()).Inc()
	r.instances.WithLabelValues(model).Add(float64(stats.SolutionsFound))
	r.nodes.WithLabelValues(model).Add(float64(stats.NodesExplored))
	r.backtracks.WithLabelValues(model).Add(float64(stats.Backtracks))
	r.restarts.WithLabelValues(model).Add(float64(stats.Restarts))
	r.propagations.WithLabelValues(model).Add(float64(stats.PropagationCount))
	r.failures.WithLabelValues(model).Add(float64(stats.Contradictions))
	r.propagators.WithLabelValues(model).Set(float64(stats.Propagators))
	r.peakTrail.WithLabelValues(model).Set(float64(stats.PeakTrailSize))
	r.maxDepth.WithLabelValues(model).Set(float64(stats.MaxDepth))
	r.searchTime.WithLabelValues(model).Observe(stats.SearchTime.Seconds())
	return nil
}

// WriteTextfile writes the current metrics in the text exposition format,
// atomically replacing path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
