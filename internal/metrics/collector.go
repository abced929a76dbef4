package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/solver"
)

// Metric names
const (
	MetricEvaluations        = "mrl_evaluations_total"
	MetricEvaluationDuration = "mrl_evaluation_duration_seconds"
	MetricObjectiveValue     = "mrl_objective_value"
	MetricBestValue          = "mrl_best_value"
	MetricRuns               = "mrl_runs_total"
	MetricActiveRuns         = "mrl_active_runs"
)

// Run outcome labels
const (
	StatusCompleted = "completed"
	StatusStopped   = "stopped"
	StatusFailed    = "failed"
)

// Collector bundles the Prometheus metrics of optimization runs
type Collector struct {
	gatherer prometheus.Gatherer

	Evaluations        *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec
	ObjectiveValue     *prometheus.HistogramVec
	BestValue          *prometheus.GaugeVec
	Runs               *prometheus.CounterVec
	ActiveRuns         prometheus.Gauge
}

// NewCollector registers run metrics against reg, defaulting to the global
// registry when nil. Registering twice against the same registry reuses the
// existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	evaluations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MetricEvaluations,
		Help: "Objective evaluations recorded by the run loop, labeled by problem and solver.",
	}, []string{"problem", "solver"}), MetricEvaluations)
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    MetricEvaluationDuration,
		Help:    "Wall time of a single objective evaluation in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"problem", "solver"}), MetricEvaluationDuration)
	if err != nil {
		return nil, err
	}

	values, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    MetricObjectiveValue,
		Help:    "Distribution of objective values.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"problem", "objective"}), MetricObjectiveValue)
	if err != nil {
		return nil, err
	}

	best, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: MetricBestValue,
		Help: "Best objective value of the most recent run per problem and solver.",
	}, []string{"problem", "solver"}), MetricBestValue)
	if err != nil {
		return nil, err
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MetricRuns,
		Help: "Finished optimization runs, labeled by solver and outcome.",
	}, []string{"solver", "status"}), MetricRuns)
	if err != nil {
		return nil, err
	}

	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: MetricActiveRuns,
		Help: "Optimization runs currently executing.",
	}), MetricActiveRuns)
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:           gatherer,
		Evaluations:        evaluations,
		EvaluationDuration: durations,
		ObjectiveValue:     values,
		BestValue:          best,
		Runs:               runs,
		ActiveRuns:         active,
	}, nil
}

// Handler exposes the registry as a /metrics handler
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordEvaluation records one objective evaluation
func (c *Collector) RecordEvaluation(problem, solverName, objective string, value float64, duration time.Duration) {
	if c == nil {
		return
	}
	c.Evaluations.WithLabelValues(problem, solverName).Inc()
	c.EvaluationDuration.WithLabelValues(problem, solverName).Observe(duration.Seconds())
	c.ObjectiveValue.WithLabelValues(problem, objectiveLabel(objective)).Observe(value)
}

// RunStarted increments the active run gauge
func (c *Collector) RunStarted() {
	if c == nil {
		return
	}
	c.ActiveRuns.Inc()
}

// RunFinished records the outcome of a run and decrements the active run gauge
func (c *Collector) RunFinished(solverName, status string) {
	if c == nil {
		return
	}
	c.ActiveRuns.Dec()
	c.Runs.WithLabelValues(solverName, status).Inc()
}

// SetBest publishes the incumbent of a run
func (c *Collector) SetBest(problem, solverName string, value float64) {
	if c == nil {
		return
	}
	c.BestValue.WithLabelValues(problem, solverName).Set(value)
}

// RunCallback feeds a Collector from the solver run loop. One RunCallback
// serves one run at a time.
type RunCallback struct {
	solver.BaseCallback
	collector *Collector

	mu   sync.Mutex
	info solver.RunInfo
	open bool
}

// Callback returns a run-loop callback that records into c
func (c *Collector) Callback() *RunCallback {
	return &RunCallback{collector: c}
}

func (r *RunCallback) OnStart(_ context.Context, info solver.RunInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info = info
	r.open = true
	r.collector.RunStarted()
	return nil
}

func (r *RunCallback) OnStep(_ context.Context, state solver.State) error {
	r.mu.Lock()
	info := r.info
	r.mu.Unlock()
	rec := state.Record
	r.collector.RecordEvaluation(info.Problem, info.Solver, info.Objective, rec.Value, time.Duration(rec.DurationSeconds*float64(time.Second)))
	r.collector.SetBest(info.Problem, info.Solver, state.Best.Value)
	return nil
}

func (r *RunCallback) OnEnd(_ context.Context, result *solver.RunResult) error {
	status := StatusCompleted
	if _, stopped := result.Metadata[solver.MetaStopReason]; stopped {
		status = StatusStopped
	}
	r.finish(status)
	return nil
}

// Fail closes a run that ended with an error before OnEnd was reached
func (r *RunCallback) Fail() {
	r.finish(StatusFailed)
}

func (r *RunCallback) finish(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return
	}
	r.open = false
	r.collector.RunFinished(r.info.Solver, status)
}

func objectiveLabel(objective string) string {
	if objective == "" {
		return "default"
	}
	return objective
}
