package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the detection pipeline.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	StageDuration      *prometheus.HistogramVec
	StageFailures      *prometheus.CounterVec
	StageTriggersTotal *prometheus.CounterVec
}

// NewMetrics registers and returns pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "darkwatch_pipeline_runs_total",
			Help: "Total full pipeline runs by terminal state.",
		}, []string{"state"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "darkwatch_pipeline_run_duration_seconds",
			Help:    "Duration of full pipeline runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "darkwatch_pipeline_stage_duration_seconds",
			Help:    "Duration of individual detection stages in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		}, []string{"stage"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "darkwatch_pipeline_stage_failures_total",
			Help: "Stage failures that halted a full run, by stage.",
		}, []string{"stage"}),
		StageTriggersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "darkwatch_pipeline_stage_triggers_total",
			Help: "Independent single-stage trigger invocations by stage and outcome.",
		}, []string{"stage", "outcome"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.StageDuration,
		m.StageFailures,
		m.StageTriggersTotal,
	)

	return m
}
