package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	pipelineSubsystem = "pipeline"

	// Job metrics
	jobsTotal         = "jobs_total"
	activeJobs        = "active_jobs"
	jobDurationSecond = "job_duration_seconds"

	// Record metrics
	recordsProcessedTotal = "records_processed_total"
	piiFieldsTotal        = "pii_fields_total"

	// Labels
	jobStatusLabel = "status"
	piiTypeLabel   = "type"
)

var jobStatusLabels = []string{
	jobStatusLabel,
}

/**
* Metrics definition
**/
var jobsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: pipelineSubsystem,
		Name:      jobsTotal,
		Help:      "number of jobs which reached a terminal status",
	},
	jobStatusLabels,
)

var activeJobsMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: pipelineSubsystem,
		Name:      activeJobs,
		Help:      "number of jobs currently owned by a worker",
	},
)

var jobDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: pipelineSubsystem,
		Name:      jobDurationSecond,
		Help:      "wall time between claim and terminal status",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	},
	jobStatusLabels,
)

var recordsProcessedMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: pipelineSubsystem,
		Name:      recordsProcessedTotal,
		Help:      "number of records run through the transformer",
	},
)

var piiFieldsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: pipelineSubsystem,
		Name:      piiFieldsTotal,
		Help:      "number of record fields in which pii was detected",
	},
	[]string{piiTypeLabel},
)

func IncreaseJobsTotalMetric(status string) {
	jobsTotalMetric.With(prometheus.Labels{jobStatusLabel: status}).Inc()
}

func ObserveJobDuration(status string, seconds float64) {
	jobDurationMetric.With(prometheus.Labels{jobStatusLabel: status}).Observe(seconds)
}

func SetActiveJobs(count int) {
	activeJobsMetric.Set(float64(count))
}

func AddRecordsProcessed(count int) {
	recordsProcessedMetric.Add(float64(count))
}

// AddPIIFields counts fields with detected pii. The scheduler reports the
// aggregate only, under the "any" type.
func AddPIIFields(piiType string, count int) {
	if count <= 0 {
		return
	}
	piiFieldsMetric.With(prometheus.Labels{piiTypeLabel: piiType}).Add(float64(count))
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsTotalMetric)
	prometheus.MustRegister(activeJobsMetric)
	prometheus.MustRegister(jobDurationMetric)
	prometheus.MustRegister(recordsProcessedMetric)
	prometheus.MustRegister(piiFieldsMetric)
}
