package metrics

import (
	"context"
	"fmt"

	"github.com/dataforge/dataset-pipeline/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type jobStatsCollector struct {
	store        store.Store
	jobsByStatus *prometheus.Desc
	datasets     *prometheus.Desc
}

// NewJobStatsCollector reports the persisted job and dataset counts on every scrape.
func NewJobStatsCollector(s store.Store) prometheus.Collector {
	fqName := func(name string) string {
		return fmt.Sprintf("%s_store_%s", pipelineSubsystem, name)
	}

	return &jobStatsCollector{
		store: s,
		jobsByStatus: prometheus.NewDesc(
			fqName("jobs"),
			"Number of persisted jobs by status.",
			[]string{jobStatusLabel},
			prometheus.Labels{},
		),
		datasets: prometheus.NewDesc(
			fqName("datasets"),
			"Number of datasets which are not deleted.",
			nil,
			prometheus.Labels{},
		),
	}
}

func (c *jobStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.jobsByStatus
	ch <- c.datasets
}

// Collect implements Collector.
func (c *jobStatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx := context.Background()

	counts, err := c.store.Job().CountByStatus(ctx)
	if err != nil {
		zap.S().Named("job_collector").Errorf("failed to collect job statistics: %s", err)
		return
	}
	for status, total := range counts {
		ch <- prometheus.MustNewConstMetric(c.jobsByStatus, prometheus.GaugeValue, float64(total), string(status))
	}

	datasets, err := c.store.Dataset().Count(ctx)
	if err != nil {
		zap.S().Named("job_collector").Errorf("failed to collect dataset statistics: %s", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.datasets, prometheus.GaugeValue, float64(datasets))
}
