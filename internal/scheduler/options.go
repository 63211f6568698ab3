package scheduler

import (
	"time"

	"github.com/dataforge/dataset-pipeline/internal/events"
)

const (
	defaultConcurrency  = 2
	defaultBatchSize    = 100
	defaultPollInterval = 2 * time.Second
	defaultLogCap       = 1000
	defaultOutputPrefix = "datasets"
)

type Option func(s *Scheduler)

// WithConcurrency bounds the number of jobs processed at the same time.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithBatchSize sets the batch size used for jobs whose config has none.
func WithBatchSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithPollInterval sets the safety-net poll period used while idle.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

func WithLogCap(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.logCap = n
		}
	}
}

func WithNotifier(n events.Notifier) Option {
	return func(s *Scheduler) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithOutputKeyPrefix(prefix string) Option {
	return func(s *Scheduler) {
		if prefix != "" {
			s.outputKeyPrefix = prefix
		}
	}
}

// WithDatasetTTL sets the expiry of produced datasets. Zero means no expiry.
func WithDatasetTTL(ttl time.Duration) Option {
	return func(s *Scheduler) {
		s.datasetTTL = ttl
	}
}

// WithRecoverStuckJobs makes Start fail the jobs left in processing by a
// previous run.
func WithRecoverStuckJobs(enabled bool) Option {
	return func(s *Scheduler) {
		s.recoverStuckJobs = enabled
	}
}
