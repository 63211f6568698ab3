package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dataforge/dataset-pipeline/internal/blob"
	"github.com/dataforge/dataset-pipeline/internal/events"
	"github.com/dataforge/dataset-pipeline/internal/store"
	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"github.com/dataforge/dataset-pipeline/pkg/metrics"
	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"
)

const interruptedByRestart = "interrupted by restart"

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobTerminal = errors.New("job already in a terminal status")
	ErrNotStarted  = errors.New("scheduler not started")

	errCancelRequested = errors.New("cancellation requested")
	errStopped         = errors.New("interrupted by shutdown")
	errJobLost         = errors.New("job no longer processing")
)

// Progress is a point-in-time view of a job.
type Progress struct {
	JobID                int64           `json:"jobId"`
	Status               model.JobStatus `json:"status"`
	Progress             int             `json:"progress"`
	Stage                string          `json:"stage"`
	InputRecordCount     int             `json:"inputRecordCount"`
	ProcessedRecordCount int             `json:"processedRecordCount"`
	OutputRecordCount    int             `json:"outputRecordCount"`
	PIIDetectedCount     int             `json:"piiDetectedCount"`
	FilteredOutCount     int             `json:"filteredOutCount"`
	Active               bool            `json:"active"`
}

type activeJob struct {
	cancel   context.CancelCauseFunc
	progress Progress
}

// Scheduler runs processing jobs on a fixed number of workers. Pending jobs
// are claimed oldest first.
type Scheduler struct {
	store    store.Store
	blob     blob.Store
	notifier events.Notifier
	logs     *logBook
	now      func() time.Time

	concurrency      int
	batchSize        int
	pollInterval     time.Duration
	logCap           int
	outputKeyPrefix  string
	datasetTTL       time.Duration
	recoverStuckJobs bool

	mu      sync.Mutex
	active  map[int64]*activeJob
	wakeCh  chan struct{}
	stop    context.CancelFunc
	loopCh  chan struct{}
	workers sync.WaitGroup
}

func New(s store.Store, b blob.Store, opts ...Option) *Scheduler {
	sc := &Scheduler{
		store:           s,
		blob:            b,
		notifier:        events.NopNotifier{},
		now:             time.Now,
		concurrency:     defaultConcurrency,
		batchSize:       defaultBatchSize,
		pollInterval:    defaultPollInterval,
		logCap:          defaultLogCap,
		outputKeyPrefix: defaultOutputPrefix,
		active:          make(map[int64]*activeJob),
		wakeCh:          make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(sc)
	}
	sc.logs = newLogBook(sc.logCap)
	return sc
}

// Start launches the dispatch loop. With stuck job recovery enabled, jobs
// left in processing by a previous run are failed first.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return errors.New("scheduler already started")
	}

	if s.recoverStuckJobs {
		n, err := s.store.Job().FailInterrupted(ctx, interruptedByRestart, s.now())
		if err != nil {
			return err
		}
		if n > 0 {
			zap.S().Named("scheduler").Infow("failed jobs interrupted by restart", "count", n)
		}
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.stop = cancel
	s.loopCh = make(chan struct{})
	go s.run(loopCtx)

	zap.S().Named("scheduler").Infow("scheduler started", "concurrency", s.concurrency, "batch_size", s.batchSize)
	return nil
}

// Stop ends the dispatch loop and interrupts running jobs. Interrupted jobs
// are failed. Stop waits for the workers until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stop == nil {
		s.mu.Unlock()
		return nil
	}
	for _, job := range s.active {
		job.cancel(errStopped)
	}
	s.stop()
	loopCh := s.loopCh
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-loopCh
		s.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		zap.S().Named("scheduler").Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue wakes the scheduler for a pending job. Enqueueing a job that is
// already processing is a no-op.
func (s *Scheduler) Enqueue(ctx context.Context, jobID int64) error {
	job, err := s.store.Job().Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return ErrJobNotFound
		}
		return err
	}
	if job.Status.IsTerminal() {
		return ErrJobTerminal
	}

	s.logs.addf(jobID, s.now(), "job enqueued")
	s.wake()
	return nil
}

// Cancel signals a job owned by a worker. It returns false when the job is
// not active. The worker observes the signal at the next batch boundary.
func (s *Scheduler) Cancel(jobID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, found := s.active[jobID]
	if !found {
		return false
	}
	job.cancel(errCancelRequested)
	s.logs.addf(jobID, s.now(), "cancellation requested")
	return true
}

// GetProgress returns the live snapshot of an active job, or the persisted
// state otherwise.
func (s *Scheduler) GetProgress(ctx context.Context, jobID int64) (*Progress, error) {
	s.mu.Lock()
	if job, found := s.active[jobID]; found {
		p := job.progress
		s.mu.Unlock()
		return &p, nil
	}
	s.mu.Unlock()

	job, err := s.store.Job().Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &Progress{
		JobID:                job.ID,
		Status:               job.Status,
		Progress:             job.Progress,
		Stage:                job.Stage,
		InputRecordCount:     job.InputRecordCount,
		ProcessedRecordCount: job.ProcessedRecordCount,
		OutputRecordCount:    job.OutputRecordCount,
		PIIDetectedCount:     job.PIIDetectedCount,
		FilteredOutCount:     job.FilteredOutCount,
	}, nil
}

// GetLogs returns the in-memory log lines of a job, oldest first.
func (s *Scheduler) GetLogs(jobID int64) []LogLine {
	return s.logs.get(jobID)
}

func (s *Scheduler) ActiveJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Scheduler) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.loopCh)

	ticker := jitterbug.New(s.pollInterval, &jitterbug.Norm{Stdev: s.pollInterval / 10, Mean: 0})
	defer ticker.Stop()

	for {
		s.dispatch(ctx)

		select {
		case <-ctx.Done():
			return
		case <-s.wakeCh:
		case <-ticker.C:
		}
	}
}

// dispatch claims as many pending jobs as there are free slots, in
// creation order, and starts a worker for each.
func (s *Scheduler) dispatch(ctx context.Context) {
	s.mu.Lock()
	free := s.concurrency - len(s.active)
	activeIDs := make([]int64, 0, len(s.active))
	for id := range s.active {
		activeIDs = append(activeIDs, id)
	}
	s.mu.Unlock()

	if free <= 0 || ctx.Err() != nil {
		return
	}

	pending, err := s.store.Job().List(ctx,
		store.NewJobQueryFilter().ByStatus(model.JobStatusPending).WithoutIDs(activeIDs),
		store.NewJobQueryOptions().WithSortOrder(store.SortByID).WithLimit(free),
	)
	if err != nil {
		zap.S().Named("scheduler").Errorw("failed to list pending jobs", "error", err)
		return
	}

	for i := range pending {
		job, err := s.store.Job().Claim(ctx, pending[i].ID, s.now())
		if err != nil {
			if !errors.Is(err, store.ErrStaleStatus) {
				zap.S().Named("scheduler").Errorw("failed to claim job", "job_id", pending[i].ID, "error", err)
			}
			continue
		}
		s.launch(ctx, job)
	}
}

func (s *Scheduler) launch(ctx context.Context, job *model.ProcessingJob) {
	// jobs are only ever cancelled with an explicit cause
	jobCtx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))

	s.mu.Lock()
	s.active[job.ID] = &activeJob{
		cancel: cancel,
		progress: Progress{
			JobID:  job.ID,
			Status: model.JobStatusProcessing,
			Stage:  "claimed",
			Active: true,
		},
	}
	// a shutdown between claim and registration must still reach the job
	if ctx.Err() != nil {
		cancel(errStopped)
	}
	metrics.SetActiveJobs(len(s.active))
	s.mu.Unlock()

	s.logs.addf(job.ID, s.now(), "job claimed")
	s.notifier.JobStatus(ctx, events.JobStatusEvent{JobID: job.ID, ProjectID: job.ProjectID, Status: string(model.JobStatusProcessing)})

	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		defer s.release(job.ID, cancel)
		newJobRun(s, jobCtx, job).run()
	}()
}

func (s *Scheduler) release(jobID int64, cancel context.CancelCauseFunc) {
	cancel(nil)

	s.mu.Lock()
	delete(s.active, jobID)
	metrics.SetActiveJobs(len(s.active))
	s.mu.Unlock()

	s.wake()
}

func (s *Scheduler) setProgress(jobID int64, fn func(p *Progress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, found := s.active[jobID]; found {
		fn(&job.progress)
	}
}
