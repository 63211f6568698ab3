package scheduler

import (
	"context"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dataforge/dataset-pipeline/internal/codec"
	"github.com/dataforge/dataset-pipeline/internal/events"
	"github.com/dataforge/dataset-pipeline/internal/store"
	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"github.com/dataforge/dataset-pipeline/internal/transform"
	"github.com/dataforge/dataset-pipeline/pkg/log"
	"github.com/dataforge/dataset-pipeline/pkg/metrics"
	"github.com/pkg/errors"
)

// jobRun carries one claimed job through fetch, decode, transform, encode
// and store. ctx is the cancellation token of the job, dbCtx outlives it so
// the terminal status can still be written.
type jobRun struct {
	s         *Scheduler
	job       *model.ProcessingJob
	ctx       context.Context
	dbCtx     context.Context
	counters  store.JobProgress
	piiFields int
	tracer    *log.OperationTracer
	startedAt time.Time
}

func newJobRun(s *Scheduler, ctx context.Context, job *model.ProcessingJob) *jobRun {
	dbCtx := context.WithoutCancel(ctx)
	return &jobRun{
		s:     s,
		job:   job,
		ctx:   ctx,
		dbCtx: dbCtx,
		tracer: log.NewDebugLogger("scheduler").
			WithContext(dbCtx).
			Operation("process_job").
			WithInt64("job_id", job.ID).
			WithString("project_id", job.ProjectID).
			WithUUID("data_source_id", job.DataSourceID).
			Build(),
		startedAt: s.now(),
	}
}

func (r *jobRun) run() {
	dataset, err := r.execute()
	if err == nil {
		r.finished(model.JobStatusCompleted, "", dataset)
		return
	}

	// an interrupted fetch or store reports context.Canceled, the cause says why
	if cause := context.Cause(r.ctx); cause != nil && (errors.Is(err, context.Canceled) || errors.Is(err, cause)) {
		err = cause
	}

	switch {
	case errors.Is(err, errJobLost):
		r.logf("job left processing elsewhere, dropping the result")
		r.tracer.Step("job_lost").Log()
	case errors.Is(err, errCancelRequested):
		r.finish(model.JobStatusCancelled, "")
	case errors.Is(err, errStopped):
		r.finish(model.JobStatusFailed, errStopped.Error())
	default:
		r.finish(model.JobStatusFailed, err.Error())
	}
}

func (r *jobRun) execute() (dataset *model.Dataset, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("internal error: %v", p)
		}
	}()

	if err := r.checkCancelled(); err != nil {
		return nil, err
	}

	r.setStage("fetching")
	source, err := r.s.store.DataSource().Get(r.dbCtx, r.job.DataSourceID)
	if err != nil {
		return nil, errors.Wrap(err, "loading data source")
	}
	inputFormat, err := codec.ParseFormat(source.Format)
	if err != nil {
		return nil, err
	}
	data, err := r.s.blob.Fetch(r.ctx, source.StorageKey)
	if err != nil {
		return nil, errors.Wrap(err, "fetching source blob")
	}
	r.logf("fetched %d bytes from %s", len(data), source.StorageKey)

	r.setStage("decoding")
	records, err := codec.Decode(data, inputFormat)
	if err != nil {
		return nil, errors.Wrap(err, "decoding source")
	}
	r.logf("decoded %d %s records", len(records), inputFormat)

	cfg := r.config()
	transformer, err := transform.New(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "building transformer")
	}

	output, err := r.transform(transformer, records, cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	if err := r.checkCancelled(); err != nil {
		return nil, err
	}

	r.setStage("encoding")
	encoded, err := codec.Encode(output, cfg.OutputFormat)
	if err != nil {
		return nil, errors.Wrap(err, "encoding output")
	}

	r.setStage("storing")
	key := r.outputKey(cfg.OutputFormat)
	if err := r.s.blob.Store(r.ctx, key, encoded, codec.ContentType(cfg.OutputFormat)); err != nil {
		return nil, errors.Wrap(err, "storing output blob")
	}
	r.logf("stored %d bytes under %s", len(encoded), key)

	return r.complete(source, key, int64(len(encoded)), cfg.OutputFormat)
}

// config resolves the batch size and output format of the job.
func (r *jobRun) config() *transform.Config {
	cfg := &transform.Config{}
	if r.job.Config != nil {
		c := *r.job.Config
		cfg = &c
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = r.s.batchSize
	}
	if r.job.OutputFormat != "" {
		cfg.OutputFormat = codec.Format(r.job.OutputFormat)
	}
	return cfg.WithDefaults()
}

// transform runs the records through t in batches. Cancellation is checked
// before every batch, never within one.
func (r *jobRun) transform(t *transform.Transformer, records []*codec.Record, batchSize int) ([]*codec.Record, error) {
	total := len(records)
	r.counters.InputRecordCount = total
	output := make([]*codec.Record, 0, total)

	for start := 0; start < total; start += batchSize {
		if err := r.checkCancelled(); err != nil {
			return nil, err
		}

		end := min(start+batchSize, total)
		for i, record := range records[start:end] {
			result, err := transformRecord(t, record)
			if err != nil {
				return nil, errors.Wrapf(err, "transforming record %d", start+i+1)
			}
			r.counters.ProcessedRecordCount++
			if result.Filtered {
				r.counters.FilteredOutCount++
				continue
			}
			if result.PIIFields > 0 {
				r.counters.PIIDetectedCount++
				r.piiFields += result.PIIFields
			}
			output = append(output, result.Record)
		}
		r.counters.OutputRecordCount = len(output)
		r.counters.Progress = percent(r.counters.ProcessedRecordCount, total)

		if err := r.persistProgress("transforming"); err != nil {
			return nil, err
		}
		metrics.AddRecordsProcessed(end - start)
	}
	metrics.AddPIIFields("any", r.piiFields)

	r.logf("transformed %d records: %d kept, %d filtered out, %d with pii",
		total, r.counters.OutputRecordCount, r.counters.FilteredOutCount, r.counters.PIIDetectedCount)
	return output, nil
}

func transformRecord(t *transform.Transformer, record *codec.Record) (result transform.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	return t.Transform(record), nil
}

// checkCancelled looks at the cancellation token and at the persisted flag,
// which is also set for jobs cancelled before they were claimed.
func (r *jobRun) checkCancelled() error {
	if cause := context.Cause(r.ctx); cause != nil {
		return cause
	}
	job, err := r.s.store.Job().Get(r.dbCtx, r.job.ID)
	if err != nil {
		return errors.Wrap(err, "reading job")
	}
	if job.Status != model.JobStatusProcessing {
		return errJobLost
	}
	if job.CancelRequested {
		return errCancelRequested
	}
	return nil
}

func (r *jobRun) setStage(stage string) {
	if err := r.persistProgress(stage); err != nil {
		// the stage label is informative only
		r.tracer.Step("persist_stage").WithString("stage", stage).WithParam("error", err.Error()).Log()
	}
}

func (r *jobRun) persistProgress(stage string) error {
	r.counters.Stage = stage
	if err := r.s.store.Job().UpdateProgress(r.dbCtx, r.job.ID, r.counters); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return errJobLost
		}
		return errors.Wrap(err, "persisting progress")
	}

	counters := r.counters
	r.s.setProgress(r.job.ID, func(p *Progress) {
		p.Progress = counters.Progress
		p.Stage = counters.Stage
		p.InputRecordCount = counters.InputRecordCount
		p.ProcessedRecordCount = counters.ProcessedRecordCount
		p.OutputRecordCount = counters.OutputRecordCount
		p.PIIDetectedCount = counters.PIIDetectedCount
		p.FilteredOutCount = counters.FilteredOutCount
	})
	r.s.notifier.JobProgress(r.dbCtx, events.JobProgressEvent{
		JobID:            r.job.ID,
		ProjectID:        r.job.ProjectID,
		Progress:         counters.Progress,
		Stage:            counters.Stage,
		ProcessedRecords: counters.ProcessedRecordCount,
		InputRecords:     counters.InputRecordCount,
	})
	return nil
}

// complete creates the dataset and marks the job completed in one
// transaction: either both land or neither does.
func (r *jobRun) complete(source *model.DataSource, key string, size int64, format codec.Format) (*model.Dataset, error) {
	txCtx, err := r.s.store.NewTransactionContext(r.dbCtx)
	if err != nil {
		return nil, errors.Wrap(err, "starting transaction")
	}

	now := r.s.now()
	dataset := model.Dataset{
		ProjectID:    r.job.ProjectID,
		JobID:        &r.job.ID,
		DataSourceID: source.ID,
		Name:         r.datasetName(source),
		Format:       string(format),
		RecordCount:  r.counters.OutputRecordCount,
		FileSize:     size,
		StorageKey:   key,
	}
	if r.s.datasetTTL > 0 {
		expiresAt := now.Add(r.s.datasetTTL)
		dataset.ExpiresAt = &expiresAt
	}

	created, err := r.s.store.Dataset().Create(txCtx, dataset)
	if err != nil {
		_, _ = store.Rollback(txCtx)
		return nil, errors.Wrap(err, "creating dataset")
	}

	r.counters.Progress = 100
	r.counters.Stage = string(model.JobStatusCompleted)
	counters := r.counters
	err = r.s.store.Job().Finish(txCtx, r.job.ID, store.JobCompletion{
		Status:      model.JobStatusCompleted,
		Counters:    &counters,
		CompletedAt: now,
	})
	if err != nil {
		_, _ = store.Rollback(txCtx)
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, errJobLost
		}
		return nil, errors.Wrap(err, "completing job")
	}

	if _, err := store.Commit(txCtx); err != nil {
		return nil, errors.Wrap(err, "committing completion")
	}
	return created, nil
}

// finish writes a failed or cancelled status. A job already terminal keeps
// its status.
func (r *jobRun) finish(status model.JobStatus, message string) {
	counters := r.counters
	counters.Stage = string(status)
	err := r.s.store.Job().Finish(r.dbCtx, r.job.ID, store.JobCompletion{
		Status:       status,
		ErrorMessage: message,
		Counters:     &counters,
		CompletedAt:  r.s.now(),
	})
	if err != nil {
		r.logf("failed to record %s status: %s", status, err)
		r.tracer.Error(err).WithString("status", string(status)).Log()
		return
	}
	r.finished(status, message, nil)
}

func (r *jobRun) finished(status model.JobStatus, message string, dataset *model.Dataset) {
	if message != "" {
		r.logf("job %s: %s", status, message)
	} else {
		r.logf("job %s", status)
	}

	metrics.IncreaseJobsTotalMetric(string(status))
	metrics.ObserveJobDuration(string(status), r.s.now().Sub(r.startedAt).Seconds())

	event := events.JobStatusEvent{
		JobID:        r.job.ID,
		ProjectID:    r.job.ProjectID,
		Status:       string(status),
		ErrorMessage: message,
	}
	if dataset != nil {
		event.DatasetID = dataset.ID.String()
	}
	r.s.notifier.JobStatus(r.dbCtx, event)

	r.tracer.Success().
		WithString("status", string(status)).
		WithInt("input_records", r.counters.InputRecordCount).
		WithInt("output_records", r.counters.OutputRecordCount).
		WithInt("filtered_out", r.counters.FilteredOutCount).
		WithInt("pii_records", r.counters.PIIDetectedCount).
		Log()
}

func (r *jobRun) logf(format string, args ...any) {
	r.s.logs.addf(r.job.ID, r.s.now(), format, args...)
}

func (r *jobRun) outputKey(format codec.Format) string {
	return path.Join(r.s.outputKeyPrefix, r.job.ProjectID, strconv.FormatInt(r.job.ID, 10)+"."+format.Extension())
}

func (r *jobRun) datasetName(source *model.DataSource) string {
	if r.job.OutputName != "" {
		return r.job.OutputName
	}
	base := strings.TrimSuffix(source.Name, path.Ext(source.Name))
	return fmt.Sprintf("%s-processed-%d", base, r.job.ID)
}

func percent(done, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
