package service

import (
	"context"
	"errors"

	"github.com/dataforge/dataset-pipeline/internal/codec"
	"github.com/dataforge/dataset-pipeline/internal/scheduler"
	"github.com/dataforge/dataset-pipeline/internal/service/mappers"
	"github.com/dataforge/dataset-pipeline/internal/store"
	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"github.com/dataforge/dataset-pipeline/internal/transform"
	"github.com/dataforge/dataset-pipeline/pkg/log"
	"github.com/thoas/go-funk"
)

// outputFormats are the formats a job can produce.
var outputFormats = []string{string(codec.FormatJSON), string(codec.FormatJSONL), string(codec.FormatCSV)}

// JobScheduler is the part of the scheduler used by request handling.
type JobScheduler interface {
	Enqueue(ctx context.Context, jobID int64) error
	Cancel(jobID int64) bool
	GetProgress(ctx context.Context, jobID int64) (*scheduler.Progress, error)
	GetLogs(jobID int64) []scheduler.LogLine
}

type JobService struct {
	store     store.Store
	scheduler JobScheduler
	logger    *log.StructuredLogger
}

func NewJobService(store store.Store, scheduler JobScheduler) *JobService {
	return &JobService{
		store:     store,
		scheduler: scheduler,
		logger:    log.NewDebugLogger("job_service"),
	}
}

// SubmitJob validates the request, persists a pending job and hands it to
// the scheduler. Nothing is persisted when validation fails.
func (s *JobService) SubmitJob(ctx context.Context, form mappers.JobSubmitForm) (*model.ProcessingJob, error) {
	tracer := s.logger.WithContext(ctx).
		Operation("submit_job").
		WithString("project_id", form.ProjectID).
		WithUUID("data_source_id", form.DataSourceID).
		WithUUIDPtr("schema_mapping_id", form.SchemaMappingID).
		Build()

	source, err := s.store.DataSource().Get(ctx, form.DataSourceID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrDataSourceNotFound(form.DataSourceID)
		}
		return nil, err
	}
	if source.ProjectID != form.ProjectID {
		return nil, NewErrDataSourceNotFound(form.DataSourceID)
	}
	if !source.IsReady() {
		return nil, NewErrDataSourceNotReady(source.ID, string(source.Status))
	}
	if _, err := codec.ParseFormat(source.Format); err != nil {
		return nil, NewErrUnsupportedFormat(source.Format, []string{"csv", "json", "jsonl", "xlsx"})
	}

	cfg, err := s.resolveConfig(ctx, form)
	if err != nil {
		return nil, err
	}

	job, err := s.store.Job().Create(ctx, form.ToJob(cfg))
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}
	tracer.Step("job_created").WithInt64("job_id", job.ID).Log()

	// a job the scheduler was not told about is still picked up by its poll
	if err := s.scheduler.Enqueue(ctx, job.ID); err != nil {
		tracer.Step("enqueue_failed").WithParam("error", err.Error()).Log()
	}

	tracer.Success().WithInt64("job_id", job.ID).WithString("output_format", job.OutputFormat).Log()
	return job, nil
}

// resolveConfig picks the schema mapping config or the inline one, applies
// the requested output format and validates the result.
func (s *JobService) resolveConfig(ctx context.Context, form mappers.JobSubmitForm) (*transform.Config, error) {
	var base *transform.Config
	if form.SchemaMappingID != nil {
		mapping, err := s.store.SchemaMapping().Get(ctx, *form.SchemaMappingID)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return nil, NewErrSchemaMappingNotFound(*form.SchemaMappingID)
			}
			return nil, err
		}
		if mapping.ProjectID != form.ProjectID {
			return nil, NewErrSchemaMappingNotFound(*form.SchemaMappingID)
		}
		base = mapping.Config
	} else {
		base = form.Config
	}

	cfg := &transform.Config{}
	if base != nil {
		c := *base
		cfg = &c
	}

	if form.OutputFormat != "" {
		format, err := codec.ParseFormat(form.OutputFormat)
		if err != nil || !funk.ContainsString(outputFormats, string(format)) {
			return nil, NewErrUnsupportedFormat(form.OutputFormat, outputFormats)
		}
		cfg.OutputFormat = format
	}
	cfg = cfg.WithDefaults()

	if _, err := transform.New(cfg); err != nil {
		return nil, NewErrInvalidProcessingConfig(err)
	}
	return cfg, nil
}

func (s *JobService) GetJob(ctx context.Context, id int64) (*model.ProcessingJob, error) {
	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}

// ListJobs returns the jobs of a project, newest first.
func (s *JobService) ListJobs(ctx context.Context, projectID string, statuses ...model.JobStatus) (model.ProcessingJobList, error) {
	filter := store.NewJobQueryFilter().ByProjectID(projectID)
	if len(statuses) > 0 {
		filter = filter.ByStatus(statuses...)
	}
	return s.store.Job().List(ctx, filter, store.NewJobQueryOptions().WithSortOrder(store.SortByIDDesc))
}

func (s *JobService) GetJobProgress(ctx context.Context, id int64) (*scheduler.Progress, error) {
	progress, err := s.scheduler.GetProgress(ctx, id)
	if err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}
	return progress, nil
}

func (s *JobService) GetJobLogs(ctx context.Context, id int64) ([]scheduler.LogLine, error) {
	if _, err := s.GetJob(ctx, id); err != nil {
		return nil, err
	}
	return s.scheduler.GetLogs(id), nil
}

// CancelJob flags the job and signals its worker. The worker writes the
// cancelled status when it reaches the next batch boundary, so the returned
// job may still be processing.
func (s *JobService) CancelJob(ctx context.Context, id int64) (*model.ProcessingJob, error) {
	tracer := s.logger.WithContext(ctx).Operation("cancel_job").WithInt64("job_id", id).Build()

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, NewErrJobNotCancellable(id, string(job.Status))
	}

	job, err = s.store.Job().RequestCancel(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			// finished in the meantime
			latest, getErr := s.GetJob(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			return nil, NewErrJobNotCancellable(id, string(latest.Status))
		}
		tracer.Error(err).Log()
		return nil, err
	}

	signalled := s.scheduler.Cancel(id)
	tracer.Success().WithBool("worker_signalled", signalled).WithString("status", string(job.Status)).Log()
	return job, nil
}
