package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SortOrder int

const (
	Unsorted SortOrder = iota
	SortByID
	SortByIDDesc
	SortByCreatedTime
)

// JobProgress is the set of counters persisted after every batch.
type JobProgress struct {
	Progress             int
	Stage                string
	InputRecordCount     int
	ProcessedRecordCount int
	OutputRecordCount    int
	PIIDetectedCount     int
	FilteredOutCount     int
}

func (p JobProgress) columns() map[string]any {
	return map[string]any{
		"progress":               p.Progress,
		"stage":                  p.Stage,
		"input_record_count":     p.InputRecordCount,
		"processed_record_count": p.ProcessedRecordCount,
		"output_record_count":    p.OutputRecordCount,
		"pii_detected_count":     p.PIIDetectedCount,
		"filtered_out_count":     p.FilteredOutCount,
	}
}

// JobCompletion moves a processing job to a terminal status.
type JobCompletion struct {
	Status       model.JobStatus
	ErrorMessage string
	// Counters, when set, are written together with the status.
	Counters    *JobProgress
	CompletedAt time.Time
}

type Job interface {
	Create(ctx context.Context, job model.ProcessingJob) (*model.ProcessingJob, error)
	Get(ctx context.Context, id int64) (*model.ProcessingJob, error)
	List(ctx context.Context, filter *JobQueryFilter, opts *JobQueryOptions) (model.ProcessingJobList, error)
	Claim(ctx context.Context, id int64, startedAt time.Time) (*model.ProcessingJob, error)
	UpdateProgress(ctx context.Context, id int64, progress JobProgress) error
	Finish(ctx context.Context, id int64, completion JobCompletion) error
	RequestCancel(ctx context.Context, id int64) (*model.ProcessingJob, error)
	FailInterrupted(ctx context.Context, message string, at time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[model.JobStatus]int64, error)
}

type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) Create(ctx context.Context, job model.ProcessingJob) (*model.ProcessingJob, error) {
	if job.Status == "" {
		job.Status = model.JobStatusPending
	}
	result := s.getDB(ctx).Clauses(clause.Returning{}).Create(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &job, nil
}

func (s *JobStore) Get(ctx context.Context, id int64) (*model.ProcessingJob, error) {
	var job model.ProcessingJob
	result := s.getDB(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) List(ctx context.Context, filter *JobQueryFilter, opts *JobQueryOptions) (model.ProcessingJobList, error) {
	var jobs model.ProcessingJobList
	tx := s.getDB(ctx).Model(&jobs)

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	result := tx.Find(&jobs)
	if result.Error != nil {
		return nil, result.Error
	}
	return jobs, nil
}

// Claim moves a pending job to processing. ErrStaleStatus means another
// worker got it first or it is no longer pending.
func (s *JobStore) Claim(ctx context.Context, id int64, startedAt time.Time) (*model.ProcessingJob, error) {
	result := s.getDB(ctx).Model(&model.ProcessingJob{}).
		Where("id = ? AND status = ?", id, model.JobStatusPending).
		Updates(map[string]any{
			"status":     model.JobStatusProcessing,
			"started_at": startedAt,
			"progress":   0,
			"stage":      "claimed",
		})
	if result.Error != nil {
		return nil, fmt.Errorf("claiming job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, s.staleOrMissing(ctx, id)
	}
	return s.Get(ctx, id)
}

// UpdateProgress only lands while the job is processing and never lowers
// the persisted progress.
func (s *JobStore) UpdateProgress(ctx context.Context, id int64, progress JobProgress) error {
	result := s.getDB(ctx).Model(&model.ProcessingJob{}).
		Where("id = ? AND status = ? AND progress <= ?", id, model.JobStatusProcessing, progress.Progress).
		Updates(progress.columns())
	if result.Error != nil {
		return fmt.Errorf("updating job progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return s.staleOrMissing(ctx, id)
	}
	return nil
}

// Finish sets the terminal status of a processing job. A job already in a
// terminal status is left untouched and ErrStaleStatus is returned.
func (s *JobStore) Finish(ctx context.Context, id int64, completion JobCompletion) error {
	if !completion.Status.IsTerminal() {
		return fmt.Errorf("status %q is not terminal", completion.Status)
	}

	columns := map[string]any{}
	if completion.Counters != nil {
		columns = completion.Counters.columns()
	}
	columns["status"] = completion.Status
	columns["error_message"] = completion.ErrorMessage
	columns["completed_at"] = completion.CompletedAt

	result := s.getDB(ctx).Model(&model.ProcessingJob{}).
		Where("id = ? AND status = ?", id, model.JobStatusProcessing).
		Updates(columns)
	if result.Error != nil {
		return fmt.Errorf("finishing job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return s.staleOrMissing(ctx, id)
	}
	return nil
}

// RequestCancel flags a pending or processing job. The scheduler observes
// the flag at the next batch boundary.
func (s *JobStore) RequestCancel(ctx context.Context, id int64) (*model.ProcessingJob, error) {
	result := s.getDB(ctx).Model(&model.ProcessingJob{}).
		Where("id = ? AND status IN ?", id, []model.JobStatus{model.JobStatusPending, model.JobStatusProcessing}).
		Update("cancel_requested", true)
	if result.Error != nil {
		return nil, fmt.Errorf("requesting job cancellation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, s.staleOrMissing(ctx, id)
	}
	return s.Get(ctx, id)
}

// FailInterrupted fails every job left in processing, typically by a crash.
func (s *JobStore) FailInterrupted(ctx context.Context, message string, at time.Time) (int64, error) {
	result := s.getDB(ctx).Model(&model.ProcessingJob{}).
		Where("status = ?", model.JobStatusProcessing).
		Updates(map[string]any{
			"status":        model.JobStatusFailed,
			"error_message": message,
			"completed_at":  at,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failing interrupted jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *JobStore) CountByStatus(ctx context.Context) (map[model.JobStatus]int64, error) {
	var rows []struct {
		Status model.JobStatus
		Total  int64
	}
	result := s.getDB(ctx).Model(&model.ProcessingJob{}).
		Select("status, count(*) as total").
		Group("status").
		Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("counting jobs: %w", result.Error)
	}

	counts := make(map[model.JobStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (s *JobStore) staleOrMissing(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrStaleStatus
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
