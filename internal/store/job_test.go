package store_test

import (
	"context"
	"errors"
	"time"

	"github.com/dataforge/dataset-pipeline/internal/store"
	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"github.com/dataforge/dataset-pipeline/internal/transform"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func newJob(projectID string) model.ProcessingJob {
	return model.ProcessingJob{
		ProjectID:    projectID,
		DataSourceID: uuid.New(),
		OutputFormat: "jsonl",
		Config:       &transform.Config{BatchSize: 10},
	}
}

var _ = Describe("job store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		ctx    = context.TODO()
	)

	BeforeAll(func() {
		s, gormdb = newTestStore()
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM processing_jobs;")
	})

	Context("create", func() {
		It("creates a pending job with an increasing id", func() {
			first, err := s.Job().Create(ctx, newJob("p1"))
			Expect(err).To(BeNil())
			Expect(first.Status).To(Equal(model.JobStatusPending))
			Expect(first.CreatedAt).ToNot(BeZero())

			second, err := s.Job().Create(ctx, newJob("p1"))
			Expect(err).To(BeNil())
			Expect(second.ID).To(BeNumerically(">", first.ID))

			got, err := s.Job().Get(ctx, first.ID)
			Expect(err).To(BeNil())
			Expect(got.Config).ToNot(BeNil())
			Expect(got.Config.BatchSize).To(Equal(10))
		})

		It("returns not found for unknown jobs", func() {
			_, err := s.Job().Get(ctx, 4242)
			Expect(errors.Is(err, store.ErrRecordNotFound)).To(BeTrue())
		})
	})

	Context("list", func() {
		It("filters by project and status and sorts", func() {
			a, _ := s.Job().Create(ctx, newJob("p1"))
			b, _ := s.Job().Create(ctx, newJob("p1"))
			_, _ = s.Job().Create(ctx, newJob("p2"))
			_, err := s.Job().Claim(ctx, b.ID, time.Now())
			Expect(err).To(BeNil())

			jobs, err := s.Job().List(ctx, store.NewJobQueryFilter().ByProjectID("p1"), store.NewJobQueryOptions().WithSortOrder(store.SortByIDDesc))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))
			Expect(jobs[0].ID).To(Equal(b.ID))

			jobs, err = s.Job().List(ctx, store.NewJobQueryFilter().ByStatus(model.JobStatusPending).WithoutIDs([]int64{a.ID}), nil)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].ProjectID).To(Equal("p2"))
		})
	})

	Context("lifecycle", func() {
		It("claims a pending job once", func() {
			job, _ := s.Job().Create(ctx, newJob("p1"))

			claimed, err := s.Job().Claim(ctx, job.ID, time.Now())
			Expect(err).To(BeNil())
			Expect(claimed.Status).To(Equal(model.JobStatusProcessing))
			Expect(claimed.StartedAt).ToNot(BeNil())

			_, err = s.Job().Claim(ctx, job.ID, time.Now())
			Expect(errors.Is(err, store.ErrStaleStatus)).To(BeTrue())
		})

		It("never lowers the progress", func() {
			job, _ := s.Job().Create(ctx, newJob("p1"))
			_, _ = s.Job().Claim(ctx, job.ID, time.Now())

			Expect(s.Job().UpdateProgress(ctx, job.ID, store.JobProgress{Progress: 50, ProcessedRecordCount: 5})).To(Succeed())
			err := s.Job().UpdateProgress(ctx, job.ID, store.JobProgress{Progress: 40, ProcessedRecordCount: 4})
			Expect(errors.Is(err, store.ErrStaleStatus)).To(BeTrue())

			got, _ := s.Job().Get(ctx, job.ID)
			Expect(got.Progress).To(Equal(50))
			Expect(got.ProcessedRecordCount).To(Equal(5))
		})

		It("persists every progress counter", func() {
			Expect(gormdb.Migrator().HasColumn(&model.ProcessingJob{}, "pii_detected_count")).To(BeTrue())

			job, _ := s.Job().Create(ctx, newJob("p1"))
			_, _ = s.Job().Claim(ctx, job.ID, time.Now())

			Expect(s.Job().UpdateProgress(ctx, job.ID, store.JobProgress{
				Progress:             60,
				Stage:                "transforming",
				InputRecordCount:     10,
				ProcessedRecordCount: 6,
				OutputRecordCount:    5,
				PIIDetectedCount:     4,
				FilteredOutCount:     1,
			})).To(Succeed())

			got, err := s.Job().Get(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(got.PIIDetectedCount).To(Equal(4))
			Expect(got.FilteredOutCount).To(Equal(1))
			Expect(got.OutputRecordCount).To(Equal(5))
			Expect(got.Stage).To(Equal("transforming"))

			Expect(s.Job().Finish(ctx, job.ID, store.JobCompletion{
				Status:      model.JobStatusCompleted,
				Counters:    &store.JobProgress{Progress: 100, InputRecordCount: 10, ProcessedRecordCount: 10, OutputRecordCount: 8, PIIDetectedCount: 7, FilteredOutCount: 2},
				CompletedAt: time.Now(),
			})).To(Succeed())

			got, _ = s.Job().Get(ctx, job.ID)
			Expect(got.PIIDetectedCount).To(Equal(7))
			Expect(got.Status).To(Equal(model.JobStatusCompleted))
		})

		It("does not overwrite a terminal status", func() {
			job, _ := s.Job().Create(ctx, newJob("p1"))
			_, _ = s.Job().Claim(ctx, job.ID, time.Now())

			Expect(s.Job().Finish(ctx, job.ID, store.JobCompletion{
				Status:      model.JobStatusCompleted,
				Counters:    &store.JobProgress{Progress: 100, OutputRecordCount: 3},
				CompletedAt: time.Now(),
			})).To(Succeed())

			err := s.Job().UpdateProgress(ctx, job.ID, store.JobProgress{Progress: 100})
			Expect(errors.Is(err, store.ErrStaleStatus)).To(BeTrue())

			err = s.Job().Finish(ctx, job.ID, store.JobCompletion{Status: model.JobStatusFailed, ErrorMessage: "late", CompletedAt: time.Now()})
			Expect(errors.Is(err, store.ErrStaleStatus)).To(BeTrue())

			got, _ := s.Job().Get(ctx, job.ID)
			Expect(got.Status).To(Equal(model.JobStatusCompleted))
			Expect(got.ErrorMessage).To(BeEmpty())
			Expect(got.OutputRecordCount).To(Equal(3))
			Expect(got.CompletedAt).ToNot(BeNil())
		})

		It("refuses a non terminal completion", func() {
			job, _ := s.Job().Create(ctx, newJob("p1"))
			err := s.Job().Finish(ctx, job.ID, store.JobCompletion{Status: model.JobStatusProcessing})
			Expect(err).ToNot(BeNil())
		})

		It("flags cancellation only for live jobs", func() {
			job, _ := s.Job().Create(ctx, newJob("p1"))
			flagged, err := s.Job().RequestCancel(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(flagged.CancelRequested).To(BeTrue())
			Expect(flagged.Status).To(Equal(model.JobStatusPending))

			_, _ = s.Job().Claim(ctx, job.ID, time.Now())
			Expect(s.Job().Finish(ctx, job.ID, store.JobCompletion{Status: model.JobStatusCancelled, CompletedAt: time.Now()})).To(Succeed())

			_, err = s.Job().RequestCancel(ctx, job.ID)
			Expect(errors.Is(err, store.ErrStaleStatus)).To(BeTrue())

			_, err = s.Job().RequestCancel(ctx, 99999)
			Expect(errors.Is(err, store.ErrRecordNotFound)).To(BeTrue())
		})

		It("fails jobs interrupted in processing", func() {
			stuck, _ := s.Job().Create(ctx, newJob("p1"))
			pending, _ := s.Job().Create(ctx, newJob("p1"))
			_, _ = s.Job().Claim(ctx, stuck.ID, time.Now())

			n, err := s.Job().FailInterrupted(ctx, "interrupted by restart", time.Now())
			Expect(err).To(BeNil())
			Expect(n).To(Equal(int64(1)))

			got, _ := s.Job().Get(ctx, stuck.ID)
			Expect(got.Status).To(Equal(model.JobStatusFailed))
			Expect(got.ErrorMessage).To(Equal("interrupted by restart"))

			got, _ = s.Job().Get(ctx, pending.ID)
			Expect(got.Status).To(Equal(model.JobStatusPending))
		})
	})

	Context("statistics", func() {
		It("counts jobs by status", func() {
			a, _ := s.Job().Create(ctx, newJob("p1"))
			_, _ = s.Job().Create(ctx, newJob("p1"))
			_, _ = s.Job().Create(ctx, newJob("p2"))
			_, _ = s.Job().Claim(ctx, a.ID, time.Now())

			counts, err := s.Job().CountByStatus(ctx)
			Expect(err).To(BeNil())
			Expect(counts).To(HaveKeyWithValue(model.JobStatusPending, int64(2)))
			Expect(counts).To(HaveKeyWithValue(model.JobStatusProcessing, int64(1)))
			Expect(counts).ToNot(HaveKey(model.JobStatusCompleted))
		})
	})

	Context("transaction", func() {
		It("rolls back a completion with its dataset", func() {
			job, _ := s.Job().Create(ctx, newJob("p1"))
			_, _ = s.Job().Claim(ctx, job.ID, time.Now())

			txCtx, err := s.NewTransactionContext(ctx)
			Expect(err).To(BeNil())
			_, err = s.Dataset().Create(txCtx, model.Dataset{ProjectID: "p1", JobID: &job.ID, Name: "out", Format: "jsonl", StorageKey: "k"})
			Expect(err).To(BeNil())
			Expect(s.Job().Finish(txCtx, job.ID, store.JobCompletion{Status: model.JobStatusCompleted, CompletedAt: time.Now()})).To(Succeed())
			_, err = store.Rollback(txCtx)
			Expect(err).To(BeNil())

			got, _ := s.Job().Get(ctx, job.ID)
			Expect(got.Status).To(Equal(model.JobStatusProcessing))
			datasets, err := s.Dataset().List(ctx, store.NewDatasetQueryFilter().ByJobID(job.ID))
			Expect(err).To(BeNil())
			Expect(datasets).To(BeEmpty())
		})
	})
})
