package service_test

import (
	"context"
	"time"

	"github.com/dataforge/dataset-pipeline/internal/pii"
	"github.com/dataforge/dataset-pipeline/internal/service"
	"github.com/dataforge/dataset-pipeline/internal/service/mappers"
	"github.com/dataforge/dataset-pipeline/internal/store"
	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"github.com/dataforge/dataset-pipeline/internal/transform"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("job service", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		sched  *fakeScheduler
		srv    *service.JobService
		ready  *model.DataSource
		ctx    = context.TODO()
	)

	BeforeAll(func() {
		s, gormdb = newTestStore()
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		sched = newFakeScheduler()
		srv = service.NewJobService(s, sched)

		var err error
		ready, err = s.DataSource().Create(ctx, model.DataSource{
			ProjectID:  "p1",
			Name:       "people.csv",
			Format:     "csv",
			StorageKey: "sources/p1/" + uuid.NewString() + ".csv",
			Status:     model.DataSourceStatusReady,
		})
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM processing_jobs;")
		gormdb.Exec("DELETE FROM schema_mappings;")
		gormdb.Exec("DELETE FROM data_sources;")
	})

	Context("submit", func() {
		It("creates a pending job and enqueues it", func() {
			job, err := srv.SubmitJob(ctx, mappers.JobSubmitForm{
				ProjectID:    "p1",
				DataSourceID: ready.ID,
				OutputFormat: "CSV",
				OutputName:   "clean",
			})
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusPending))
			Expect(job.OutputFormat).To(Equal("csv"))
			Expect(job.Config).ToNot(BeNil())
			Expect(job.Config.BatchSize).To(Equal(transform.DefaultBatchSize))
			Expect(sched.enqueued).To(Equal([]int64{job.ID}))
		})

		It("defaults the output format to jsonl", func() {
			job, err := srv.SubmitJob(ctx, mappers.JobSubmitForm{ProjectID: "p1", DataSourceID: ready.ID})
			Expect(err).To(BeNil())
			Expect(job.OutputFormat).To(Equal("jsonl"))
		})

		It("uses the schema mapping config", func() {
			mapping, err := s.SchemaMapping().Create(ctx, model.SchemaMapping{
				ID:        uuid.New(),
				ProjectID: "p1",
				Name:      "rename",
				Config:    &transform.Config{FieldMappings: map[string]string{"full_name": "name"}, OutputFormat: "json"},
			})
			Expect(err).To(BeNil())

			job, err := srv.SubmitJob(ctx, mappers.JobSubmitForm{ProjectID: "p1", DataSourceID: ready.ID, SchemaMappingID: &mapping.ID})
			Expect(err).To(BeNil())
			Expect(job.OutputFormat).To(Equal("json"))
			Expect(job.Config.FieldMappings).To(HaveKeyWithValue("full_name", "name"))
			Expect(job.SchemaMappingID).To(Equal(&mapping.ID))
		})

		It("refuses a data source which is not ready", func() {
			uploading, err := s.DataSource().Create(ctx, model.DataSource{
				ProjectID: "p1", Name: "x.csv", Format: "csv", StorageKey: "sources/p1/x.csv", Status: model.DataSourceStatusUploading,
			})
			Expect(err).To(BeNil())

			_, err = srv.SubmitJob(ctx, mappers.JobSubmitForm{ProjectID: "p1", DataSourceID: uploading.ID})
			Expect(err).To(BeAssignableToTypeOf(&service.ErrDataSourceNotReady{}))
			Expect(sched.enqueued).To(BeEmpty())

			jobs, err := srv.ListJobs(ctx, "p1")
			Expect(err).To(BeNil())
			Expect(jobs).To(BeEmpty())
		})

		It("refuses unknown sources and sources of another project", func() {
			_, err := srv.SubmitJob(ctx, mappers.JobSubmitForm{ProjectID: "p1", DataSourceID: uuid.New()})
			Expect(err).To(BeAssignableToTypeOf(&service.ErrResourceNotFound{}))

			_, err = srv.SubmitJob(ctx, mappers.JobSubmitForm{ProjectID: "p2", DataSourceID: ready.ID})
			Expect(err).To(BeAssignableToTypeOf(&service.ErrResourceNotFound{}))
		})

		DescribeTable("refuses invalid configs",
			func(form mappers.JobSubmitForm, expected any) {
				form.ProjectID = "p1"
				form.DataSourceID = ready.ID
				_, err := srv.SubmitJob(ctx, form)
				Expect(err).To(BeAssignableToTypeOf(expected))
			},
			Entry("unsupported output format", mappers.JobSubmitForm{OutputFormat: "xml"}, &service.ErrUnsupportedFormat{}),
			Entry("xlsx output", mappers.JobSubmitForm{OutputFormat: "xlsx"}, &service.ErrUnsupportedFormat{}),
			Entry("hash strategy", mappers.JobSubmitForm{Config: &transform.Config{
				PII: &transform.PIIConfig{Strategies: map[pii.Type]transform.Strategy{pii.TypeEmail: transform.StrategyHash}},
			}}, &service.ErrInvalidProcessingConfig{}),
			Entry("invalid custom pattern", mappers.JobSubmitForm{Config: &transform.Config{
				PII: &transform.PIIConfig{CustomPatterns: []pii.CustomPattern{{Name: "bad", Pattern: "(["}}},
			}}, &service.ErrInvalidProcessingConfig{}),
			Entry("unknown schema mapping", mappers.JobSubmitForm{SchemaMappingID: func() *uuid.UUID { id := uuid.New(); return &id }()}, &service.ErrResourceNotFound{}),
		)
	})

	Context("inspection", func() {
		It("lists newest first with a status filter", func() {
			first, err := srv.SubmitJob(ctx, mappers.JobSubmitForm{ProjectID: "p1", DataSourceID: ready.ID})
			Expect(err).To(BeNil())
			second, err := srv.SubmitJob(ctx, mappers.JobSubmitForm{ProjectID: "p1", DataSourceID: ready.ID})
			Expect(err).To(BeNil())
			_, err = s.Job().Claim(ctx, first.ID, time.Now())
			Expect(err).To(BeNil())

			jobs, err := srv.ListJobs(ctx, "p1")
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))
			Expect(jobs[0].ID).To(Equal(second.ID))

			jobs, err = srv.ListJobs(ctx, "p1", model.JobStatusProcessing)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].ID).To(Equal(first.ID))

			jobs, err = srv.ListJobs(ctx, "p2")
			Expect(err).To(BeNil())
			Expect(jobs).To(BeEmpty())
		})

		It("returns logs of known jobs only", func() {
			job, err := srv.SubmitJob(ctx, mappers.JobSubmitForm{ProjectID: "p1", DataSourceID: ready.ID})
			Expect(err).To(BeNil())

			logs, err := srv.GetJobLogs(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(logs).To(HaveLen(1))

			_, err = srv.GetJobLogs(ctx, 98765)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrResourceNotFound{}))
		})
	})

	Context("cancel", func() {
		It("flags a live job and signals the scheduler", func() {
			job, err := srv.SubmitJob(ctx, mappers.JobSubmitForm{ProjectID: "p1", DataSourceID: ready.ID})
			Expect(err).To(BeNil())

			cancelled, err := srv.CancelJob(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(cancelled.CancelRequested).To(BeTrue())
			Expect(cancelled.Status).To(Equal(model.JobStatusPending))
			Expect(sched.cancelled).To(Equal([]int64{job.ID}))
		})

		It("refuses terminal jobs", func() {
			job, err := srv.SubmitJob(ctx, mappers.JobSubmitForm{ProjectID: "p1", DataSourceID: ready.ID})
			Expect(err).To(BeNil())
			_, err = s.Job().Claim(ctx, job.ID, time.Now())
			Expect(err).To(BeNil())
			Expect(s.Job().Finish(ctx, job.ID, store.JobCompletion{Status: model.JobStatusCompleted, CompletedAt: time.Now()})).To(Succeed())

			_, err = srv.CancelJob(ctx, job.ID)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrJobNotCancellable{}))
			Expect(sched.cancelled).To(BeEmpty())

			got, err := srv.GetJob(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.JobStatusCompleted))
		})

		It("reports unknown jobs", func() {
			_, err := srv.CancelJob(ctx, 424242)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrResourceNotFound{}))
		})
	})
})
