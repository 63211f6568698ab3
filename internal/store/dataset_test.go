package store_test

import (
	"context"
	"errors"

	"github.com/dataforge/dataset-pipeline/internal/store"
	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"github.com/dataforge/dataset-pipeline/internal/transform"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("dataset store", Ordered, func() {
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
		gormdb.Exec("DELETE FROM datasets;")
	})

	It("creates one dataset per job", func() {
		jobID := int64(7)
		d, err := s.Dataset().Create(ctx, model.Dataset{ProjectID: "p1", JobID: &jobID, Name: "a", Format: "csv", StorageKey: "k1"})
		Expect(err).To(BeNil())
		Expect(d.ID).ToNot(Equal(uuid.Nil))

		_, err = s.Dataset().Create(ctx, model.Dataset{ProjectID: "p1", JobID: &jobID, Name: "b", Format: "csv", StorageKey: "k2"})
		Expect(errors.Is(err, store.ErrDuplicateKey)).To(BeTrue())
	})

	It("soft deletes", func() {
		d, err := s.Dataset().Create(ctx, model.Dataset{ProjectID: "p1", Name: "a", Format: "json", StorageKey: "k"})
		Expect(err).To(BeNil())

		Expect(s.Dataset().Delete(ctx, d.ID)).To(Succeed())

		_, err = s.Dataset().Get(ctx, d.ID)
		Expect(errors.Is(err, store.ErrRecordNotFound)).To(BeTrue())

		count := 0
		Expect(gormdb.Raw("SELECT COUNT(*) FROM datasets WHERE deleted_at IS NOT NULL;").Scan(&count).Error).To(BeNil())
		Expect(count).To(Equal(1))

		Expect(errors.Is(s.Dataset().Delete(ctx, d.ID), store.ErrRecordNotFound)).To(BeTrue())

		total, err := s.Dataset().Count(ctx)
		Expect(err).To(BeNil())
		Expect(total).To(Equal(int64(0)))
	})

	It("lists by project", func() {
		_, _ = s.Dataset().Create(ctx, model.Dataset{ProjectID: "p1", Name: "a", Format: "json", StorageKey: "k"})
		_, _ = s.Dataset().Create(ctx, model.Dataset{ProjectID: "p2", Name: "b", Format: "json", StorageKey: "k"})

		datasets, err := s.Dataset().List(ctx, store.NewDatasetQueryFilter().ByProjectID("p2"))
		Expect(err).To(BeNil())
		Expect(datasets).To(HaveLen(1))
		Expect(datasets[0].Name).To(Equal("b"))
	})
})

var _ = Describe("data source store", Ordered, func() {
	var (
		s   store.Store
		ctx = context.TODO()
	)

	BeforeAll(func() {
		s, _ = newTestStore()
	})

	AfterAll(func() {
		s.Close()
	})

	It("creates and marks a source ready", func() {
		src, err := s.DataSource().Create(ctx, model.DataSource{
			ProjectID:  "p1",
			Name:       "customers",
			Format:     "csv",
			StorageKey: "sources/p1/customers.csv",
			Status:     model.DataSourceStatusUploading,
		})
		Expect(err).To(BeNil())
		Expect(src.IsReady()).To(BeFalse())

		ready, err := s.DataSource().UpdateStatus(ctx, src.ID, model.DataSourceStatusReady, 120)
		Expect(err).To(BeNil())
		Expect(ready.IsReady()).To(BeTrue())
		Expect(ready.FileSize).To(Equal(int64(120)))

		sources, err := s.DataSource().List(ctx, store.NewDataSourceQueryFilter().ByProjectID("p1").ByStatus(model.DataSourceStatusReady))
		Expect(err).To(BeNil())
		Expect(sources).To(HaveLen(1))
	})

	It("returns not found for an unknown source", func() {
		_, err := s.DataSource().UpdateStatus(ctx, uuid.New(), model.DataSourceStatusReady, 0)
		Expect(errors.Is(err, store.ErrRecordNotFound)).To(BeTrue())
	})
})

var _ = Describe("schema mapping store", Ordered, func() {
	var (
		s   store.Store
		ctx = context.TODO()
	)

	BeforeAll(func() {
		s, _ = newTestStore()
	})

	AfterAll(func() {
		s.Close()
	})

	It("stores the config as json", func() {
		m, err := s.SchemaMapping().Create(ctx, model.SchemaMapping{
			ProjectID: "p1",
			Name:      "rename",
			Config: &transform.Config{
				FieldMappings:    map[string]string{"full_name": "name"},
				FilterConditions: []transform.FilterCondition{{Field: "age", Operator: transform.OperatorGte, Value: 18}},
			},
		})
		Expect(err).To(BeNil())

		got, err := s.SchemaMapping().Get(ctx, m.ID)
		Expect(err).To(BeNil())
		Expect(got.Config.FieldMappings).To(HaveKeyWithValue("full_name", "name"))
		Expect(got.Config.FilterConditions[0].Value).To(Equal(float64(18)))
	})

	It("refuses duplicated names in a project", func() {
		_, err := s.SchemaMapping().Create(ctx, model.SchemaMapping{ProjectID: "p9", Name: "same"})
		Expect(err).To(BeNil())
		_, err = s.SchemaMapping().Create(ctx, model.SchemaMapping{ProjectID: "p9", Name: "same"})
		Expect(errors.Is(err, store.ErrDuplicateKey)).To(BeTrue())

		mappings, err := s.SchemaMapping().List(ctx, store.NewSchemaMappingQueryFilter().ByProjectID("p9"))
		Expect(err).To(BeNil())
		Expect(mappings).To(HaveLen(1))
	})
})
