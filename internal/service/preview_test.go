package service_test

import (
	"context"

	"github.com/dataforge/dataset-pipeline/internal/pii"
	"github.com/dataforge/dataset-pipeline/internal/service"
	"github.com/dataforge/dataset-pipeline/internal/service/mappers"
	"github.com/dataforge/dataset-pipeline/internal/store"
	"github.com/dataforge/dataset-pipeline/internal/transform"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("preview service", func() {
	It("returns matches, redacted text and stats", func() {
		result, err := service.NewPreviewService().Preview("mail jane@example.com or bob@example.org", pii.Options{})
		Expect(err).To(BeNil())
		Expect(result.HasPII).To(BeTrue())
		Expect(result.RedactedText).To(Equal("mail [EMAIL] or [EMAIL]"))
		Expect(result.Stats).To(Equal(map[pii.Type]int{pii.TypeEmail: 2}))
	})

	It("refuses invalid patterns", func() {
		_, err := service.NewPreviewService().Preview("x", pii.Options{CustomPatterns: []pii.CustomPattern{{Name: "bad", Pattern: "(["}}})
		Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidProcessingConfig{}))
	})
})

var _ = Describe("schema mapping service", Ordered, func() {
	var (
		s   store.Store
		srv *service.SchemaMappingService
		ctx = context.TODO()
	)

	BeforeAll(func() {
		s, _ = newTestStore()
		srv = service.NewSchemaMappingService(s)
	})

	AfterAll(func() {
		s.Close()
	})

	It("creates, gets and lists mappings", func() {
		mapping, err := srv.CreateSchemaMapping(ctx, mappers.SchemaMappingCreateForm{
			ProjectID: "p1",
			Name:      "rename",
			Config:    &transform.Config{FieldMappings: map[string]string{"full_name": "name"}},
		})
		Expect(err).To(BeNil())

		got, err := srv.GetSchemaMapping(ctx, mapping.ID)
		Expect(err).To(BeNil())
		Expect(got.Config.FieldMappings).To(HaveKeyWithValue("full_name", "name"))

		list, err := srv.ListSchemaMappings(ctx, "p1")
		Expect(err).To(BeNil())
		Expect(list).To(HaveLen(1))

		_, err = srv.CreateSchemaMapping(ctx, mappers.SchemaMappingCreateForm{ProjectID: "p1", Name: "rename"})
		Expect(err).To(BeAssignableToTypeOf(&service.ErrDuplicateResource{}))
	})

	It("validates the config", func() {
		_, err := srv.CreateSchemaMapping(ctx, mappers.SchemaMappingCreateForm{
			ProjectID: "p1",
			Name:      "bad",
			Config:    &transform.Config{FilterConditions: []transform.FilterCondition{{Field: "a", Operator: "between", Value: 1}}},
		})
		Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidProcessingConfig{}))
	})
})
