package transform_test

import (
	"errors"

	"github.com/dataforge/dataset-pipeline/internal/codec"
	"github.com/dataforge/dataset-pipeline/internal/pii"
	"github.com/dataforge/dataset-pipeline/internal/transform"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func boolPtr(b bool) *bool {
	return &b
}

var noPII = &transform.PIIConfig{Enabled: boolPtr(false)}

func mustNew(cfg *transform.Config) *transform.Transformer {
	t, err := transform.New(cfg)
	Expect(err).To(BeNil())
	return t
}

var _ = Describe("transformer", func() {
	Context("validation", func() {
		It("accepts the zero config and fills defaults", func() {
			t := mustNew(nil)
			Expect(t.Config().OutputFormat).To(Equal(codec.FormatJSONL))
			Expect(t.Config().BatchSize).To(Equal(100))
		})

		DescribeTable("rejects strategies without an implementation",
			func(strategy transform.Strategy) {
				_, err := transform.New(&transform.Config{PII: &transform.PIIConfig{
					Strategies: map[pii.Type]transform.Strategy{pii.TypeEmail: strategy},
				}})
				Expect(errors.Is(err, transform.ErrUnsupportedStrategy)).To(BeTrue())
			},
			Entry("pseudonymize", transform.StrategyPseudonymize),
			Entry("hash", transform.StrategyHash),
		)

		DescribeTable("rejects invalid configs",
			func(cfg *transform.Config) {
				err := cfg.Validate()
				Expect(errors.Is(err, transform.ErrInvalidConfig)).To(BeTrue())
			},
			Entry("unknown operator", &transform.Config{FilterConditions: []transform.FilterCondition{{Field: "a", Operator: "like", Value: "x"}}}),
			Entry("missing field", &transform.Config{FilterConditions: []transform.FilterCondition{{Operator: "eq", Value: "x"}}}),
			Entry("non numeric comparison value", &transform.Config{FilterConditions: []transform.FilterCondition{{Field: "a", Operator: "gt", Value: "many"}}}),
			Entry("output format", &transform.Config{OutputFormat: codec.FormatXLSX}),
			Entry("negative batch size", &transform.Config{BatchSize: -1}),
			Entry("empty mapping source", &transform.Config{FieldMappings: map[string]string{"a": ""}}),
			Entry("bad custom pattern", &transform.Config{PII: &transform.PIIConfig{CustomPatterns: []pii.CustomPattern{{Name: "x", Pattern: "("}}}}),
			Entry("unknown strategy", &transform.Config{PII: &transform.PIIConfig{Strategies: map[pii.Type]transform.Strategy{pii.TypeEmail: "shuffle"}}}),
			Entry("unknown pii type", &transform.Config{PII: &transform.PIIConfig{EnabledTypes: []pii.Type{"passport"}}}),
		)
	})

	Context("field mapping", func() {
		It("renames mapped fields and passes the rest through", func() {
			t := mustNew(&transform.Config{
				FieldMappings: map[string]string{"full_name": "name", "mail": "email"},
				PII:           noPII,
			})
			in := codec.RecordFromPairs("id", "1", "name", "Jane", "email", "x", "city", "Paris")
			res := t.Transform(in)
			Expect(res.Filtered).To(BeFalse())
			Expect(res.Record.Keys()).To(Equal([]string{"full_name", "mail", "id", "city"}))
			v, _ := res.Record.Get("full_name")
			Expect(v).To(Equal("Jane"))

			// input untouched
			Expect(in.Keys()).To(Equal([]string{"id", "name", "email", "city"}))
		})

		It("skips mappings whose source is absent", func() {
			t := mustNew(&transform.Config{FieldMappings: map[string]string{"x": "missing"}, PII: noPII})
			res := t.Transform(codec.RecordFromPairs("a", 1.0))
			Expect(res.Record.Keys()).To(Equal([]string{"a"}))
		})

		It("filters on the mapped names", func() {
			t := mustNew(&transform.Config{
				FieldMappings:    map[string]string{"years": "age"},
				FilterConditions: []transform.FilterCondition{{Field: "years", Operator: transform.OperatorGte, Value: 18}},
				PII:              noPII,
			})
			Expect(t.Transform(codec.RecordFromPairs("age", 30.0)).Filtered).To(BeFalse())
			Expect(t.Transform(codec.RecordFromPairs("age", 3.0)).Filtered).To(BeTrue())
		})
	})

	Context("filtering", func() {
		adults := []transform.FilterCondition{
			{Field: "age", Operator: transform.OperatorGte, Value: 18},
			{Field: "country", Operator: transform.OperatorEq, Value: "US"},
		}

		It("keeps a record only when every condition holds", func() {
			t := mustNew(&transform.Config{FilterConditions: adults, PII: noPII})
			Expect(t.Transform(codec.RecordFromPairs("age", 17.0, "country", "US")).Filtered).To(BeTrue())
			Expect(t.Transform(codec.RecordFromPairs("age", 25.0, "country", "US")).Filtered).To(BeFalse())
			Expect(t.Transform(codec.RecordFromPairs("age", 25.0, "country", "FR")).Filtered).To(BeTrue())
		})

		It("does not depend on condition order", func() {
			reversed := []transform.FilterCondition{adults[1], adults[0]}
			a := mustNew(&transform.Config{FilterConditions: adults, PII: noPII})
			b := mustNew(&transform.Config{FilterConditions: reversed, PII: noPII})
			for _, r := range []*codec.Record{
				codec.RecordFromPairs("age", 17.0, "country", "US"),
				codec.RecordFromPairs("age", 40.0, "country", "US"),
				codec.RecordFromPairs("age", 40.0, "country", "CA"),
				codec.RecordFromPairs("country", "US"),
			} {
				Expect(a.Transform(r).Filtered).To(Equal(b.Transform(r).Filtered))
			}
		})

		DescribeTable("operators",
			func(op transform.Operator, condValue any, fieldValue any, kept bool) {
				t := mustNew(&transform.Config{
					FilterConditions: []transform.FilterCondition{{Field: "f", Operator: op, Value: condValue}},
					PII:              noPII,
				})
				Expect(t.Transform(codec.RecordFromPairs("f", fieldValue)).Filtered).To(Equal(!kept))
			},
			Entry("eq string", transform.OperatorEq, "a", "a", true),
			Entry("eq number against csv text", transform.OperatorEq, 5, "5", true),
			Entry("ne", transform.OperatorNe, "a", "b", true),
			Entry("gt", transform.OperatorGt, 10, 11.0, true),
			Entry("gt equal", transform.OperatorGt, 10, 10.0, false),
			Entry("gte numeric text", transform.OperatorGte, 10, "10", true),
			Entry("lt", transform.OperatorLt, 10, 9.5, true),
			Entry("lte", transform.OperatorLte, 10, 10.5, false),
			Entry("gt fails closed on text", transform.OperatorGt, 1, "many", false),
			Entry("lt fails closed on bool", transform.OperatorLt, 1, true, false),
			Entry("lt fails closed on null", transform.OperatorLt, 1, nil, false),
			Entry("contains", transform.OperatorContains, "oo", "foo", true),
			Entry("contains fails closed on numbers", transform.OperatorContains, "1", 12.0, false),
			Entry("not_contains", transform.OperatorNotContains, "x", "foo", true),
			Entry("not_contains fails closed on numbers", transform.OperatorNotContains, "x", 12.0, false),
		)

		It("treats a missing field as failing a numeric condition", func() {
			t := mustNew(&transform.Config{
				FilterConditions: []transform.FilterCondition{{Field: "age", Operator: transform.OperatorGt, Value: 1}},
				PII:              noPII,
			})
			Expect(t.Transform(codec.RecordFromPairs("name", "x")).Filtered).To(BeTrue())
		})
	})

	Context("pii", func() {
		It("redacts enabled types with bracket labels", func() {
			t := mustNew(&transform.Config{PII: &transform.PIIConfig{
				EnabledTypes: []pii.Type{pii.TypeEmail, pii.TypePersonName},
			}})
			res := t.Transform(codec.RecordFromPairs("name", "Jane Doe", "email", "jane@example.com"))
			Expect(res.PIIFields).To(Equal(2))

			out, err := codec.Encode([]*codec.Record{res.Record}, codec.FormatJSONL)
			Expect(err).To(BeNil())
			Expect(string(out)).To(Equal(`{"name":"[PERSON_NAME]","email":"[EMAIL]"}`))
		})

		It("counts fields, not matches", func() {
			t := mustNew(&transform.Config{PII: &transform.PIIConfig{EnabledTypes: []pii.Type{pii.TypeEmail}}})
			res := t.Transform(codec.RecordFromPairs("to", "a@b.io, c@d.io", "body", "hello"))
			Expect(res.PIIFields).To(Equal(1))
		})

		It("redacts every match of a field it counted once", func() {
			t := mustNew(&transform.Config{PII: &transform.PIIConfig{EnabledTypes: []pii.Type{pii.TypeEmail, pii.TypePhone}}})
			res := t.Transform(codec.RecordFromPairs("to", "a@b.io, c@d.io", "call", "555-123-4567", "body", "hello"))
			Expect(res.PIIFields).To(Equal(2))
			v, _ := res.Record.Get("to")
			Expect(v).To(Equal("[EMAIL], [EMAIL]"))
			v, _ = res.Record.Get("call")
			Expect(v).To(Equal("[PHONE]"))
			v, _ = res.Record.Get("body")
			Expect(v).To(Equal("hello"))
		})

		It("leaves non string values alone", func() {
			t := mustNew(&transform.Config{PII: &transform.PIIConfig{EnabledTypes: []pii.Type{pii.TypePhone}}})
			res := t.Transform(codec.RecordFromPairs("n", 5551234567.0))
			Expect(res.PIIFields).To(Equal(0))
			v, _ := res.Record.Get("n")
			Expect(v).To(Equal(5551234567.0))
		})

		It("only counts when redaction is off", func() {
			t := mustNew(&transform.Config{PII: &transform.PIIConfig{
				EnabledTypes: []pii.Type{pii.TypeEmail},
				Redact:       boolPtr(false),
			}})
			res := t.Transform(codec.RecordFromPairs("email", "jane@example.com"))
			Expect(res.PIIFields).To(Equal(1))
			v, _ := res.Record.Get("email")
			Expect(v).To(Equal("jane@example.com"))
		})

		It("uses configured labels and redaction char", func() {
			t := mustNew(&transform.Config{PII: &transform.PIIConfig{
				EnabledTypes:   []pii.Type{pii.TypeEmail, pii.TypePhone},
				Strategies:     map[pii.Type]transform.Strategy{pii.TypeEmail: transform.StrategyRedact},
				Labels:         map[pii.Type]string{pii.TypeEmail: "<email>"},
				PreserveLength: true,
				RedactionChar:  "#",
			}})
			res := t.Transform(codec.RecordFromPairs("c", "jane@example.com 555-123-4567"))
			v, _ := res.Record.Get("c")
			Expect(v).To(Equal("<email> ############"))
		})

		It("does nothing when detection is disabled", func() {
			t := mustNew(&transform.Config{PII: noPII})
			res := t.Transform(codec.RecordFromPairs("email", "jane@example.com"))
			Expect(res.PIIFields).To(Equal(0))
		})

		It("does not scan filtered records", func() {
			t := mustNew(&transform.Config{
				FilterConditions: []transform.FilterCondition{{Field: "keep", Operator: transform.OperatorEq, Value: "yes"}},
			})
			res := t.Transform(codec.RecordFromPairs("keep", "no", "email", "jane@example.com"))
			Expect(res.Filtered).To(BeTrue())
			Expect(res.Record).To(BeNil())
			Expect(res.PIIFields).To(Equal(0))
		})
	})
})
