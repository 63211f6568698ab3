package store

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = Describe("query metrics", func() {
	DescribeTable("labels statements by their keyword",
		func(query, kind string) {
			Expect(statementKind(query)).To(Equal(kind))
		},
		Entry("select", "SELECT * FROM processing_jobs", "select"),
		Entry("leading spaces", "  update datasets SET deleted_at = $1", "update"),
		Entry("empty", "", "none"),
	)

	It("counts failed operations apart", func() {
		labels := prometheus.Labels{"op": "exec", "result": "error"}
		before := testutil.ToFloat64(dbOpTotal.With(labels))

		observe("exec", "DELETE FROM datasets", time.Now(), errors.New("boom"))

		Expect(testutil.ToFloat64(dbOpTotal.With(labels))).To(Equal(before + 1))
	})
})
