package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/dataforge/dataset-pipeline/internal/config"
	"github.com/dataforge/dataset-pipeline/internal/store"
	"github.com/dataforge/dataset-pipeline/internal/store/model"
	"github.com/dataforge/dataset-pipeline/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = Describe("http middleware", func() {
	It("labels requests with the route pattern", func() {
		m := metrics.NewMiddleware("test")
		registry := prometheus.NewRegistry()
		registry.MustRegister(m.Collectors()...)

		router := chi.NewRouter()
		router.Use(m.Handler)
		router.Get("/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		for _, id := range []string{"1", "2"} {
			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/jobs/"+id, nil))
		}

		expected := `
# HELP pipeline_http_requests_total Number of HTTP requests by status code, method and route.
# TYPE pipeline_http_requests_total counter
pipeline_http_requests_total{code="404",method="GET",route="/jobs/{id}",server="test"} 2
`
		Expect(testutil.GatherAndCompare(registry, strings.NewReader(expected), "pipeline_http_requests_total")).To(Succeed())
	})
})

var _ = Describe("job stats collector", func() {
	It("reports persisted jobs by status", func() {
		db, err := store.InitDB(&config.Config{
			Database: &config.DbConfig{Type: config.DatabaseTypeSqlite, Name: ":memory:"},
		})
		Expect(err).To(BeNil())
		s := store.NewStore(db)
		defer s.Close()
		Expect(s.AutoMigrate()).To(Succeed())

		ctx := context.TODO()
		for i := 0; i < 2; i++ {
			_, err := s.Job().Create(ctx, model.ProcessingJob{ProjectID: "p1", DataSourceID: uuid.New(), OutputFormat: "csv"})
			Expect(err).To(BeNil())
		}
		job, _ := s.Job().Create(ctx, model.ProcessingJob{ProjectID: "p1", DataSourceID: uuid.New(), OutputFormat: "csv"})
		_, err = s.Job().Claim(ctx, job.ID, time.Now())
		Expect(err).To(BeNil())

		registry := prometheus.NewRegistry()
		registry.MustRegister(metrics.NewJobStatsCollector(s))

		expected := `
# HELP pipeline_store_jobs Number of persisted jobs by status.
# TYPE pipeline_store_jobs gauge
pipeline_store_jobs{status="pending"} 2
pipeline_store_jobs{status="processing"} 1
`
		Expect(testutil.GatherAndCompare(registry, strings.NewReader(expected), "pipeline_store_jobs")).To(Succeed())
		Expect(testutil.CollectAndCount(metrics.NewJobStatsCollector(s), "pipeline_store_datasets")).To(Equal(1))
	})
})
