package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/dataforge/dataset-pipeline/internal/client"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("api client", func() {
	var (
		srv  *httptest.Server
		last *http.Request
	)

	BeforeEach(func() {
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			last = r
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/api/v1/jobs/7":
				_, _ = w.Write([]byte(`{"id":7,"status":"completed","progress":100}`))
			case "/api/v1/jobs":
				_, _ = w.Write([]byte(`[{"id":2},{"id":1}]`))
			case "/api/v1/datasets/gone":
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"message":"dataset gone not found","requestId":"r-1"}`))
			default:
				w.WriteHeader(http.StatusNoContent)
			}
		}))
	})

	AfterEach(func() {
		srv.Close()
	})

	It("reads a job", func() {
		c, err := client.New(srv.URL)
		Expect(err).To(BeNil())

		job, err := c.GetJob(context.TODO(), 7)
		Expect(err).To(BeNil())
		Expect(job.Progress).To(Equal(100))
		Expect(string(job.Status)).To(Equal("completed"))
	})

	It("sends the project as query", func() {
		c, _ := client.New(srv.URL)

		jobs, err := c.ListJobs(context.TODO(), "p1")
		Expect(err).To(BeNil())
		Expect(jobs).To(HaveLen(2))
		Expect(last.URL.Query().Get("projectId")).To(Equal("p1"))
	})

	It("returns the api error", func() {
		c, _ := client.New(srv.URL)

		_, err := c.GetDataset(context.TODO(), "gone")
		var apiErr *client.APIError
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.StatusCode).To(Equal(http.StatusNotFound))
		Expect(apiErr.RequestID).To(Equal("r-1"))
		Expect(err.Error()).To(ContainSubstring("dataset gone not found"))
	})

	It("accepts empty bodies", func() {
		c, _ := client.New(srv.URL)
		Expect(c.DeleteDataset(context.TODO(), "abc")).To(Succeed())
		Expect(last.Method).To(Equal(http.MethodDelete))
	})

	It("refuses relative server urls", func() {
		_, err := client.New("localhost")
		Expect(err).ToNot(BeNil())
	})
})
