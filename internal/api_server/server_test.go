package apiserver_test

import (
	"net/http"
	"net/http/httptest"

	apiserver "github.com/dataforge/dataset-pipeline/internal/api_server"
	"github.com/dataforge/dataset-pipeline/internal/blob"
	"github.com/dataforge/dataset-pipeline/internal/config"
	handlers "github.com/dataforge/dataset-pipeline/internal/handlers/v1alpha1"
	"github.com/dataforge/dataset-pipeline/internal/service"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("api server router", Ordered, func() {
	var router http.Handler

	BeforeAll(func() {
		b, err := blob.NewLocalStore(GinkgoT().TempDir(), "http://localhost:3443", []byte("secret"))
		Expect(err).To(BeNil())

		cfg := &config.Config{Service: &config.SvcConfig{Address: ":0", AllowedOrigins: []string{"https://app.example.com"}}}
		h := handlers.NewServiceHandler(nil, nil, nil, nil, service.NewPreviewService())
		router = apiserver.New(cfg, h, b.Handler(), nil).Router()
	})

	It("serves health with a request id", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("x-request-id")).ToNot(BeEmpty())
	})

	It("answers cors preflight for allowed origins", func() {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/jobs", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://app.example.com"))
	})

	It("mounts the blob handler", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blobs/datasets/p1/1.jsonl", nil))

		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("routes the api", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/info", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
	})
})
