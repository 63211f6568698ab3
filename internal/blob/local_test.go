package blob_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	"github.com/dataforge/dataset-pipeline/internal/blob"
	"github.com/go-chi/chi/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("local store", func() {
	var (
		store  *blob.LocalStore
		server *httptest.Server
		ctx    = context.TODO()
	)

	BeforeEach(func() {
		router := chi.NewRouter()
		server = httptest.NewServer(router)

		var err error
		store, err = blob.NewLocalStore(GinkgoT().TempDir(), server.URL, []byte("secret"))
		Expect(err).To(BeNil())
		router.Mount("/blobs", store.Handler())
	})

	AfterEach(func() {
		server.Close()
	})

	It("stores and fetches bytes", func() {
		Expect(store.Store(ctx, "datasets/p1/out.jsonl", []byte(`{"a":1}`), "application/x-ndjson")).To(Succeed())
		data, err := store.Fetch(ctx, "datasets/p1/out.jsonl")
		Expect(err).To(BeNil())
		Expect(string(data)).To(Equal(`{"a":1}`))
	})

	It("reports missing objects", func() {
		_, err := store.Fetch(ctx, "missing")
		Expect(errors.Is(err, blob.ErrObjectNotFound)).To(BeTrue())
	})

	It("rejects keys escaping the root", func() {
		Expect(store.Store(ctx, "../outside", []byte("x"), "")).ToNot(Succeed())
		_, err := store.Fetch(ctx, "")
		Expect(err).ToNot(BeNil())
	})

	It("accepts an upload through a presigned url", func() {
		u, err := store.PresignUpload(ctx, "sources/p1/in.csv", "text/csv", time.Minute)
		Expect(err).To(BeNil())

		req, err := http.NewRequest(http.MethodPut, u, bytes.NewBufferString("name\nJane\n"))
		Expect(err).To(BeNil())
		resp, err := http.DefaultClient.Do(req)
		Expect(err).To(BeNil())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		data, err := store.Fetch(ctx, "sources/p1/in.csv")
		Expect(err).To(BeNil())
		Expect(string(data)).To(Equal("name\nJane\n"))
	})

	It("serves a download with the attachment name", func() {
		Expect(store.Store(ctx, "datasets/x.csv", []byte("a\n1\n"), "text/csv")).To(Succeed())
		u, err := store.PresignDownload(ctx, "datasets/x.csv", time.Minute, "report.csv")
		Expect(err).To(BeNil())

		resp, err := http.Get(u)
		Expect(err).To(BeNil())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Disposition")).To(Equal(`attachment; filename="report.csv"`))
		body, _ := io.ReadAll(resp.Body)
		Expect(string(body)).To(Equal("a\n1\n"))
	})

	It("rejects a tampered url", func() {
		Expect(store.Store(ctx, "datasets/x.csv", []byte("a"), "text/csv")).To(Succeed())
		u, err := store.PresignDownload(ctx, "datasets/x.csv", time.Minute, "")
		Expect(err).To(BeNil())

		parsed, _ := url.Parse(u)
		q := parsed.Query()
		q.Set("filename", "other.csv")
		parsed.RawQuery = q.Encode()

		resp, err := http.Get(parsed.String())
		Expect(err).To(BeNil())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
	})

	It("refuses a download url used for upload", func() {
		u, err := store.PresignDownload(ctx, "datasets/y.csv", time.Minute, "")
		Expect(err).To(BeNil())

		req, _ := http.NewRequest(http.MethodPut, u, bytes.NewBufferString("x"))
		resp, err := http.DefaultClient.Do(req)
		Expect(err).To(BeNil())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
	})

	It("validates the ttl", func() {
		_, err := store.PresignDownload(ctx, "k", 0, "")
		Expect(err).ToNot(BeNil())
		_, err = store.PresignUpload(ctx, "k", "", 8*24*time.Hour)
		Expect(err).ToNot(BeNil())
	})
})
