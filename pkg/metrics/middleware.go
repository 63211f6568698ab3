package metrics

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// EnvHTTPLatencyBuckets overrides the latency buckets, formatted like "10,50,250".
	EnvHTTPLatencyBuckets = "PIPELINE_HTTP_LATENCY_BUCKETS"

	httpRequestsTotal   = "http_requests_total"
	httpRequestDuration = "http_request_duration_milliseconds"
	httpInFlight        = "http_requests_in_flight"
)

var defaultLatencyBuckets = []float64{10, 50, 250, 1000, 5000}

// Middleware records count and latency of every request, labelled with the
// chi route pattern so /jobs/{id} is one series.
type Middleware struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func NewMiddleware(server string) *Middleware {
	constLabels := prometheus.Labels{"server": server}
	labels := []string{"code", "method", "route"}

	return &Middleware{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem:   pipelineSubsystem,
			Name:        httpRequestsTotal,
			Help:        "Number of HTTP requests by status code, method and route.",
			ConstLabels: constLabels,
		}, labels),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem:   pipelineSubsystem,
			Name:        httpRequestDuration,
			Help:        "Duration of HTTP requests by status code, method and route.",
			ConstLabels: constLabels,
			Buckets:     latencyBuckets(),
		}, labels),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem:   pipelineSubsystem,
			Name:        httpInFlight,
			Help:        "Number of HTTP requests being served.",
			ConstLabels: constLabels,
		}),
	}
}

func latencyBuckets() []float64 {
	conf, ok := os.LookupEnv(EnvHTTPLatencyBuckets)
	if !ok || strings.TrimSpace(conf) == "" {
		return defaultLatencyBuckets
	}
	buckets := make([]float64, 0, 8)
	for _, v := range strings.Split(conf, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			panic(fmt.Sprintf("invalid %s: %s", EnvHTTPLatencyBuckets, err))
		}
		buckets = append(buckets, f)
	}
	return buckets
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		code := strconv.Itoa(ww.Status())
		m.requests.WithLabelValues(code, r.Method, route).Inc()
		m.latency.WithLabelValues(code, r.Method, route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

func (m *Middleware) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requests, m.latency, m.inFlight}
}

// MustRegisterDefault registers the collectors to prometheus.DefaultRegisterer.
func (m *Middleware) MustRegisterDefault() {
	prometheus.MustRegister(m.Collectors()...)
}
