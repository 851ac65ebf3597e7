// Package metrics exposes Prometheus instruments for the storefront API
// and a CloudWatch recorder for the session worker.
package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Landing outcome label values.
const (
	LandingSuccess = "success"
	LandingCancel  = "cancel"
	LandingFail    = "fail"
)

// Server holds the API's Prometheus instruments on its own registry.
type Server struct {
	registry  *prometheus.Registry
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
	Landings  *prometheus.CounterVec
	Checkouts *prometheus.CounterVec
}

func NewServer() *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		registry: reg,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "http_request_duration_ms",
			Help:      "Duration of HTTP requests in ms.",
			Buckets:   []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		}, []string{"method", "path"}),
		Landings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "payment_landings_total",
			Help:      "Provider return landings by page and resulting state.",
		}, []string{"landing", "state"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkouts_total",
			Help:      "Place-order attempts by payment method and result.",
		}, []string{"method", "result"}),
	}
	reg.MustRegister(
		s.Requests, s.LatencyMS, s.Landings, s.Checkouts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return s
}

// Middleware records request count and latency per route.
func (s *Server) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := float64(time.Since(start).Milliseconds())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		s.Requests.WithLabelValues(c.Request.Method, path,
			http.StatusText(c.Writer.Status())).Inc()
		s.LatencyMS.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (s *Server) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// Registry is exposed for tests.
func (s *Server) Registry() *prometheus.Registry { return s.registry }
