// Package telemetry exports Prometheus metrics for the bin-go service.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/menta2k/bin-go/pkg/types"
)

const namespace = "bingo"

// Collaborator names used for upstream failure counts
const (
	CollaboratorVision = "vision"
	CollaboratorPlaces = "places"
)

// Metrics holds all service Prometheus metrics
type Metrics struct {
	Classifications  *prometheus.CounterVec
	UpstreamFailures *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	InFlightRejected *prometheus.CounterVec
}

// Provider owns a private registry and the metrics registered on it
type Provider struct {
	Registry *prometheus.Registry
	Metrics  *Metrics
}

// NewProvider creates a registry with the service metrics plus the Go and
// process collectors
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Total classifications by resulting bin and source",
		}, []string{"bin", "source"}),

		UpstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Total failed calls to external collaborators",
		}, []string{"collaborator"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route", "status"}),

		InFlightRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_rejected_in_flight_total",
			Help:      "Requests rejected because the caller already had one running",
		}, []string{"action"}),
	}
	reg.MustRegister(m.Classifications, m.UpstreamFailures, m.RequestDuration, m.InFlightRejected)

	return &Provider{Registry: reg, Metrics: m}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{Registry: p.Registry})
}

// RecordClassification counts one classification result
func (p *Provider) RecordClassification(res types.Result) {
	p.Metrics.Classifications.WithLabelValues(string(res.Bin), string(res.Source)).Inc()
}

// RecordUpstreamFailure counts one failed call to a collaborator
func (p *Provider) RecordUpstreamFailure(collaborator string) {
	p.Metrics.UpstreamFailures.WithLabelValues(collaborator).Inc()
}

// FailureHook returns a callback suitable for recognizer and finder failure hooks
func (p *Provider) FailureHook(collaborator string) func(error) {
	return func(error) {
		p.RecordUpstreamFailure(collaborator)
	}
}

// RecordInFlightRejected counts one duplicate request rejection
func (p *Provider) RecordInFlightRejected(action string) {
	p.Metrics.InFlightRejected.WithLabelValues(action).Inc()
}

// ObserveTrackedRequests exports fn as the number of request states held
// by the flight tracker
func (p *Provider) ObserveTrackedRequests(fn func() int) error {
	return p.Registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracked_requests",
		Help:      "Request states currently held, in flight or recently finished",
	}, func() float64 {
		return float64(fn())
	}))
}

// RecordRequest observes one HTTP request duration
func (p *Provider) RecordRequest(method, route string, status int, duration time.Duration) {
	p.Metrics.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Middleware records request durations labelled by the matched route
func (p *Provider) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		p.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
