package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider owns the service's Prometheus collectors. Construct it once
// per process; tests pass their own registry to avoid duplicate
// registration.
type Provider struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	readingsAccepted prometheus.Counter
	readingsRejected *prometheus.CounterVec
	storeFailures    prometheus.Counter
}

func NewProvider(reg prometheus.Registerer) *Provider {
	factory := promauto.With(reg)

	return &Provider{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "env_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "env_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		readingsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "env_readings_accepted_total",
			Help: "Total number of readings accepted and stored",
		}),

		readingsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "env_readings_rejected_total",
			Help: "Total number of rejected pushes by reason",
		}, []string{"reason"}),

		storeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "env_store_failures_total",
			Help: "Total number of failed store appends",
		}),
	}
}

func (p *Provider) IncAccepted() {
	p.readingsAccepted.Inc()
}

func (p *Provider) IncRejected(reason string) {
	p.readingsRejected.WithLabelValues(reason).Inc()
}

func (p *Provider) IncStoreFailure() {
	p.storeFailures.Inc()
}

// Middleware records request counts and durations per matched route.
func (p *Provider) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		p.requestsTotal.WithLabelValues(endpoint, statusBucket(c.Writer.Status())).Inc()
		p.requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
