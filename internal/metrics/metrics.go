// Package metrics registers the Prometheus collectors of the demo backend
// on the default registry and adapts them to csrf.Reporter.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CSRFTokensIssued counts minted tokens.
	CSRFTokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "csrfguard_tokens_issued_total",
		Help: "Total number of CSRF tokens minted.",
	})
	// CSRFChecks counts unsafe-request validations by method and result.
	CSRFChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csrfguard_checks_total",
		Help: "CSRF validations of unsafe requests by method and result code.",
	}, []string{"method", "result"})
	// HTTPRequests counts finished requests by method and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csrfguard_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "status"})
	// HTTPDuration observes request latency by method.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "csrfguard_http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	// ItemsTotal is the item count after the last write.
	ItemsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "csrfguard_items",
		Help: "Number of items in the store after the last write.",
	})
)

// resultAllowed labels successful CSRF checks.
const resultAllowed = "allowed"

// CSRFReporter feeds csrf.Protector outcomes into the package counters.
type CSRFReporter struct{}

func (CSRFReporter) TokenIssued() { CSRFTokensIssued.Inc() }

func (CSRFReporter) RequestAllowed(method string) {
	CSRFChecks.WithLabelValues(method, resultAllowed).Inc()
}

func (CSRFReporter) RequestRejected(method, code string) {
	CSRFChecks.WithLabelValues(method, code).Inc()
}

// ObserveHTTP records one finished request.
func ObserveHTTP(method string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method).Observe(d.Seconds())
}
