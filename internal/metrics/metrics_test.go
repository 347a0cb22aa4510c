package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistered(t *testing.T) {
	// Vec metrics only show up in Gather once a label set exists.
	CSRFChecks.WithLabelValues("POST", resultAllowed)
	HTTPRequests.WithLabelValues("GET", "200")
	HTTPDuration.WithLabelValues("GET")

	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	expected := map[string]bool{
		"csrfguard_tokens_issued_total":           false,
		"csrfguard_checks_total":                  false,
		"csrfguard_http_requests_total":           false,
		"csrfguard_http_request_duration_seconds": false,
		"csrfguard_items":                         false,
	}
	for _, mf := range mfs {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}
	for name, found := range expected {
		assert.True(t, found, "metric %s not registered", name)
	}
}

func TestCSRFReporter(t *testing.T) {
	var r CSRFReporter

	issued := testutil.ToFloat64(CSRFTokensIssued)
	r.TokenIssued()
	assert.Equal(t, issued+1, testutil.ToFloat64(CSRFTokensIssued))

	allowed := testutil.ToFloat64(CSRFChecks.WithLabelValues("PUT", resultAllowed))
	r.RequestAllowed("PUT")
	assert.Equal(t, allowed+1, testutil.ToFloat64(CSRFChecks.WithLabelValues("PUT", resultAllowed)))

	missing := testutil.ToFloat64(CSRFChecks.WithLabelValues("DELETE", "CSRF_TOKEN_MISSING"))
	r.RequestRejected("DELETE", "CSRF_TOKEN_MISSING")
	assert.Equal(t, missing+1, testutil.ToFloat64(CSRFChecks.WithLabelValues("DELETE", "CSRF_TOKEN_MISSING")))
}

func TestObserveHTTP(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("PATCH", "403"))
	ObserveHTTP("PATCH", 403, 5*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequests.WithLabelValues("PATCH", "403")))
}
