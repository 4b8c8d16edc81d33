package gateway

import (
	"strings"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the gateway collectors on reg. A nil reg gives
// collectors that are never exported.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cementops",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Remote API requests by method, resource and outcome.",
		}, []string{"method", "resource", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cementops",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Remote API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "resource"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

func (m *Metrics) observe(method, path, outcome string, seconds float64) {
	if m == nil {
		return
	}
	res := resourceLabel(path)
	m.requests.WithLabelValues(method, res, outcome).Inc()
	m.duration.WithLabelValues(method, res).Observe(seconds)
}

// resourceLabel collapses numeric path segments so ids do not explode label
// cardinality: /depots/42 -> /depots/:id.
func resourceLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p != "" && strings.IndexFunc(p, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
