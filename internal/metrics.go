package internal

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultMetricsNamespace = "zotero"

// Metrics holds the dispatcher's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	channels   *prometheus.CounterVec
	inFlight   *prometheus.GaugeVec
	duration   *prometheus.HistogramVec
	principals prometheus.Counter
	proxyLoads *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg under namespace.
// Empty namespace means "zotero".
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultMetricsNamespace
	}
	factory := promauto.With(reg)

	return &Metrics{
		channels: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channels_total",
			Help:      "Channels opened, by extension and stop status.",
		}, []string{"extension", "status"}),

		inFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels_in_flight",
			Help:      "Channels currently open.",
		}, []string{"extension"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "channel_duration_seconds",
			Help:      "Time from Open to the stop notification.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"extension"}),

		principals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "principal_acquisitions_total",
			Help:      "Privileged principal acquisitions from the host.",
		}),

		proxyLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_loads_total",
			Help:      "Proxy short-circuit loads, by result.",
		}, []string{"result"}),
	}
}

// channelOpened marks a channel in flight and returns the function that
// records its completion.
func (m *Metrics) channelOpened(ext string) func(Status, time.Duration) {
	if m == nil {
		return func(Status, time.Duration) {}
	}
	if ext == "" {
		ext = "none"
	}
	m.inFlight.WithLabelValues(ext).Inc()
	return func(s Status, d time.Duration) {
		m.inFlight.WithLabelValues(ext).Dec()
		m.channels.WithLabelValues(ext, s.String()).Inc()
		m.duration.WithLabelValues(ext).Observe(d.Seconds())
	}
}

func (m *Metrics) principalAcquired() {
	if m != nil {
		m.principals.Inc()
	}
}

func (m *Metrics) proxyLoad(result string) {
	if m != nil {
		m.proxyLoads.WithLabelValues(result).Inc()
	}
}
