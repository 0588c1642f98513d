package daemon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callconsole",
		Subsystem: "daemon",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "callconsole",
		Subsystem: "daemon",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	callEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callconsole",
		Subsystem: "calls",
		Name:      "events_total",
		Help:      "Call lifecycle events (created, activated, held, transferred, ended).",
	}, []string{"event"})

	callsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "callconsole",
		Subsystem: "calls",
		Name:      "live",
		Help:      "Calls that have been created and not yet ended.",
	})

	chatResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callconsole",
		Subsystem: "chat",
		Name:      "responses_total",
		Help:      "AI assistant responses by response level.",
	}, []string{"level"})

	transcriptSegmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callconsole",
		Subsystem: "transcript",
		Name:      "segments_total",
		Help:      "Transcript segments appended, by speaker.",
	}, []string{"speaker"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "callconsole",
		Subsystem: "transcript",
		Name:      "ws_connections_active",
		Help:      "Open transcript stream connections.",
	})
)

func observeRequest(method, route, status string, latency time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(route).Observe(latency.Seconds())
}
