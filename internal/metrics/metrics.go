package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	AuthRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Total number of unauthorized requests",
		},
		[]string{"reason"},
	)
	MissionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "withyou_mission_transitions_total",
			Help: "Mission lifecycle transitions by action",
		},
		[]string{"action"},
	)
	ProofsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "withyou_proofs_submitted_total",
			Help: "Daily goal proofs accepted",
		},
	)
	NotificationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "withyou_notification_failures_total",
			Help: "Best-effort notification deliveries that failed, by channel",
		},
		[]string{"channel"},
	)
	LiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "withyou_live_streams",
			Help: "Open server-sent event streams",
		},
	)
)

// Register adds every collector to reg. Call once from main.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AuthRejections,
		MissionTransitions,
		ProofsSubmitted,
		NotificationFailures,
		LiveStreams,
	)
}
