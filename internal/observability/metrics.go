package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MonitorTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gatewatch",
		Name:      "monitor_ticks_total",
		Help:      "Total number of completed monitor ticks",
	})

	CamerasPolled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatewatch",
		Name:      "cameras_polled_total",
		Help:      "Total number of per-camera poll dispatches",
	}, []string{"result"})

	FramesCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatewatch",
		Name:      "frames_captured_total",
		Help:      "Total number of frame capture attempts",
	}, []string{"result"})

	CaptureDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gatewatch",
		Name:      "capture_duration_seconds",
		Help:      "Duration of single-frame capture attempts",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8),
	})

	FacesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatewatch",
		Name:      "faces_detected_total",
		Help:      "Total number of faces detected in captured frames",
	}, []string{"tenant_id"})

	FacesMatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatewatch",
		Name:      "faces_matched_total",
		Help:      "Total number of faces matched against a tenant gallery",
	}, []string{"tenant_id"})

	AttendanceRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatewatch",
		Name:      "attendance_recorded_total",
		Help:      "Total number of first-sight attendance records inserted",
	}, []string{"tenant_id"})

	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatewatch",
		Name:      "notifications_published_total",
		Help:      "Total number of arrival notifications published to the outbox",
	}, []string{"tenant_id"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gatewatch",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	InFlightCameras = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gatewatch",
		Name:      "in_flight_cameras",
		Help:      "Number of cameras currently being processed",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gatewatch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gatewatch",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
