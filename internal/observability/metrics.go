package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ottdctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ottdctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ottdctl",
			Subsystem: "admin",
			Name:      "frames_received_total",
			Help:      "Admin protocol frames read from the game server.",
		},
		[]string{"server", "packet"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ottdctl",
			Subsystem: "admin",
			Name:      "frames_sent_total",
			Help:      "Admin protocol frames written to the game server.",
		},
		[]string{"server", "packet", "success"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ottdctl",
			Subsystem: "admin",
			Name:      "decode_errors_total",
			Help:      "Frames dropped because they could not be decoded.",
		},
		[]string{"server", "packet"},
	)
	reconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ottdctl",
			Subsystem: "admin",
			Name:      "reconnects_total",
			Help:      "Session losses by classified reason.",
		},
		[]string{"server", "reason"},
	)
	listenerPanics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ottdctl",
			Subsystem: "admin",
			Name:      "listener_panics_total",
			Help:      "Listener callbacks that panicked during dispatch.",
		},
		[]string{"server", "category"},
	)
	sessionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ottdctl",
			Subsystem: "admin",
			Name:      "session_state",
			Help:      "Current session state (0 disconnected .. 4 active).",
		},
		[]string{"server"},
	)
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ottdctl",
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Outbound notifications by sink and outcome.",
		},
		[]string{"sink", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			framesReceived, framesSent, decodeErrors, reconnects, listenerPanics, sessionState,
			notifications,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrameReceived(server, packet string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(server, packet).Inc()
}

func RecordFrameSent(server, packet string, success bool) {
	RegisterMetrics()
	framesSent.WithLabelValues(server, packet, strconv.FormatBool(success)).Inc()
}

func RecordDecodeError(server, packet string) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(server, packet).Inc()
}

func RecordReconnect(server, reason string) {
	RegisterMetrics()
	reconnects.WithLabelValues(server, reason).Inc()
}

func RecordListenerPanic(server, category string) {
	RegisterMetrics()
	listenerPanics.WithLabelValues(server, category).Inc()
}

func SetSessionState(server string, state int) {
	RegisterMetrics()
	sessionState.WithLabelValues(server).Set(float64(state))
}

func RecordNotification(sink, outcome string) {
	RegisterMetrics()
	notifications.WithLabelValues(sink, outcome).Inc()
}
