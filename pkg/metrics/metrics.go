package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	TranscriptionsTotal  *prometheus.CounterVec
	InteractionChecks    *prometheus.CounterVec
	TransformRequests    *prometheus.CounterVec
	TransformCacheHits   prometheus.Counter
	TransformCacheMisses prometheus.Counter
	FollowUpGenerations  prometheus.Counter
	QAQuestionsTotal     prometheus.Counter
	VisitsSubmitted      prometheus.Counter

	SessionsActive prometheus.Gauge

	AuditEntriesTotal  prometheus.Counter
	AuditBufferDropped prometheus.Counter

	DBConnections prometheus.Gauge
}

func NewCollector(serviceName string) *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		TranscriptionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "visit",
			Name:      "transcriptions_total",
			Help:      "Audio clips uploaded for transcription, by outcome.",
		}, []string{"outcome"}),

		InteractionChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "visit",
			Name:      "interaction_checks_total",
			Help:      "Drug interaction checks, by outcome (skipped, ok, issues, error).",
		}, []string{"outcome"}),

		TransformRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "visit",
			Name:      "transform_requests_total",
			Help:      "Summary transformation calls to the AI backend, by kind.",
		}, []string{"kind"}),

		TransformCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "visit",
			Name:      "transform_cache_hits_total",
			Help:      "Viewer transform requests served from the per-view cache.",
		}),

		TransformCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "visit",
			Name:      "transform_cache_misses_total",
			Help:      "Viewer transform requests that had to call the AI backend.",
		}),

		FollowUpGenerations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "visit",
			Name:      "follow_up_generations_total",
			Help:      "Follow-up question generation calls (at most one per view).",
		}),

		QAQuestionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "visit",
			Name:      "qa_questions_total",
			Help:      "Patient Q&A questions forwarded to the AI backend.",
		}),

		VisitsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "visit",
			Name:      "submitted_total",
			Help:      "Reviewed visits confirmed by a doctor.",
		}),

		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "session",
			Name:      "active",
			Help:      "Current number of live server-side sessions.",
		}),

		AuditEntriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries written.",
		}),

		AuditBufferDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "buffer_dropped_total",
			Help:      "Audit entries dropped due to full buffer. Alert if non-zero.",
		}),

		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "db",
			Name:      "open_connections",
			Help:      "Current number of open database connections.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
