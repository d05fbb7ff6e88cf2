package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Submissions         *prometheus.CounterVec
	RateLimitRejections prometheus.Counter
	TrackedIdentifiers  prometheus.Gauge
	RateLimitDegraded   prometheus.Gauge
	AuditAppendFailures *prometheus.CounterVec
	ExportedRecords     prometheus.Counter
	ErasedRecords       prometheus.Counter
	RetentionPurged     *prometheus.CounterVec
	RequestLatency      *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact form submissions by pipeline outcome",
		}, []string{"outcome"}),
		RateLimitRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "contact_rate_limit_rejections_total",
			Help: "Submissions rejected by the sliding window limiter",
		}),
		TrackedIdentifiers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "contact_rate_limit_tracked_identifiers",
			Help: "Hashed identifiers currently holding a rate window",
		}),
		RateLimitDegraded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "contact_rate_limit_store_degraded",
			Help: "1 while the limiter answers from its in-memory fallback",
		}),
		AuditAppendFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_audit_append_failures_total",
			Help: "Audit events that could not be appended, by sink",
		}, []string{"sink"}),
		ExportedRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "contact_dsr_exported_records_total",
			Help: "Records returned by data portability requests",
		}),
		ErasedRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "contact_dsr_erased_records_total",
			Help: "Records deleted by erasure requests",
		}),
		RetentionPurged: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_retention_purged_total",
			Help: "Records removed by the retention sweep, by data class",
		}, []string{"class"}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contact_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) IncSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitRejections.Inc()
}

func (m *Metrics) SetTrackedIdentifiers(n int) {
	if m == nil {
		return
	}
	m.TrackedIdentifiers.Set(float64(n))
}

func (m *Metrics) SetRateLimitDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.RateLimitDegraded.Set(1)
		return
	}
	m.RateLimitDegraded.Set(0)
}

func (m *Metrics) IncAuditFailure(sink string) {
	if m == nil {
		return
	}
	m.AuditAppendFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) AddExported(n int) {
	if m == nil {
		return
	}
	m.ExportedRecords.Add(float64(n))
}

func (m *Metrics) AddErased(n int) {
	if m == nil {
		return
	}
	m.ErasedRecords.Add(float64(n))
}

func (m *Metrics) AddPurged(class string, n int) {
	if m == nil {
		return
	}
	m.RetentionPurged.WithLabelValues(class).Add(float64(n))
}

// ObserveLatency records a request duration under its route pattern.
func (m *Metrics) ObserveLatency(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(route, status).Observe(d.Seconds())
}
