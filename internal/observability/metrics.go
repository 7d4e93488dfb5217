package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors on a private registry.
// All methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	errors           *prometheus.CounterVec
	sweeps           *prometheus.CounterVec
	sweepDuration    prometheus.Histogram
	openTickets      prometheus.Gauge
	alerts           *prometheus.CounterVec
	claimConflicts   prometheus.Counter
	transitions      *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	textFallbacks    *prometheus.CounterVec
	summaryDurations prometheus.Histogram
}

// NewMetrics initializes and registers collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaint_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "complaint_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaint_http_errors_total",
			Help: "HTTP errors by route, method and error code.",
		}, []string{"route", "method", "code"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaint_sla_sweeps_total",
			Help: "SLA monitor sweeps by result.",
		}, []string{"result"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "complaint_sla_sweep_duration_seconds",
			Help:    "Duration of one SLA sweep.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		openTickets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "complaint_sla_open_tickets",
			Help: "Open tickets seen by the last sweep.",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaint_sla_alerts_total",
			Help: "SLA alerts fired by level and priority.",
		}, []string{"level", "priority"}),
		claimConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "complaint_sla_claim_conflicts_total",
			Help: "Alert claims lost to a concurrent writer.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaint_ticket_transitions_total",
			Help: "Ticket status transitions.",
		}, []string{"from", "to"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaint_notifications_total",
			Help: "Notification deliveries by job and result.",
		}, []string{"job", "result"}),
		textFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaint_text_fallbacks_total",
			Help: "Text service calls replaced by their fallback.",
		}, []string{"op"}),
		summaryDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "complaint_summary_duration_seconds",
			Help:    "Time spent generating session summaries.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.Registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.errors,
		m.sweeps,
		m.sweepDuration,
		m.openTickets,
		m.alerts,
		m.claimConflicts,
		m.transitions,
		m.notifications,
		m.textFallbacks,
		m.summaryDurations,
	)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordSweep records one monitor sweep.
func (m *Metrics) RecordSweep(result string, open int, duration time.Duration) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(result).Inc()
	if result != "locked" {
		m.openTickets.Set(float64(open))
		m.sweepDuration.Observe(duration.Seconds())
	}
}

// RecordAlert counts a fired SLA alert.
func (m *Metrics) RecordAlert(level, priority string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(level, priority).Inc()
}

// RecordClaimConflict counts a lost alert claim.
func (m *Metrics) RecordClaimConflict() {
	if m == nil {
		return
	}
	m.claimConflicts.Inc()
}

// RecordTransition counts a ticket status change.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// RecordNotification counts a finished delivery job.
func (m *Metrics) RecordNotification(job string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.notifications.WithLabelValues(job, result).Inc()
}

// RecordTextFallback counts a text service fallback.
func (m *Metrics) RecordTextFallback(op string) {
	if m == nil {
		return
	}
	m.textFallbacks.WithLabelValues(op).Inc()
}

// ObserveSummary records summary generation latency.
func (m *Metrics) ObserveSummary(duration time.Duration) {
	if m == nil {
		return
	}
	m.summaryDurations.Observe(duration.Seconds())
}
