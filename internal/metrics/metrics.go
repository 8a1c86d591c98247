// Package metrics exposes lending counters in Prometheus format.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

const namespace = "mangalend"

// Result labels for loan requests.
const (
	ResultCreated    = "created"
	ResultActiveLoan = "active_loan"
	ResultNoAdmin    = "no_admin"
	ResultNotFound   = "not_found"
	ResultError      = "error"
)

// Metrics holds the lending counters and the registry they are exposed from.
type Metrics struct {
	registry *prometheus.Registry

	loanTransitions      *prometheus.CounterVec
	loanRequests         *prometheus.CounterVec
	notificationsCreated *prometheus.CounterVec
	notificationFaults   *prometheus.CounterVec
	waitlistDrained      prometheus.Counter
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

// New creates the counters on a fresh registry together with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loanTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loan_transitions_total",
			Help:      "Applied loan status transitions.",
		}, []string{"from", "to"}),
		loanRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loan_requests_total",
			Help:      "Loan requests by outcome.",
		}, []string{"result"}),
		notificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Notifications stored, by kind.",
		}, []string{"kind"}),
		notificationFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_faults_total",
			Help:      "Notifications that exhausted their delivery attempts, by kind.",
		}, []string{"kind"}),
		waitlistDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waitlist_drained_total",
			Help:      "Waitlist entries drained on item return.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.loanTransitions,
		m.loanRequests,
		m.notificationsCreated,
		m.notificationFaults,
		m.waitlistDrained,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) LoanTransition(from, to domain.LoanStatus) {
	if m == nil {
		return
	}
	m.loanTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) LoanRequest(result string) {
	if m == nil {
		return
	}
	m.loanRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) NotificationCreated(kind domain.NotificationKind) {
	if m == nil {
		return
	}
	m.notificationsCreated.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) NotificationFault(kind domain.NotificationKind) {
	if m == nil {
		return
	}
	m.notificationFaults.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) WaitlistDrained(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.waitlistDrained.Add(float64(n))
}

// HTTPRequest records one served request. route is the matched mux pattern.
func (m *Metrics) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
