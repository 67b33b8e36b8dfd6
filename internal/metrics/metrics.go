package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters and histograms for queue, visit and mail flows.
type Metrics struct {
	bookingsTotal      *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	queueClients       prometheus.Gauge
	httpDuration       *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "curequeue",
			Subsystem: "scheduler",
			Name:      "bookings_total",
			Help:      "Appointments booked, by booking kind",
		}, []string{"kind"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "curequeue",
			Name:      "status_transitions_total",
			Help:      "Status changes applied to appointments and home visits",
		}, []string{"entity", "status"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "curequeue",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Email notifications by kind and outcome",
		}, []string{"kind", "outcome"}),
		queueClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "curequeue",
			Subsystem: "realtime",
			Name:      "queue_clients",
			Help:      "Connected queue display clients",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "curequeue",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.transitionsTotal, m.notificationsTotal, m.queueClients, m.httpDuration)
	return m
}

func (m *Metrics) ObserveBooking(kind string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveTransition(entity, status string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(entity, status).Inc()
}

func (m *Metrics) ObserveNotification(kind, outcome string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) SetQueueClients(n int) {
	if m == nil {
		return
	}
	m.queueClients.Set(float64(n))
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
