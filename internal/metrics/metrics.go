// metrics — Prometheus-метрики клиента: координатор сессии и исходящие HTTP-запросы.
// Все методы безопасны для nil-получателя: метрики опциональны.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "social_client"

type Metrics struct {
	RefreshTotal      *prometheus.CounterVec
	QueuedTotal       prometheus.Counter
	AuthFailuresTotal prometheus.Counter
	LogoutsTotal      prometheus.Counter
	RequestDuration   *prometheus.HistogramVec
}

// New создаёт метрики и регистрирует их в reg (если reg != nil).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refresh_total",
			Help:      "Token refresh calls by result.",
		}, []string{"result"}),
		QueuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "queued_requests_total",
			Help:      "Requests that waited for an in-flight refresh.",
		}),
		AuthFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "auth_failures_total",
			Help:      "Responses rejected with 401.",
		}),
		LogoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "logouts_total",
			Help:      "Transitions to the logged-out state.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Outgoing API request duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}

	if reg != nil {
		reg.MustRegister(m.RefreshTotal, m.QueuedTotal, m.AuthFailuresTotal, m.LogoutsTotal, m.RequestDuration)
	}

	return m
}

func (m *Metrics) RefreshSucceeded() {
	if m != nil {
		m.RefreshTotal.WithLabelValues("success").Inc()
	}
}

func (m *Metrics) RefreshFailed() {
	if m != nil {
		m.RefreshTotal.WithLabelValues("failure").Inc()
	}
}

func (m *Metrics) Queued() {
	if m != nil {
		m.QueuedTotal.Inc()
	}
}

func (m *Metrics) AuthFailure() {
	if m != nil {
		m.AuthFailuresTotal.Inc()
	}
}

func (m *Metrics) Logout() {
	if m != nil {
		m.LogoutsTotal.Inc()
	}
}

// ObserveRequest — code=0 означает сетевую ошибку (ответа нет).
func (m *Metrics) ObserveRequest(method string, code int, dur time.Duration) {
	if m == nil {
		return
	}

	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.RequestDuration.WithLabelValues(method, label).Observe(dur.Seconds())
}
