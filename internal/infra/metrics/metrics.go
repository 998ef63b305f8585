// Package metrics счётчики Prometheus для записи, отмены и обновления представлений.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "classbooking"

// Результаты операций
const (
	ResultOK         = "ok"
	ResultValidation = "validation"
	ResultTransient  = "transient"
	ResultBackend    = "backend"
)

// Причины обновления представлений
const (
	TriggerBook     = "book"
	TriggerCancel   = "cancel"
	TriggerRace     = "race"
	TriggerPeriodic = "periodic"
)

var (
	BookAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "book_attempts_total",
		Help:      "Booking attempts by result.",
	}, []string{"result"})

	CancelAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cancel_attempts_total",
		Help:      "Cancellation attempts by result.",
	}, []string{"result"})

	ViewRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "view_refreshes_total",
		Help:      "Re-fetches of catalog, subscriptions and bookings by trigger.",
	}, []string{"trigger"})

	BackendRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Latency of backend operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

// Register регистрирует счётчики в реестре. Повторная регистрация не ошибка.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{BookAttempts, CancelAttempts, ViewRefreshes, BackendRequestDuration} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}
