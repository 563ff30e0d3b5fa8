package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "admission_queue_depth",
			Help: "Current queue depth per event and queue type",
		},
		[]string{"event_id", "queue_type"},
	)

	promotions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_promotions_total",
			Help: "Users promoted from waiting to entered",
		},
		[]string{"event_id", "result"},
	)

	expirations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_expirations_total",
			Help: "Entered users expired by the sweep job",
		},
		[]string{"event_id"},
	)

	seatConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_seat_conflicts_total",
			Help: "Seat reservations rejected by the optimistic version check",
		},
		[]string{"event_id"},
	)

	cacheFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_cache_failures_total",
			Help: "Cache backend failures by guard strategy",
		},
		[]string{"strategy", "operation"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admission_job_duration_seconds",
			Help:    "Duration of scheduled job runs",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"job"},
	)
)

// Monitor is the narrow surface services use to report metrics.
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) SetQueueDepth(eventID, queueType string, depth int64) {
	queueDepth.WithLabelValues(eventID, queueType).Set(float64(depth))
}

func (m *Monitor) TrackPromotion(eventID, result string) {
	promotions.WithLabelValues(eventID, result).Inc()
}

func (m *Monitor) TrackExpiration(eventID string, count int) {
	expirations.WithLabelValues(eventID).Add(float64(count))
}

func (m *Monitor) TrackSeatConflict(eventID string) {
	seatConflicts.WithLabelValues(eventID).Inc()
}

func (m *Monitor) TrackCacheFailure(strategy, operation string) {
	cacheFailures.WithLabelValues(strategy, operation).Inc()
}

func (m *Monitor) ObserveJobDuration(job string, d time.Duration) {
	jobDuration.WithLabelValues(job).Observe(d.Seconds())
}
