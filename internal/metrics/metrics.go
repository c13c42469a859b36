package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	backendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dine",
			Name:      "backend_requests_total",
			Help:      "Backend calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	backendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dine",
			Name:      "backend_request_seconds",
			Help:      "Backend call latency by operation.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	jukeboxQueue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dine",
			Name:      "jukebox_queue_length",
			Help:      "Requests in the last fetched jukebox view by bucket.",
		},
		[]string{"bucket"},
	)
)

// Outcomes recorded on backend calls.
const (
	OutcomeOK        = "ok"
	OutcomeRejected  = "rejected"
	OutcomeTransport = "transport"
	OutcomeCached    = "cached"
)

// Register registers the collectors with the default registry. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(backendRequests, backendLatency, jukeboxQueue)
	})
}

// ObserveBackend records one backend call.
func ObserveBackend(operation, outcome string, d time.Duration) {
	backendRequests.WithLabelValues(operation, outcome).Inc()
	if outcome != OutcomeCached {
		backendLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

func SetJukeboxQueue(bucket string, n int) {
	jukeboxQueue.WithLabelValues(bucket).Set(float64(n))
}
