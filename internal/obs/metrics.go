package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Общие метрики обработки входящих сообщений бота.
var (
	updatesInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bot_updates_in_flight",
		Help: "Inbound messages currently being handled.",
	})

	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of handled inbound messages.",
		},
		[]string{"action", "outcome"},
	)

	updateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_update_duration_seconds",
			Help:    "Inbound message handling latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	storeErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_store_errors_total",
		Help: "Store calls that failed.",
	})
)

// Init registers the metrics in the default registry.
func Init() {
	prometheus.MustRegister(updatesInFlight, updatesTotal, updateDuration, storeErrorsTotal)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// UpdateStarted marks an inbound message as in flight and returns a done
// callback recording the action label, outcome and duration.
func UpdateStarted() func(action, outcome string) {
	updatesInFlight.Inc()
	start := time.Now()
	return func(action, outcome string) {
		updatesInFlight.Dec()
		updatesTotal.WithLabelValues(action, outcome).Inc()
		updateDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
	}
}

// StoreError counts a failed store call.
func StoreError() {
	storeErrorsTotal.Inc()
}
