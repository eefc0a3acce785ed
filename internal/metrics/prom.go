package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	inferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "inferd",
			Subsystem: "inference",
			Name:      "duration_seconds",
			Help:      "End-to-end duration of inference calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	samplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "inference",
			Name:      "samples_total",
			Help:      "Total recorded inference samples",
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(inferenceDuration, samplesTotal)
}
