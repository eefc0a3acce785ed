package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	hitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "inferd",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	})

	missesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "inferd",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses (absent or expired)",
	})

	evictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "inferd",
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Total entries evicted under size pressure or TTL",
	})

	sizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "inferd",
		Subsystem: "cache",
		Name:      "size_bytes",
		Help:      "Current sum of cached entry size estimates",
	})
)

func init() {
	prometheus.MustRegister(hitsTotal, missesTotal, evictionsTotal, sizeBytes)
}
