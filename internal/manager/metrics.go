package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "inferd",
		Subsystem: "manager",
		Name:      "loads_total",
		Help:      "Total successful model loads",
	})

	loadFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "inferd",
		Subsystem: "manager",
		Name:      "load_failures_total",
		Help:      "Total failed model loads",
	})

	unloadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "inferd",
		Subsystem: "manager",
		Name:      "unloads_total",
		Help:      "Total model unloads that released resources",
	})

	adapterFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "inferd",
		Subsystem: "manager",
		Name:      "adapter_failures_total",
		Help:      "Total failed adapter invocations",
	})
)

func init() {
	prometheus.MustRegister(loadsTotal, loadFailuresTotal, unloadsTotal, adapterFailuresTotal)
}
