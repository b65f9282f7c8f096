package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storyd",
			Subsystem: "engine",
			Name:      "loads_total",
			Help:      "Total model load attempts by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	generateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storyd",
			Subsystem: "engine",
			Name:      "generate_total",
			Help:      "Total generation dispatches by backend",
		},
		[]string{"backend"},
	)

	generateFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storyd",
			Subsystem: "engine",
			Name:      "generate_failures_total",
			Help:      "Total failed generations by backend",
		},
		[]string{"backend"},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, generateTotal, generateFailures)
}
