package metrics

import "github.com/prometheus/client_golang/prometheus"

var breakerStates = []string{"closed", "half-open", "open"}

func newBreakerStateGauge() *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per operation; the current state is 1.",
		},
		[]string{"operation", "state"},
	)
}

func setBreakerState(gauge *prometheus.GaugeVec, operation, state string) {
	for _, candidate := range breakerStates {
		value := 0.0
		if candidate == state {
			value = 1
		}
		gauge.WithLabelValues(operation, candidate).Set(value)
	}
}
