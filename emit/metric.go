package emit

import (
	"github.com/prometheus/client_golang/prometheus"
)

var transportFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "proctor_transport_failures_total",
	Help: "Outbound transport calls that failed after the state commit.",
}, []string{"op"})

func MustRegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(transportFailures)
}
