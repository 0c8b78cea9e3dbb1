package router

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proctor_events_total",
		Help: "Inbound events by kind and handling result.",
	}, []string{"kind", "result"})

	handleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proctor_event_handle_ms",
		Help:    "Event handling duration in milliseconds.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"kind"})
)

func MustRegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(eventsTotal, handleDuration)
}

type timer struct {
	kind  string
	start time.Time
}

func startTimer(kind string) timer {
	return timer{kind: kind, start: time.Now()}
}

func (t timer) done() {
	handleDuration.WithLabelValues(t.kind).Observe(float64(time.Since(t.start) / time.Millisecond))
}
