package progress

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink counts progress events by stage.
type MetricsSink struct {
	events *prometheus.CounterVec
}

// NewMetricsSink builds a MetricsSink registered with reg. A nil registerer
// leaves the collector unregistered, which tests use.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "climate_etl",
		Name:      "progress_events_total",
		Help:      "Progress events observed, by stage.",
	}, []string{"stage"})
	if reg != nil {
		reg.MustRegister(events)
	}
	return &MetricsSink{events: events}
}

// Consume implements Sink.
func (s *MetricsSink) Consume(_ context.Context, events []Event) error {
	for _, evt := range events {
		s.events.WithLabelValues(string(evt.Stage)).Inc()
	}
	return nil
}

// Close implements Sink.
func (s *MetricsSink) Close(context.Context) error { return nil }
