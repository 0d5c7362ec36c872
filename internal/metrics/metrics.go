// Package metrics exposes Prometheus metrics of the indexer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/galtspace/geo-explorer/internal/domain"
)

const namespace = "geo_explorer"

// Recorder receives sync engine observations
type Recorder interface {
	// EventHandled records one handled event and how long its handler ran
	EventHandled(t domain.EventType, d time.Duration, err error)
	// Checkpoint records the block the checkpoint was moved to
	Checkpoint(block uint64)
}

// Metrics holds every indexer metric on its own registry
type Metrics struct {
	EventsProcessed *prometheus.CounterVec
	HandlerFailures *prometheus.CounterVec
	CheckpointBlock prometheus.Gauge
	HandlerDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates and registers the indexer metrics
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.EventsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Total events handled by event type",
		},
		[]string{"event_type"},
	)

	m.HandlerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_handler_failures_total",
			Help:      "Total failed event handlers by event type",
		},
		[]string{"event_type"},
	)

	m.CheckpointBlock = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "checkpoint_block",
			Help:      "Block the stored checkpoint points at",
		},
	)

	m.HandlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_handler_duration_seconds",
			Help:      "Event handler run time including cascades",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"event_type"},
	)

	m.registry.MustRegister(
		m.EventsProcessed,
		m.HandlerFailures,
		m.CheckpointBlock,
		m.HandlerDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// EventHandled records one handled event
func (m *Metrics) EventHandled(t domain.EventType, d time.Duration, err error) {
	label := string(t)
	m.EventsProcessed.WithLabelValues(label).Inc()
	m.HandlerDuration.WithLabelValues(label).Observe(d.Seconds())
	if err != nil {
		m.HandlerFailures.WithLabelValues(label).Inc()
	}
}

// Checkpoint records the checkpoint block
func (m *Metrics) Checkpoint(block uint64) {
	m.CheckpointBlock.Set(float64(block))
}

// Registry returns the registry the metrics live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Nop discards every observation
type Nop struct{}

func (Nop) EventHandled(domain.EventType, time.Duration, error) {}
func (Nop) Checkpoint(uint64)                                  {}
