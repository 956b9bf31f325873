// Package promexp implements a Prometheus scrape backend for the metrics
// package.
//
// This package adapts the generic metrics.Backend interface to Prometheus by:
//
//   - Using client_golang CounterVec and SummaryVec collectors.
//   - Mapping the operation labels (op, status, kind) onto Prometheus labels.
//   - Exposing a Gatherer for a /metrics scrape endpoint instead of pushing.
//
// The package intentionally contains all Prometheus-specific dependencies so
// that the rest of the project remains decoupled from Prometheus and can swap
// to alternative backends (e.g. Datadog, StatsD) without changes to the core
// profiling and synthesis paths.
package promexp

import (
	"fmt"

	"scrambler/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// Backend is a Prometheus scrape-model metrics backend.
type Backend struct {
	reg *prometheus.Registry

	opCounter  *prometheus.CounterVec // "scrambler_op_total"
	opDuration *prometheus.SummaryVec // "scrambler_op_duration_seconds"
	rowCounter *prometheus.CounterVec // "scrambler_rows_total"
}

// NewBackend constructs a Prometheus backend with its own registry.
func NewBackend() (*Backend, error) {
	reg := prometheus.NewRegistry()

	opCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrambler_op_total",
			Help: "Total number of profiling/synthesis operations, partitioned by op and status.",
		},
		[]string{"op", "status"},
	)
	opDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "scrambler_op_duration_seconds",
			Help:       "Duration of profiling/synthesis operations in seconds, partitioned by op and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"op", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrambler_rows_total",
			Help: "Row-level counts per op and kind (profiled, synthesized).",
		},
		[]string{"op", "kind"},
	)

	if err := reg.Register(opCounter); err != nil {
		return nil, fmt.Errorf("promexp: register op counter: %w", err)
	}
	if err := reg.Register(opDuration); err != nil {
		return nil, fmt.Errorf("promexp: register op summary: %w", err)
	}
	if err := reg.Register(rowCounter); err != nil {
		return nil, fmt.Errorf("promexp: register row counter: %w", err)
	}

	return &Backend{
		reg:        reg,
		opCounter:  opCounter,
		opDuration: opDuration,
		rowCounter: rowCounter,
	}, nil
}

// Gatherer exposes the backing registry for a promhttp scrape handler.
func (b *Backend) Gatherer() prometheus.Gatherer {
	return b.reg
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "scrambler_op_total":
		if b.opCounter == nil {
			return
		}
		b.opCounter.WithLabelValues(labels["op"], labels["status"]).Add(delta)

	case "scrambler_rows_total":
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["op"], labels["kind"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "scrambler_op_duration_seconds" || b.opDuration == nil {
		return
	}
	b.opDuration.WithLabelValues(labels["op"], labels["status"]).Observe(value)
}

// Flush is a no-op: Prometheus pulls via the scrape endpoint.
func (b *Backend) Flush() error {
	return nil
}
