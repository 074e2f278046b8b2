// Package metrics holds the Prometheus collectors for remote executions and
// certificate operations. A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sslops"

var durationBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300}

// Metrics groups the collectors shared by the gateway and the manager.
type Metrics struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	operations *prometheus.CounterVec
	sweep      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A collector that is
// already registered (e.g. two managers in one process) is reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "executions_total",
			Help:      "Remote command executions by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock duration of remote command executions",
			Buckets:   durationBuckets,
		}, []string{"outcome"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cert",
			Name:      "operations_total",
			Help:      "Certificate lifecycle operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		sweep: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "domains_total",
			Help:      "Domains processed by renewal sweeps by outcome",
		}, []string{"outcome"}),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	m.executions, err = register(reg, m.executions)
	if err != nil {
		return nil, err
	}
	m.duration, err = register(reg, m.duration)
	if err != nil {
		return nil, err
	}
	m.operations, err = register(reg, m.operations)
	if err != nil {
		return nil, err
	}
	m.sweep, err = register(reg, m.sweep)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveExecution records one remote execution.
func (m *Metrics) ObserveExecution(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveOperation records one certificate operation.
func (m *Metrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveSweep records the totals of one sweep run.
func (m *Metrics) ObserveSweep(renewed, failed int) {
	if m == nil {
		return
	}
	m.sweep.WithLabelValues("renewed").Add(float64(renewed))
	m.sweep.WithLabelValues("failed").Add(float64(failed))
}
