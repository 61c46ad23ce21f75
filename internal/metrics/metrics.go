// Package metrics exports Prometheus metrics for administrative operations.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/appkeeper/internal/app"
	"github.com/bft-labs/appkeeper/internal/domain"
)

// Result labels.
const (
	ResultSuccess            = "success"
	ResultConfiguration      = "configuration"
	ResultAlreadyInitialized = "already_initialized"
	ResultTableExists        = "table_exists"
	ResultRunning            = "running"
	ResultCoordination       = "coordination"
	ResultStorage            = "storage"
	ResultClosed             = "closed"
	ResultError              = "error"
)

// Metrics records operation outcomes and the last observed application
// status. All methods are safe on a nil receiver.
type Metrics struct {
	// OperationsTotal counts operations by name and result.
	OperationsTotal *prometheus.CounterVec

	// OperationDuration tracks operation latency.
	OperationDuration *prometheus.HistogramVec

	// Initialized is 1 when the coordination namespace exists.
	Initialized *prometheus.GaugeVec

	// Running is 1 when an oracle or worker is registered.
	Running *prometheus.GaugeVec

	// Workers is the number of registered workers.
	Workers *prometheus.GaugeVec
}

// New creates the metrics and registers them with reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appkeeper_operations_total",
				Help: "Total administrative operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "appkeeper_operation_duration_seconds",
				Help:    "Administrative operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		Initialized: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "appkeeper_application_initialized",
				Help: "Whether the application coordination namespace exists",
			},
			[]string{"application"},
		),
		Running: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "appkeeper_application_running",
				Help: "Whether an oracle or worker of the application is registered",
			},
			[]string{"application"},
		),
		Workers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "appkeeper_application_workers",
				Help: "Number of registered workers",
			},
			[]string{"application"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.OperationsTotal,
			m.OperationDuration,
			m.Initialized,
			m.Running,
			m.Workers,
		)
	}
	return m
}

// OnOperation implements app.OperationObserver.
func (m *Metrics) OnOperation(op app.Operation, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(string(op), Result(err)).Inc()
	m.OperationDuration.WithLabelValues(string(op)).Observe(duration.Seconds())
}

// RecordStatus updates the status gauges.
func (m *Metrics) RecordStatus(st app.Status) {
	if m == nil {
		return
	}
	m.Initialized.WithLabelValues(st.ApplicationName).Set(boolValue(st.Initialized))
	m.Running.WithLabelValues(st.ApplicationName).Set(boolValue(st.Running))
	m.Workers.WithLabelValues(st.ApplicationName).Set(float64(st.Workers))
}

// Result maps an operation error to its result label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, domain.ErrApplicationRunning):
		return ResultRunning
	case errors.Is(err, domain.ErrConfiguration):
		return ResultConfiguration
	case errors.Is(err, domain.ErrAlreadyInitialized):
		return ResultAlreadyInitialized
	case errors.Is(err, domain.ErrTableExists):
		return ResultTableExists
	case errors.Is(err, domain.ErrCoordination):
		return ResultCoordination
	case errors.Is(err, domain.ErrStorage):
		return ResultStorage
	case errors.Is(err, domain.ErrClosed):
		return ResultClosed
	default:
		return ResultError
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// WriteTextfile writes every metric gathered by g to path in the text
// exposition format, for the node exporter textfile collector.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}
