// Package metrics exposes Prometheus collectors for dispatches, backend
// calls and the dispatch gate.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dispatcher"

// Outcome labels a finished dispatch.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeDecodeError  Outcome = "decode_error"
	OutcomeNoMatch      Outcome = "no_match"
	OutcomeStatusError  Outcome = "backend_status_error"
	OutcomeBackendError Outcome = "backend_error"
	OutcomeCancelled    Outcome = "cancelled"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	mu sync.Mutex

	dispatchTotal   *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	gateWait        prometheus.Histogram
	gateWaiting     prometheus.Gauge
	inFlight        prometheus.Gauge

	registerer prometheus.Registerer
	registered bool
}

// New creates the collectors. They are not registered until Register.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		registerer: registerer,
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Dispatched requests by selected backend and outcome",
		}, []string{"backend", "outcome"}),
		backendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound backend calls",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"backend"}),
		gateWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for the dispatch gate",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		gateWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "waiting",
			Help:      "Requests currently waiting for the dispatch gate",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight",
			Help:      "Requests currently holding the dispatch gate",
		}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.dispatchTotal,
		m.backendDuration,
		m.gateWait,
		m.gateWaiting,
		m.inFlight,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// RecordDispatch counts a finished dispatch. An empty backend means the
// request never reached classification or matched nothing.
func (m *Metrics) RecordDispatch(backend string, outcome Outcome) {
	if m == nil {
		return
	}
	if backend == "" {
		backend = "none"
	}
	m.dispatchTotal.WithLabelValues(backend, string(outcome)).Inc()
}

// DispatchCounter returns the counter behind RecordDispatch, for tests and
// dashboards built in code.
//
// On a nil *Metrics it returns an unregistered counter that stays at zero.
func (m *Metrics) DispatchCounter(backend string, outcome Outcome) prometheus.Counter {
	if m == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
		})
	}
	if backend == "" {
		backend = "none"
	}
	return m.dispatchTotal.WithLabelValues(backend, string(outcome))
}

func (m *Metrics) ObserveBackend(backend string, d time.Duration) {
	if m == nil {
		return
	}
	m.backendDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// WaitingForGate marks a request as waiting and returns a func that
// records the wait once the gate was acquired or abandoned.
func (m *Metrics) WaitingForGate() func() {
	if m == nil {
		return func() {}
	}

	start := time.Now()
	m.gateWaiting.Inc()

	return func() {
		m.gateWaiting.Dec()
		m.gateWait.Observe(time.Since(start).Seconds())
	}
}

// HoldingGate marks a request as in flight and returns a func that clears it.
func (m *Metrics) HoldingGate() func() {
	if m == nil {
		return func() {}
	}

	m.inFlight.Inc()
	return m.inFlight.Dec
}
