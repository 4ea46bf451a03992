package inventory

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	operations   *prometheus.CounterVec
	lockWait     prometheus.Histogram
	lockTimeouts prometheus.Counter
	warnings     prometheus.Counter
	stockMoved   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toolroom",
			Name:      "operations_total",
			Help:      "Mutating operations by name and outcome.",
		}, []string{"op", "outcome"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "toolroom",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the global ledger lock.",
			Buckets:   []float64{.001, .005, .025, .1, .5, 1, 5, 15, 30},
		}),
		lockTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toolroom",
			Name:      "lock_timeouts_total",
			Help:      "Mutations rejected because the lock wait bound elapsed.",
		}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toolroom",
			Name:      "checkout_warnings_total",
			Help:      "Checkout lines skipped for lack of stock or bad input.",
		}),
		stockMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toolroom",
			Name:      "stock_units_total",
			Help:      "Units moved by direction (issued, consumed, returned, damaged).",
		}, []string{"direction"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.lockWait, m.lockTimeouts, m.warnings, m.stockMoved)
	}
	return m
}

func (m *Metrics) observeLockWait(d time.Duration, acquired bool) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
	if !acquired {
		m.lockTimeouts.Inc()
	}
}

func (m *Metrics) observeOp(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrLockTimeout):
		outcome = "lock_timeout"
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrValidation):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) warn(n int) {
	if m == nil || n == 0 {
		return
	}
	m.warnings.Add(float64(n))
}

func (m *Metrics) moved(status Status, qty int) {
	if m == nil || qty <= 0 {
		return
	}
	m.stockMoved.WithLabelValues(string(status)).Add(float64(qty))
}
