package sqlite

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

type metrics struct {
	ops *prometheus.CounterVec
}

// newMetrics builds the operation counters and registers them with reg when
// it is not nil. A collector already registered by an earlier backend on the
// same registry is reused.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxa",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Store operations by table, operation and outcome.",
	}, []string{"table", "op", "outcome"})

	if reg != nil {
		if err := reg.Register(ops); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, errors.Wrap(err, "registering store metrics")
			}
			existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return nil, errors.Newf("collector %T already registered for store metrics", are.ExistingCollector)
			}
			ops = existing
		}
	}
	return &metrics{ops: ops}, nil
}

func (m *metrics) observe(table, op string, err error) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	m.ops.WithLabelValues(table, op, outcome).Inc()
}
