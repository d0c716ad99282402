package contentledger

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts ledger operations by outcome.
type Metrics struct {
	operations *prometheus.CounterVec
}

// NewMetrics creates the ledger collectors and registers them with reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contentledger",
			Name:      "operations_total",
			Help:      "Ledger operations by operation and result.",
		}, []string{"op", "result"}),
	}
	if reg != nil {
		if err := reg.Register(m.operations); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Operations exposes the counter vector, mainly for tests.
func (m *Metrics) Operations() *prometheus.CounterVec {
	return m.operations
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidContributionSplit):
		return "invalid_split"
	case errors.Is(err, ErrOverflow):
		return "overflow"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return "error"
	}
}
