package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels of documents_generated_total.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Side-effect sinks labelled in side_effect_failures_total.
const (
	SinkConvert = "convert"
	SinkArchive = "archive"
	SinkLedger  = "ledger"
	SinkNotify  = "notify"
	SinkOutput  = "output"
)

// Metrics counts generated documents and failed side effects.
type Metrics struct {
	generated          *prometheus.CounterVec
	sideEffectFailures *prometheus.CounterVec
}

// NewMetrics registers the generation counters on reg. A counter that is
// already registered is reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		generated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_generated_total",
				Help: "Total number of documents produced by the generation pipeline.",
			},
			[]string{"kind", "outcome"},
		),
		sideEffectFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "side_effect_failures_total",
				Help: "Total number of failed best-effort side effects.",
			},
			[]string{"sink"},
		),
	}
	var err error
	if m.generated, err = register(reg, m.generated); err != nil {
		return nil, err
	}
	if m.sideEffectFailures, err = register(reg, m.sideEffectFailures); err != nil {
		return nil, err
	}
	return m, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *Metrics) document(kind, outcome string) {
	if m == nil {
		return
	}
	m.generated.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) failure(sink string) {
	if m == nil {
		return
	}
	m.sideEffectFailures.WithLabelValues(sink).Inc()
}
