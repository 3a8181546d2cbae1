// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sim

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"grimm.is/flowsim/internal/errors"
)

// Metrics counts what a run did. The registry is private to the run; the
// counters can be exported in textfile format for collection by a
// node-exporter style scraper.
type Metrics struct {
	registry *prometheus.Registry

	Probes    prometheus.Counter
	Rows      prometheus.Counter
	Routable  prometheus.Counter
	Decisions *prometheus.CounterVec
}

// NewMetrics builds a fresh registry with the run counters registered.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Probes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowsim_probes_evaluated_total",
			Help: "Probes evaluated against the policy set.",
		}),
		Rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowsim_rows_written_total",
			Help: "Result rows written to the main output sink.",
		}),
		Routable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowsim_routable_rows_total",
			Help: "Companion rows written to the routable sink in fuzzy mode.",
		}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowsim_decisions_total",
			Help: "Final decisions by verdict.",
		}, []string{"decision"}),
	}
	m.registry.MustRegister(m.Probes, m.Rows, m.Routable, m.Decisions)
	return m
}

// WriteTextfile exports the counters in the textfile collector format.
func (m *Metrics) WriteTextfile(path string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "gather metrics")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, errors.KindValidation, "create metrics file %s", path)
	}
	defer f.Close()
	encoder := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return errors.Wrap(err, errors.KindInternal, "encode metrics")
		}
	}
	return nil
}
