package metric

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/t0mer/wa-llm-exporter/errors"
)

// Sink accumulates the samples of one collector for one scrape. A Sink is not
// safe for concurrent use; each collector gets its own.
type Sink struct {
	definitions *DefinitionSet
	metrics     []prometheus.Metric
	err         error
}

// NewSink creates an empty Sink that accepts the sampled definitions of defs
func NewSink(defs *DefinitionSet) *Sink {
	return &Sink{definitions: defs}
}

// Set records a gauge sample
func (s *Sink) Set(def *Definition, value float64, labelValues ...string) {
	s.add(def, KindGauge, value, labelValues)
}

// Info records an info sample, always valued 1
func (s *Sink) Info(def *Definition, labelValues ...string) {
	s.add(def, KindInfo, 1, labelValues)
}

func (s *Sink) add(def *Definition, kind Kind, value float64, labelValues []string) {
	if s.err != nil {
		return
	}

	if !s.definitions.Contains(def) || !def.sampled() || def.Kind != kind {
		name := "<nil>"
		if def != nil {
			name = def.Name
		}
		s.err = errors.WrapFatal(
			fmt.Errorf("%w: %s is not a declared %s", errors.ErrRegistryConflict, name, kind),
			"Sink", "add", "record sample")
		return
	}

	m, err := prometheus.NewConstMetric(def.Desc(), prometheus.GaugeValue, value, labelValues...)
	if err != nil {
		s.err = errors.WrapFatal(
			fmt.Errorf("%w: %w", errors.ErrRegistryConflict, err),
			"Sink", "add", fmt.Sprintf("record %s", def.Name))
		return
	}
	s.metrics = append(s.metrics, m)
}

// Metrics returns the recorded samples
func (s *Sink) Metrics() []prometheus.Metric {
	return s.metrics
}

// Len returns the number of recorded samples
func (s *Sink) Len() int {
	return len(s.metrics)
}

// Err returns the first recording error. A collector whose Sink reports an
// error has a bug; its samples should be discarded.
func (s *Sink) Err() error {
	return s.err
}
