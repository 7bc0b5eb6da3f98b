package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"

	"github.com/t0mer/wa-llm-exporter/errors"
)

// Registry owns the metric definitions, the process-wide State and the
// Prometheus registry they are exposed through
type Registry struct {
	prometheusRegistry *prometheus.Registry
	definitions        *DefinitionSet
	State              *State
	registeredMetrics  map[string]prometheus.Collector
	runtimeMetrics     bool
	mu                 sync.RWMutex
}

// Option configures a Registry
type Option func(*Registry)

// WithoutRuntimeMetrics leaves out the Go runtime and process collectors
func WithoutRuntimeMetrics() Option {
	return func(r *Registry) {
		r.runtimeMetrics = false
	}
}

// NewRegistry validates the exporter's definitions and registers the
// process-wide State. Any returned error is a registry conflict and must stop
// the process.
func NewRegistry(opts ...Option) (*Registry, error) {
	return NewRegistryFor(Definitions(), opts...)
}

// NewRegistryFor is NewRegistry over an explicit definition list
func NewRegistryFor(defs []*Definition, opts ...Option) (*Registry, error) {
	definitions, err := NewDefinitionSet(defs...)
	if err != nil {
		return nil, err
	}

	registry := &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		definitions:        definitions,
		State:              NewState(),
		registeredMetrics:  make(map[string]prometheus.Collector),
		runtimeMetrics:     true,
	}

	for _, opt := range opts {
		opt(registry)
	}

	for name, collector := range registry.State.collectors() {
		if err := registry.Register(name, collector); err != nil {
			return nil, err
		}
	}

	// Add Go runtime metrics
	if registry.runtimeMetrics {
		if err := registry.prometheusRegistry.Register(collectors.NewGoCollector()); err != nil {
			return nil, errors.WrapFatal(err, "Registry", "NewRegistry", "register go collector")
		}
		if err := registry.prometheusRegistry.Register(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, errors.WrapFatal(err, "Registry", "NewRegistry", "register process collector")
		}
	}

	return registry, nil
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// Definitions returns the validated definition set
func (r *Registry) Definitions() *DefinitionSet {
	return r.definitions
}

// Register adds a long-lived collector under a definition name
func (r *Registry) Register(name string, collector prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registeredMetrics[name]; exists {
		return errors.WrapFatal(
			fmt.Errorf("%w: metric %s already registered", errors.ErrRegistryConflict, name),
			"Registry", "Register", "duplicate metric registration")
	}

	if _, declared := r.definitions.Lookup(name); !declared {
		return errors.WrapFatal(
			fmt.Errorf("%w: metric %s has no definition", errors.ErrRegistryConflict, name),
			"Registry", "Register", "check metric definition")
	}

	if err := r.prometheusRegistry.Register(collector); err != nil {
		// Check if it's a duplicate registration error from Prometheus
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if stderrors.As(err, &alreadyRegErr) {
			return errors.WrapFatal(err, "Registry", "Register",
				fmt.Sprintf("prometheus conflict for metric %s", name))
		}
		return errors.WrapFatal(err, "Registry", "Register",
			"failed to register collector with prometheus")
	}

	r.registeredMetrics[name] = collector
	return nil
}

// Gather merges the long-lived metrics with one scrape's samples. Families are
// sorted by name and samples by label values. A non-nil error comes with the
// families that could still be gathered.
func (r *Registry) Gather(samples []prometheus.Metric) ([]*dto.MetricFamily, error) {
	scrapeRegistry := prometheus.NewPedanticRegistry()
	if err := scrapeRegistry.Register(newSampleCollector(r.definitions.Sampled(), samples)); err != nil {
		return nil, errors.WrapFatal(err, "Registry", "Gather", "register scrape samples")
	}

	return prometheus.Gatherers{r.prometheusRegistry, scrapeRegistry}.Gather()
}

// sampleCollector exposes one scrape's samples. It describes every sampled
// definition so that a pedantic registry rejects anything undeclared.
type sampleCollector struct {
	definitions []*Definition
	samples     []prometheus.Metric
}

func newSampleCollector(definitions []*Definition, samples []prometheus.Metric) *sampleCollector {
	return &sampleCollector{definitions: definitions, samples: samples}
}

// Describe implements prometheus.Collector
func (c *sampleCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, def := range c.definitions {
		ch <- def.Desc()
	}
}

// Collect implements prometheus.Collector
func (c *sampleCollector) Collect(ch chan<- prometheus.Metric) {
	for _, sample := range c.samples {
		ch <- sample
	}
}
