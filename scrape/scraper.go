package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/t0mer/wa-llm-exporter/collector"
	"github.com/t0mer/wa-llm-exporter/errors"
	"github.com/t0mer/wa-llm-exporter/health"
	"github.com/t0mer/wa-llm-exporter/metric"
	"github.com/t0mer/wa-llm-exporter/tracing"
)

// DefaultCollectorTimeout bounds a single collector run
const DefaultCollectorTimeout = 20 * time.Second

// RenderCollector is the collector label of samples rejected while rendering
const RenderCollector = "render"

// Result is the outcome of one collector within a scrape
type Result struct {
	Collector string
	Samples   []prometheus.Metric
	Duration  time.Duration
	Err       error
}

// OK reports whether the collector succeeded
func (r Result) OK() bool {
	return r.Err == nil
}

// Outcome is the outcome of one scrape. Results are in collector order.
type Outcome struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Results  []Result
}

// Samples returns the samples of every collector. A failed collector only
// contributes what its CollectFailure reported.
func (o *Outcome) Samples() []prometheus.Metric {
	var samples []prometheus.Metric
	for _, r := range o.Results {
		samples = append(samples, r.Samples...)
	}
	return samples
}

// Succeeded returns the number of collectors that succeeded
func (o *Outcome) Succeeded() int {
	n := 0
	for _, r := range o.Results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Failed returns the names of the collectors that failed
func (o *Outcome) Failed() []string {
	var names []string
	for _, r := range o.Results {
		if !r.OK() {
			names = append(names, r.Collector)
		}
	}
	return names
}

// Option configures a Scraper
type Option func(*Scraper)

// WithMaxConcurrency bounds how many collectors run at once. Values below one
// mean one goroutine per collector.
func WithMaxConcurrency(n int) Option {
	return func(s *Scraper) {
		s.maxConcurrency = n
	}
}

// WithCollectorTimeout sets the deadline of each collector run
func WithCollectorTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		s.collectorTimeout = d
	}
}

// WithMonitor records each collector run in m
func WithMonitor(m *health.Monitor) Option {
	return func(s *Scraper) {
		s.monitor = m
	}
}

// WithTracer opens the scrape and collector spans on t
func WithTracer(t trace.Tracer) Option {
	return func(s *Scraper) {
		s.tracer = t
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Scraper) {
		s.logger = l
	}
}

// WithClock sets the clock of the last-scrape timestamp
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) {
		s.now = now
	}
}

// Scraper runs every collector once per scrape and renders what succeeded
type Scraper struct {
	registry         *metric.Registry
	collectors       []collector.Collector
	monitor          *health.Monitor
	tracer           trace.Tracer
	logger           *slog.Logger
	maxConcurrency   int
	collectorTimeout time.Duration
	now              func() time.Time
}

// New creates a Scraper over collectors. Collector names must be unique;
// they are the collector label of the scrape error counter.
func New(registry *metric.Registry, collectors []collector.Collector, opts ...Option) (*Scraper, error) {
	if registry == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Scraper", "New", "check registry")
	}

	seen := make(map[string]bool, len(collectors))
	for _, c := range collectors {
		if seen[c.Name()] {
			return nil, errors.WrapInvalid(fmt.Errorf("duplicate collector %q", c.Name()), "Scraper", "New", "check collectors")
		}
		seen[c.Name()] = true
	}

	s := &Scraper{
		registry:         registry,
		collectors:       collectors,
		collectorTimeout: DefaultCollectorTimeout,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.maxConcurrency < 1 {
		s.maxConcurrency = max(len(collectors), 1)
	}
	if s.collectorTimeout <= 0 {
		s.collectorTimeout = DefaultCollectorTimeout
	}
	if s.monitor == nil {
		s.monitor = health.NewMonitor()
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer(tracing.InstrumentationName)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "scraper")

	return s, nil
}

// Monitor returns the monitor holding the per-collector health
func (s *Scraper) Monitor() *health.Monitor {
	return s.monitor
}

// Run executes every collector concurrently and waits for all of them.
// A collector that fails, panics or overruns its deadline is counted,
// logged and left out; it never fails the scrape.
func (s *Scraper) Run(ctx context.Context) *Outcome {
	outcome := &Outcome{
		ID:      uuid.NewString(),
		Started: s.now(),
		Results: make([]Result, len(s.collectors)),
	}
	logger := s.logger.With("scrape_id", outcome.ID)

	ctx, span := tracing.StartScrapeSpan(ctx, s.tracer, outcome.ID)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)
	for i, c := range s.collectors {
		g.Go(func() error {
			outcome.Results[i] = s.collect(ctx, logger, c)
			return nil
		})
	}
	_ = g.Wait()

	outcome.Duration = time.Since(start)
	s.registry.State.RecordScrapeDuration(outcome.Duration)

	succeeded := outcome.Succeeded()
	failed := outcome.Failed()
	if succeeded > 0 {
		s.registry.State.RecordScrapeSuccess(s.now())
	}

	logger.Info("Scrape completed",
		"duration", outcome.Duration,
		"succeeded", succeeded,
		"failed", len(failed))

	tracing.EndSpan(span, nil,
		attribute.Int("exporter.collectors.succeeded", succeeded),
		attribute.StringSlice("exporter.collectors.failed", failed))

	return outcome
}

// collect runs one collector under its own deadline. The collector keeps
// running in the background if it ignores the deadline; its samples are
// discarded.
func (s *Scraper) collect(ctx context.Context, logger *slog.Logger, c collector.Collector) Result {
	name := c.Name()

	ctx, cancel := context.WithTimeout(ctx, s.collectorTimeout)
	defer cancel()

	ctx, span := tracing.StartCollectorSpan(ctx, s.tracer, name)
	start := time.Now()

	sink := metric.NewSink(s.registry.Definitions())
	done := make(chan error, 1)
	go func() {
		done <- safeCollect(ctx, c, sink)
	}()

	var err error
	select {
	case err = <-done:
		if err == nil {
			err = sink.Err()
		}
		if err != nil && ctx.Err() != nil && errors.IsTransient(err) && errors.KindOf(err) != errors.KindTimeout {
			err = errors.WrapTimeout(err, "Scraper", "collect", name)
		}
	case <-ctx.Done():
		err = errors.WrapTimeout(ctx.Err(), "Scraper", "collect", name)
	}
	duration := time.Since(start)

	if err != nil {
		kind := errors.KindOf(err)
		s.registry.State.RecordScrapeError(name, kind.String())
		s.monitor.RecordFailure(name, duration, err)
		level := slog.LevelWarn
		if errors.IsFatal(err) {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "Collector failed",
			"collector", name,
			"error_type", kind.String(),
			"error", err,
			"duration", duration)
		tracing.EndSpan(span, err)
		return Result{Collector: name, Samples: s.failureSamples(logger, c), Duration: duration, Err: err}
	}

	s.monitor.RecordSuccess(name, duration, sink.Len())
	logger.Debug("Collector finished",
		"collector", name,
		"samples", sink.Len(),
		"duration", duration)
	tracing.EndSpan(span, nil, tracing.AttrSamples.Int(sink.Len()))

	return Result{Collector: name, Samples: sink.Metrics(), Duration: duration}
}

// safeCollect turns a collector panic into an error
func safeCollect(ctx context.Context, c collector.Collector, sink *metric.Sink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WrapRemote(fmt.Errorf("%w: %v", errors.ErrCollectorPanic, r), "Scraper", "collect", c.Name())
		}
	}()
	return c.Collect(ctx, sink)
}

// failureSamples asks a FailureCollector for the samples it reports after a
// failed Collect. The Sink of the failed run is never read.
func (s *Scraper) failureSamples(logger *slog.Logger, c collector.Collector) (samples []prometheus.Metric) {
	fc, ok := c.(collector.FailureCollector)
	if !ok {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Collector panicked reporting its failure", "collector", c.Name(), "panic", r)
			samples = nil
		}
	}()

	sink := metric.NewSink(s.registry.Definitions())
	fc.CollectFailure(sink)
	if err := sink.Err(); err != nil {
		logger.Warn("Discarding failure samples", "collector", c.Name(), "error", err)
		return nil
	}
	return sink.Metrics()
}

// Render gathers the process-wide metrics together with the samples of the
// outcome and encodes them in the text exposition format. Samples the
// registry rejects, such as duplicate series, are left out and counted under
// the render collector label; the rest is still rendered. An error is
// returned only when nothing could be gathered or encoding failed.
func (s *Scraper) Render(outcome *Outcome) ([]byte, error) {
	families, err := s.registry.Gather(outcome.Samples())
	if err != nil {
		err = errors.WrapFatal(fmt.Errorf("%w: %w", errors.ErrRegistryConflict, err), "Scraper", "Render", "gather")
		if len(families) == 0 {
			return nil, err
		}
		s.registry.State.RecordScrapeError(RenderCollector, errors.KindOf(err).String())
		s.logger.Error("Rendering partial metrics",
			"scrape_id", outcome.ID,
			"error_type", errors.KindOf(err).String(),
			"error", err)
	}

	body, err := metric.Render(families)
	if err != nil {
		return nil, errors.Wrap(err, "Scraper", "Render", "encode")
	}
	return body, nil
}

// Scrape runs one scrape and renders it
func (s *Scraper) Scrape(ctx context.Context) ([]byte, *Outcome, error) {
	outcome := s.Run(ctx)
	body, err := s.Render(outcome)
	return body, outcome, err
}
