package health

import (
	"slices"
	"sync"
	"time"

	"github.com/t0mer/wa-llm-exporter/errors"
)

// Monitor keeps the latest status of each collector. Safe for concurrent use.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	now      func() time.Time
}

// NewMonitor creates an empty monitor
func NewMonitor() *Monitor {
	return &Monitor{
		statuses: make(map[string]Status),
		now:      time.Now,
	}
}

// RecordSuccess marks a collector healthy after a run that produced samples
func (m *Monitor) RecordSuccess(name string, duration time.Duration, samples int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	metrics := m.metricsLocked(name)
	metrics.LastDuration = duration
	metrics.Samples = samples
	metrics.ConsecutiveFailures = 0
	metrics.LastErrorType = ""
	metrics.LastSuccess = now

	status := NewHealthy(name, "ok")
	status.Timestamp = now
	m.statuses[name] = status.WithMetrics(metrics)
}

// RecordFailure marks a collector unhealthy. The failure is kept next to the
// time of the last success so that flapping collectors are visible.
func (m *Monitor) RecordFailure(name string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	metrics := m.metricsLocked(name)
	metrics.LastDuration = duration
	metrics.Samples = 0
	metrics.ConsecutiveFailures++
	metrics.TotalFailures++
	metrics.LastErrorType = errors.KindOf(err).String()

	status := FromError(name, err)
	status.Timestamp = now
	m.statuses[name] = status.WithMetrics(metrics)
}

// metricsLocked returns a copy of the metrics of name, or fresh ones
func (m *Monitor) metricsLocked(name string) *Metrics {
	if previous, ok := m.statuses[name]; ok && previous.Metrics != nil {
		metrics := *previous.Metrics
		return &metrics
	}
	return &Metrics{}
}

// Get retrieves the status of a named component
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, exists := m.statuses[name]
	return status, exists
}

// Names returns the tracked component names in sorted order
func (m *Monitor) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.statuses))
	for name := range m.statuses {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// AggregateHealth returns the exporter status with one sub-status per
// collector, ordered by name
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subStatuses := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		subStatuses = append(subStatuses, status)
	}
	slices.SortFunc(subStatuses, func(a, b Status) int {
		if a.Component < b.Component {
			return -1
		}
		if a.Component > b.Component {
			return 1
		}
		return 0
	})

	return Aggregate(systemName, subStatuses)
}
