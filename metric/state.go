package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// State contains the metrics that accumulate for the lifetime of the process.
// Everything else the exporter renders is rebuilt on every scrape.
type State struct {
	// Scrape self-observability
	ScrapeErrors        *prometheus.CounterVec
	ScrapeDuration      prometheus.Histogram
	LastScrapeTimestamp prometheus.Gauge

	// Remote call latency
	APILatency     *prometheus.HistogramVec
	DBQueryLatency *prometheus.HistogramVec
}

// NewState creates the process-wide metrics from their definitions
func NewState() *State {
	return &State{
		ScrapeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: ScrapeErrors.Name,
				Help: ScrapeErrors.Help,
			},
			ScrapeErrors.Labels,
		),

		ScrapeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    ScrapeDuration.Name,
				Help:    ScrapeDuration.Help,
				Buckets: ScrapeDuration.Buckets,
			},
		),

		LastScrapeTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: LastScrapeTimestamp.Name,
				Help: LastScrapeTimestamp.Help,
			},
		),

		APILatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    APILatency.Name,
				Help:    APILatency.Help,
				Buckets: APILatency.Buckets,
			},
			APILatency.Labels,
		),

		DBQueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    DBQueryLatency.Name,
				Help:    DBQueryLatency.Help,
				Buckets: DBQueryLatency.Buckets,
			},
			DBQueryLatency.Labels,
		),
	}
}

// collectors returns every State metric keyed by definition name
func (s *State) collectors() map[string]prometheus.Collector {
	return map[string]prometheus.Collector{
		ScrapeErrors.Name:        s.ScrapeErrors,
		ScrapeDuration.Name:      s.ScrapeDuration,
		LastScrapeTimestamp.Name: s.LastScrapeTimestamp,
		APILatency.Name:          s.APILatency,
		DBQueryLatency.Name:      s.DBQueryLatency,
	}
}

// RecordScrapeError increments the error counter for a collector
func (s *State) RecordScrapeError(collector, errorType string) {
	s.ScrapeErrors.WithLabelValues(collector, errorType).Inc()
}

// RecordScrapeDuration records the wall-clock time of one collection phase
func (s *State) RecordScrapeDuration(duration time.Duration) {
	s.ScrapeDuration.Observe(duration.Seconds())
}

// RecordScrapeSuccess stamps the time of the last scrape with a successful collector
func (s *State) RecordScrapeSuccess(at time.Time) {
	s.LastScrapeTimestamp.Set(float64(at.UnixNano()) / 1e9)
}

// RecordAPILatency records the latency of one WhatsApp API call. A nil State
// records nothing.
func (s *State) RecordAPILatency(endpoint string, duration time.Duration) {
	if s == nil {
		return
	}
	s.APILatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordQueryLatency records the latency of one database statement
func (s *State) RecordQueryLatency(queryType string, duration time.Duration) {
	if s == nil {
		return
	}
	s.DBQueryLatency.WithLabelValues(queryType).Observe(duration.Seconds())
}
