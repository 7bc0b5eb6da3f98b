package collector

import (
	"context"
	"time"

	"github.com/t0mer/wa-llm-exporter/errors"
	"github.com/t0mer/wa-llm-exporter/metric"
)

// SendersCollector reports known and recently active senders
type SendersCollector struct {
	db  Querier
	now Clock
}

// NewSendersCollector creates a senders collector. A nil clock uses time.Now.
func NewSendersCollector(db Querier, now Clock) *SendersCollector {
	if now == nil {
		now = time.Now
	}
	return &SendersCollector{db: db, now: now}
}

// Name implements Collector
func (c *SendersCollector) Name() string {
	return NameSenders
}

// Collect implements Collector
func (c *SendersCollector) Collect(ctx context.Context, sink *metric.Sink) error {
	since := c.db.Since(c.now().Add(-24 * time.Hour))

	counts := []count{
		{metric.SendersTotal, "senders_total",
			"SELECT COUNT(*) FROM sender", nil},
		{metric.SendersActive24h, "senders_active_24h",
			"SELECT COUNT(DISTINCT sender_jid) FROM message WHERE timestamp >= ?", []any{since}},
	}

	for _, q := range counts {
		n, err := c.db.Count(ctx, q.queryType, q.query, q.args...)
		if err != nil {
			return errors.Wrap(err, "SendersCollector", "Collect", q.queryType)
		}
		sink.Set(q.def, float64(n))
	}
	return nil
}
