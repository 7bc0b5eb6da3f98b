package collector

import (
	"context"
	"time"

	"github.com/t0mer/wa-llm-exporter/errors"
	"github.com/t0mer/wa-llm-exporter/metric"
)

// MessagesCollector reports message volumes. The per-group and per-sender
// breakdowns are separate collectors so that they fail on their own.
type MessagesCollector struct {
	db  Querier
	now Clock
}

// NewMessagesCollector creates a messages collector. A nil clock uses time.Now.
func NewMessagesCollector(db Querier, now Clock) *MessagesCollector {
	if now == nil {
		now = time.Now
	}
	return &MessagesCollector{db: db, now: now}
}

// Name implements Collector
func (c *MessagesCollector) Name() string {
	return NameMessages
}

// Collect runs the message counts. "Today" starts at midnight in the clock's location; the 24 hour and one
// hour windows are rolling.
func (c *MessagesCollector) Collect(ctx context.Context, sink *metric.Sink) error {
	now := c.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	counts := []count{
		{metric.MessagesTotal, "messages_total",
			"SELECT COUNT(*) FROM message", nil},
		{metric.MessagesToday, "messages_today",
			"SELECT COUNT(*) FROM message WHERE timestamp >= ?", []any{c.db.Since(midnight)}},
		{metric.MessagesLast24h, "messages_24h",
			"SELECT COUNT(*) FROM message WHERE timestamp >= ?", []any{c.db.Since(now.Add(-24 * time.Hour))}},
		{metric.MessagesLastHour, "messages_1h",
			"SELECT COUNT(*) FROM message WHERE timestamp >= ?", []any{c.db.Since(now.Add(-time.Hour))}},
		{metric.MessagesDirectTotal, "messages_direct",
			"SELECT COUNT(*) FROM message WHERE group_jid IS NULL", nil},
		{metric.MessagesGroupTotal, "messages_group",
			"SELECT COUNT(*) FROM message WHERE group_jid IS NOT NULL", nil},
		{metric.MessagesWithMedia, "messages_media",
			"SELECT COUNT(*) FROM message WHERE media_url IS NOT NULL", nil},
	}

	values := make(map[*metric.Definition]int64, len(counts))
	for _, q := range counts {
		n, err := c.db.Count(ctx, q.queryType, q.query, q.args...)
		if err != nil {
			return errors.Wrap(err, "MessagesCollector", "Collect", q.queryType)
		}
		values[q.def] = n
		sink.Set(q.def, float64(n))
	}

	sink.Set(metric.MessagesByType, float64(values[metric.MessagesDirectTotal]), "direct")
	sink.Set(metric.MessagesByType, float64(values[metric.MessagesGroupTotal]), "group")

	return nil
}
