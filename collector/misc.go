package collector

import (
	"context"
	"log/slog"

	"github.com/t0mer/wa-llm-exporter/errors"
	"github.com/t0mer/wa-llm-exporter/metric"
	"github.com/t0mer/wa-llm-exporter/store"
)

// MiscCollector reports reactions, opt-outs and knowledge base topics. These
// tables are optional in older deployments.
type MiscCollector struct {
	db     Querier
	logger *slog.Logger
}

// NewMiscCollector creates a misc collector
func NewMiscCollector(db Querier, logger *slog.Logger) *MiscCollector {
	return &MiscCollector{
		db:     db,
		logger: withDefaultLogger(logger).With("collector", NameMisc),
	}
}

// Name implements Collector
func (c *MiscCollector) Name() string {
	return NameMisc
}

// Collect implements Collector. A missing table counts as 0.
func (c *MiscCollector) Collect(ctx context.Context, sink *metric.Sink) error {
	counts := []count{
		{metric.ReactionsTotal, "reactions_total", "SELECT COUNT(*) FROM reaction", nil},
		{metric.OptoutsTotal, "optouts_total", "SELECT COUNT(*) FROM optout", nil},
		{metric.KBTopicsTotal, "kb_topics_total", "SELECT COUNT(*) FROM kbtopic", nil},
	}

	for _, q := range counts {
		n, err := c.db.Count(ctx, q.queryType, q.query, q.args...)
		if err != nil {
			if !store.IsUndefinedTable(err) {
				return errors.Wrap(err, "MiscCollector", "Collect", q.queryType)
			}
			c.logger.Debug("Table missing, reporting 0", "query_type", q.queryType)
			n = 0
		}
		sink.Set(q.def, float64(n))
	}
	return nil
}
