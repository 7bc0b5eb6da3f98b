package collector

import (
	"context"

	"github.com/t0mer/wa-llm-exporter/errors"
	"github.com/t0mer/wa-llm-exporter/metric"
)

// GroupsCollector reports the groups the bot knows about
type GroupsCollector struct {
	db Querier
}

// NewGroupsCollector creates a groups collector
func NewGroupsCollector(db Querier) *GroupsCollector {
	return &GroupsCollector{db: db}
}

// Name implements Collector
func (c *GroupsCollector) Name() string {
	return NameGroups
}

// Collect implements Collector
func (c *GroupsCollector) Collect(ctx context.Context, sink *metric.Sink) error {
	counts := []count{
		{metric.GroupsTotal, "groups_total",
			`SELECT COUNT(*) FROM "group"`, nil},
		{metric.GroupsManaged, "groups_managed",
			`SELECT COUNT(*) FROM "group" WHERE managed = true`, nil},
		{metric.GroupsWithSpamNotification, "groups_spam_notify",
			`SELECT COUNT(*) FROM "group" WHERE notify_on_spam = true`, nil},
		{metric.GroupsWithCommunity, "groups_community",
			`SELECT COUNT(*) FROM "group" WHERE community_keys IS NOT NULL`, nil},
	}

	for _, q := range counts {
		n, err := c.db.Count(ctx, q.queryType, q.query, q.args...)
		if err != nil {
			return errors.Wrap(err, "GroupsCollector", "Collect", q.queryType)
		}
		sink.Set(q.def, float64(n))
	}
	return nil
}
