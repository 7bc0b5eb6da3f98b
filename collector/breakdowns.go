package collector

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/t0mer/wa-llm-exporter/errors"
	"github.com/t0mer/wa-llm-exporter/metric"
)

var topGroupsQuery = fmt.Sprintf(`
	SELECT g.group_jid, g.group_name, COUNT(m.message_id) AS msg_count
	FROM "group" g
	LEFT JOIN message m ON m.group_jid = g.group_jid
	GROUP BY g.group_jid, g.group_name
	ORDER BY msg_count DESC, g.group_jid ASC
	LIMIT %d`, TopN)

var topSendersQuery = fmt.Sprintf(`
	SELECT m.sender_jid, COALESCE(s.push_name, m.sender_jid) AS sender_name, COUNT(*) AS msg_count
	FROM message m
	LEFT JOIN sender s ON s.jid = m.sender_jid
	GROUP BY m.sender_jid, s.push_name
	ORDER BY msg_count DESC, m.sender_jid ASC
	LIMIT %d`, TopN)

// MessageGroupsCollector reports the TopN groups by message count. Groups
// without messages are listed with 0.
type MessageGroupsCollector struct {
	db Querier
}

// NewMessageGroupsCollector creates a per-group breakdown collector
func NewMessageGroupsCollector(db Querier) *MessageGroupsCollector {
	return &MessageGroupsCollector{db: db}
}

// Name implements Collector
func (c *MessageGroupsCollector) Name() string {
	return NameMessageGroups
}

// Collect implements Collector
func (c *MessageGroupsCollector) Collect(ctx context.Context, sink *metric.Sink) error {
	if err := collectTop(ctx, c.db, sink, metric.MessagesPerGroup, "messages_per_group", topGroupsQuery); err != nil {
		return errors.Wrap(err, "MessageGroupsCollector", "Collect", "messages_per_group")
	}
	return nil
}

// MessageSendersCollector reports the TopN senders by message count
type MessageSendersCollector struct {
	db Querier
}

// NewMessageSendersCollector creates a per-sender breakdown collector
func NewMessageSendersCollector(db Querier) *MessageSendersCollector {
	return &MessageSendersCollector{db: db}
}

// Name implements Collector
func (c *MessageSendersCollector) Name() string {
	return NameMessageSenders
}

// Collect implements Collector
func (c *MessageSendersCollector) Collect(ctx context.Context, sink *metric.Sink) error {
	if err := collectTop(ctx, c.db, sink, metric.MessagesPerSender, "messages_per_sender", topSendersQuery); err != nil {
		return errors.Wrap(err, "MessageSendersCollector", "Collect", "messages_per_sender")
	}
	return nil
}

// collectTop reads (jid, name, count) rows into def, labelled by identifier
// and display name
func collectTop(ctx context.Context, db Querier, sink *metric.Sink, def *metric.Definition, queryType, query string) error {
	return db.Query(ctx, queryType, query, func(rows *sql.Rows) error {
		var (
			jid      string
			name     sql.NullString
			messages int64
		)
		if err := rows.Scan(&jid, &name, &messages); err != nil {
			return err
		}
		sink.Set(def, float64(messages), identifier(jid), displayName(name, jid))
		return nil
	})
}
