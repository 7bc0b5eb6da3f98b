package collector

import (
	"context"
	"log/slog"

	"github.com/t0mer/wa-llm-exporter/errors"
	"github.com/t0mer/wa-llm-exporter/metric"
)

// TrackedTables are the tables whose row counts are reported
var TrackedTables = []string{"message", "sender", "group", "reaction", "optout"}

// DatabaseCollector reports database reachability and table sizes
type DatabaseCollector struct {
	db     Database
	logger *slog.Logger
}

// NewDatabaseCollector creates a database collector
func NewDatabaseCollector(db Database, logger *slog.Logger) *DatabaseCollector {
	return &DatabaseCollector{
		db:     db,
		logger: withDefaultLogger(logger).With("collector", NameDatabase),
	}
}

// Name implements Collector
func (c *DatabaseCollector) Name() string {
	return NameDatabase
}

// Collect tests the connection, then counts the rows of every tracked table.
// A table that cannot be counted is left out; a failed connection test fails
// the collector, which then reports a connection status of 0 through
// CollectFailure.
func (c *DatabaseCollector) Collect(ctx context.Context, sink *metric.Sink) error {
	if err := c.db.TestConnection(ctx); err != nil {
		return errors.Wrap(err, "DatabaseCollector", "Collect", "test connection")
	}
	sink.Set(metric.DBConnectionStatus, 1)

	for _, table := range TrackedTables {
		n, err := c.db.Count(ctx, "table_rows", `SELECT COUNT(*) FROM "`+table+`"`)
		if err != nil {
			c.logger.Debug("Skipping table row count", "table", table, "error", err)
			continue
		}
		sink.Set(metric.DBTableRows, float64(n), table)
	}
	return nil
}

// CollectFailure reports the database as disconnected
func (c *DatabaseCollector) CollectFailure(sink *metric.Sink) {
	sink.Set(metric.DBConnectionStatus, 0)
}
