// Package store is the exporter's read-only view of the bot's database.
//
// Open picks the driver from the DSN scheme (pgx for postgres:// and the
// SQLAlchemy postgresql+asyncpg:// form, modernc.org/sqlite for sqlite:// and
// file:) and instruments the pool with otelsql. Statements are written with ?
// placeholders and rebound for Postgres. Each call through DB is bounded by the
// query timeout, timed into whatsapp_db_query_latency_seconds{query_type} and
// returns an error classified by errors.KindOf:
//
//	total, err := db.Count(ctx, "messages_total", "SELECT COUNT(*) FROM message")
//	recent, err := db.Count(ctx, "messages_last_hour",
//	    "SELECT COUNT(*) FROM message WHERE timestamp >= ?", db.Since(now.Add(-time.Hour)))
//
// Postgres SQLSTATE class 28 is reported as an auth error. IsUndefinedTable
// recognises a missing table in either dialect.
package store
