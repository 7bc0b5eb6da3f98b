// Package health tracks the outcome of each collector across scrapes and
// reduces it to a status the exporter serves on /status and /ready.
//
// # Health States
//
// The package supports three health states:
//   - Healthy: the collector's last run succeeded
//   - Degraded: only used for aggregates, some collectors are failing
//   - Unhealthy: the collector's last run failed, or every collector failed
//
// A failing collector does not fail the scrape; its samples are dropped and
// the rest are served. Aggregation follows that: one failing collector makes
// the exporter degraded, not unhealthy.
//
// # Basic Usage
//
// The scrape orchestrator records every collector run:
//
//	monitor := health.NewMonitor()
//
//	monitor.RecordSuccess("messages", 120*time.Millisecond, 42)
//	monitor.RecordFailure("connection", 10*time.Second, err)
//
//	status := monitor.AggregateHealth("wa-exporter")
//	// status.Status == "degraded"
//	// status.SubStatuses are ordered by collector name
//
// One-off checks such as the readiness ping use FromError:
//
//	status := health.FromError("database", db.Ping(ctx))
//
// # Sanitization
//
// Error messages that reach a Status through FromError or RecordFailure are
// stripped of URLs and DSNs, file paths, IP addresses, ports and credential
// pairs. The exporter serves these endpoints without authentication and a
// database DSN carries its password.
//
// # Thread Safety
//
// Monitor is safe for concurrent use. Status values are copied in and out;
// WithSubStatus never shares the backing array of the receiver.
package health
