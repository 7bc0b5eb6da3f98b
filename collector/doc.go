// Package collector holds the exporter's metric groups. Each Collector is
// called once per scrape with its own metric.Sink and reads its source
// directly; nothing is cached between scrapes.
//
//	connection       WhatsApp API devices, device info and API-visible groups
//	messages         message counts and time windows
//	message_groups   top groups by message count
//	message_senders  top senders by message count
//	groups           group counts by flag
//	senders          known and recently active senders
//	misc             reactions, opt-outs and knowledge base topics
//	database         connection test and per-table row counts
//
// A collector returns an error only when its samples cannot be trusted. The
// orchestrator then drops everything the collector wrote in that scrape. A
// FailureCollector reports a fallback instead; the database collector uses it
// to report a connection status of 0.
// Aggregates over zero rows are reported as 0. Top lists hold at most TopN
// entries ordered by count descending, then by JID; a missing display name
// falls back to the JID.
package collector
